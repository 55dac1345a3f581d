package domain

import "errors"

var (
	// ErrAdapterTransport is returned when a source adapter fails at the
	// transport level (network error, browser crash). Fatal to the current
	// ingestion phase only.
	ErrAdapterTransport = errors.New("adapter transport failure")

	// ErrMalformedRecord is returned for a single undecodable record.
	// Recoverable: the pipeline logs it and moves on to the next record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoProducts is returned when a run finishes with zero stored
	// products for the target brand.
	ErrNoProducts = errors.New("no products found for brand")

	// ErrStoreUnavailable is returned when the product store cannot be
	// reached or migrated.
	ErrStoreUnavailable = errors.New("product store unavailable")

	// ErrInvalidRecord is returned when a candidate product is missing the
	// fields that make up its identity.
	ErrInvalidRecord = errors.New("invalid candidate product")
)
