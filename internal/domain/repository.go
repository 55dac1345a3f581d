package domain

import "context"

// CatalogStream yields catalog records one at a time. Next blocks until a
// record is available and returns io.EOF once the source reports no further
// pages. A Next error wrapping ErrMalformedRecord refers to a single skipped
// record and the stream stays usable; any other error is a transport failure
// and ends the stream.
type CatalogStream interface {
	Next(ctx context.Context) (*CatalogRecord, error)
}

// ScrapeStream yields scraped records one at a time with the same Next
// contract as CatalogStream.
type ScrapeStream interface {
	Next(ctx context.Context) (*ScrapedRecord, error)
}

// CatalogSource is the remote catalog adapter. The returned stream is finite
// and delivered in page order.
type CatalogSource interface {
	Stream(ctx context.Context, brandQuery string) CatalogStream
}

// ScrapeSource is the browser-driven crawl adapter. The returned stream is
// finite (bounded by the configured site sections) and delivered in
// crawl-completion order.
type ScrapeSource interface {
	Stream(ctx context.Context) ScrapeStream
}

// ProductStore is durable keyed storage for brands and products.
type ProductStore interface {
	// FindOrCreateBrand looks a brand up by exact name, creating it on
	// first sight.
	FindOrCreateBrand(ctx context.Context, name string) (*Brand, error)

	// FindOrCreateProduct looks a product up by exact (brand, title),
	// creating an empty row on first sight.
	FindOrCreateProduct(ctx context.Context, brand *Brand, title string) (*Product, error)

	// WriteProduct persists the product's current fields and stamps
	// FetchedAt.
	WriteProduct(ctx context.Context, product *Product) error

	// ProductsByBrand returns every stored product for the named brand.
	ProductsByBrand(ctx context.Context, brandName string) ([]Product, error)
}
