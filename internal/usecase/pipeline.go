package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pawfacts/backend/internal/canonical"
	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/platform/logger"
)

// untitledProduct is stored when a catalog record carries no usable name.
const untitledProduct = "N/A"

// PipelineConfig holds configuration for the consolidation pipeline
type PipelineConfig struct {
	// TargetBrand is the brand the run is about: it is the catalog search
	// query fallback and the fixed brand for every scraped record.
	TargetBrand string
}

// Pipeline consolidates the catalog and scrape record streams into the
// product store under one idempotency rule: at most one product row per
// (brand, title) pair, later sightings overwrite earlier ones.
type Pipeline struct {
	catalog     domain.CatalogSource
	scraper     domain.ScrapeSource
	store       domain.ProductStore
	engine      *canonical.Engine
	targetBrand string
	log         *logger.Logger
}

// NewPipeline creates a consolidation pipeline with its collaborators.
func NewPipeline(
	catalog domain.CatalogSource,
	scraper domain.ScrapeSource,
	store domain.ProductStore,
	engine *canonical.Engine,
	config PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		catalog:     catalog,
		scraper:     scraper,
		store:       store,
		engine:      engine,
		targetBrand: config.TargetBrand,
		log:         log.With("component", "pipeline"),
	}
}

// Run executes one batch consolidation: the catalog phase to completion,
// then the scrape phase. The phases are independent failure domains; a
// transport failure aborts its own phase only, and Run reports the failures
// of both so the caller can decide whether to export partial data.
func (p *Pipeline) Run(ctx context.Context) error {
	catalogErr := p.IngestCatalog(ctx, p.targetBrand)
	if catalogErr != nil {
		p.log.Error("catalog phase failed", "error", catalogErr)
	}

	scrapeErr := p.IngestScrape(ctx)
	if scrapeErr != nil {
		p.log.Error("scrape phase failed", "error", scrapeErr)
	}

	return errors.Join(catalogErr, scrapeErr)
}

// IngestCatalog drives the catalog adapter's stream to exhaustion for the
// given brand query. Records without ingredient text are skipped; malformed
// records are logged and skipped; a transport failure aborts the phase.
func (p *Pipeline) IngestCatalog(ctx context.Context, brandQuery string) error {
	p.log.Info("catalog ingestion started", "brand", brandQuery)

	// The stream lives no longer than the phase; cancelling on exit stops
	// any in-flight adapter work when the phase aborts early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := p.catalog.Stream(ctx, brandQuery)
	ingested := 0
	for {
		record, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, domain.ErrMalformedRecord) {
			p.log.Warn("skipping malformed catalog record", "error", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("catalog ingestion: %w", err)
		}

		if strings.TrimSpace(record.IngredientsText) == "" {
			p.log.Debug("skipping catalog record without ingredients", "name", record.NameHint)
			continue
		}

		brandName := record.BrandHint
		if brandName == "" {
			brandName = brandQuery
		}
		title := record.NameHint
		if title == "" {
			title = untitledProduct
		}

		candidate := domain.CandidateProduct{
			BrandName:            brandName,
			Title:                title,
			RawIngredients:       record.IngredientsText,
			CanonicalIngredients: p.engine.Canonicalise(record.IngredientsText),
			Barcode:              record.Barcode,
			Source:               domain.SourceCatalog,
		}
		if err := p.Upsert(ctx, candidate); err != nil {
			return fmt.Errorf("catalog ingestion: %w", err)
		}
		ingested++
	}

	p.log.Info("catalog ingestion complete", "brand", brandQuery, "products", ingested)
	return nil
}

// IngestScrape drives the scrape adapter's stream to exhaustion. Scraped
// records carry no barcode and are attributed to the configured target
// brand.
func (p *Pipeline) IngestScrape(ctx context.Context) error {
	p.log.Info("scrape ingestion started", "brand", p.targetBrand)

	// Cancel the stream's context on exit so the crawler's goroutine and
	// browser shut down even when the phase aborts mid-stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := p.scraper.Stream(ctx)
	ingested := 0
	for {
		record, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, domain.ErrMalformedRecord) {
			p.log.Warn("skipping malformed scraped record", "error", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("scrape ingestion: %w", err)
		}

		if strings.TrimSpace(record.IngredientsText) == "" {
			p.log.Debug("skipping scraped record without ingredients", "title", record.Title)
			continue
		}

		candidate := domain.CandidateProduct{
			BrandName:            p.targetBrand,
			Title:                record.Title,
			RawIngredients:       record.IngredientsText,
			CanonicalIngredients: p.engine.Canonicalise(record.IngredientsText),
			Source:               domain.SourceScraper,
		}
		if err := p.Upsert(ctx, candidate); err != nil {
			return fmt.Errorf("scrape ingestion: %w", err)
		}
		ingested++
	}

	p.log.Info("scrape ingestion complete", "products", ingested)
	return nil
}

// Upsert writes one candidate product: find-or-create the brand by name,
// find-or-create the product by (brand, title), then overwrite barcode, raw
// and canonical ingredients, and source. Calling it twice with identical
// arguments leaves exactly one row.
func (p *Pipeline) Upsert(ctx context.Context, candidate domain.CandidateProduct) error {
	if candidate.BrandName == "" || candidate.Title == "" {
		return fmt.Errorf("%w: brand=%q title=%q", domain.ErrInvalidRecord, candidate.BrandName, candidate.Title)
	}

	p.log.Debug("upserting product",
		"brand", candidate.BrandName,
		"title", candidate.Title,
		"barcode", candidate.Barcode,
		"source", candidate.Source,
	)

	brand, err := p.store.FindOrCreateBrand(ctx, candidate.BrandName)
	if err != nil {
		return err
	}
	product, err := p.store.FindOrCreateProduct(ctx, brand, candidate.Title)
	if err != nil {
		return err
	}

	product.Barcode = candidate.Barcode
	product.RawIngredients = candidate.RawIngredients
	product.CanonicalIngredients = candidate.CanonicalIngredients
	product.Source = candidate.Source
	return p.store.WriteProduct(ctx, product)
}

// Report returns the stored products for the target brand. A run that ends
// with zero products reports that distinctly via domain.ErrNoProducts
// rather than as an empty success.
func (p *Pipeline) Report(ctx context.Context) ([]domain.Product, error) {
	products, err := p.store.ProductsByBrand(ctx, p.targetBrand)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		p.log.Warn("no products stored for brand", "brand", p.targetBrand)
		return nil, fmt.Errorf("%w: %s", domain.ErrNoProducts, p.targetBrand)
	}
	return products, nil
}
