package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/pawfacts/backend/internal/canonical"
	"github.com/pawfacts/backend/internal/domain"
)

// fakeCatalogSource replays a scripted sequence of records and errors.
type fakeCatalogSource struct {
	items []catalogItem
}

type catalogItem struct {
	record *domain.CatalogRecord
	err    error
}

func (f *fakeCatalogSource) Stream(ctx context.Context, brandQuery string) domain.CatalogStream {
	return &fakeCatalogStream{items: f.items}
}

type fakeCatalogStream struct {
	items []catalogItem
	next  int
}

func (s *fakeCatalogStream) Next(ctx context.Context) (*domain.CatalogRecord, error) {
	if s.next >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.next]
	s.next++
	return item.record, item.err
}

// fakeScrapeSource replays a scripted sequence of scraped records and keeps
// the context its stream was started with.
type fakeScrapeSource struct {
	items     []scrapeItem
	streamCtx context.Context
}

type scrapeItem struct {
	record *domain.ScrapedRecord
	err    error
}

func (f *fakeScrapeSource) Stream(ctx context.Context) domain.ScrapeStream {
	f.streamCtx = ctx
	return &fakeScrapeStream{items: f.items}
}

type fakeScrapeStream struct {
	items []scrapeItem
	next  int
}

func (s *fakeScrapeStream) Next(ctx context.Context) (*domain.ScrapedRecord, error) {
	if s.next >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.next]
	s.next++
	return item.record, item.err
}

// fakeStore is an in-memory ProductStore keyed exactly like the real one.
type fakeStore struct {
	brands   map[string]*domain.Brand
	products map[string]*domain.Product
	writes   int
	nextID   uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		brands:   make(map[string]*domain.Brand),
		products: make(map[string]*domain.Product),
	}
}

func (f *fakeStore) FindOrCreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	if brand, ok := f.brands[name]; ok {
		return brand, nil
	}
	f.nextID++
	brand := &domain.Brand{ID: f.nextID, Name: name}
	f.brands[name] = brand
	return brand, nil
}

func (f *fakeStore) FindOrCreateProduct(ctx context.Context, brand *domain.Brand, title string) (*domain.Product, error) {
	key := fmt.Sprintf("%d|%s", brand.ID, title)
	if product, ok := f.products[key]; ok {
		copied := *product
		return &copied, nil
	}
	f.nextID++
	product := &domain.Product{ID: f.nextID, BrandID: brand.ID, Brand: *brand, Title: title}
	f.products[key] = product
	copied := *product
	return &copied, nil
}

func (f *fakeStore) WriteProduct(ctx context.Context, product *domain.Product) error {
	key := fmt.Sprintf("%d|%s", product.BrandID, product.Title)
	copied := *product
	f.products[key] = &copied
	f.writes++
	return nil
}

func (f *fakeStore) ProductsByBrand(ctx context.Context, brandName string) ([]domain.Product, error) {
	brand, ok := f.brands[brandName]
	if !ok {
		return nil, nil
	}
	var products []domain.Product
	for _, product := range f.products {
		if product.BrandID == brand.ID {
			products = append(products, *product)
		}
	}
	return products, nil
}

func newTestPipeline(catalog *fakeCatalogSource, scraper *fakeScrapeSource, store *fakeStore) *Pipeline {
	if catalog == nil {
		catalog = &fakeCatalogSource{}
	}
	if scraper == nil {
		scraper = &fakeScrapeSource{}
	}
	engine := canonical.NewEngine(canonical.DefaultDictionary(), nil)
	return NewPipeline(catalog, scraper, store, engine, PipelineConfig{TargetBrand: "Mjamjam"}, nil)
}

func TestIngestCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("end-to-end catalog record", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{record: &domain.CatalogRecord{
				Barcode:         "123",
				BrandHint:       "Mjamjam",
				NameHint:        "Chicken Pâté",
				IngredientsText: "Hühnerfleisch, Wasser",
			}},
		}}

		p := newTestPipeline(catalog, nil, store)
		if err := p.IngestCatalog(ctx, "Mjamjam"); err != nil {
			t.Fatalf("IngestCatalog() error = %v", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Fatalf("stored products = %d, want 1", len(products))
		}
		got := products[0]
		if got.Title != "Chicken Pâté" {
			t.Errorf("Title = %q, want %q", got.Title, "Chicken Pâté")
		}
		if got.Barcode != "123" {
			t.Errorf("Barcode = %q, want %q", got.Barcode, "123")
		}
		if got.Source != domain.SourceCatalog {
			t.Errorf("Source = %q, want %q", got.Source, domain.SourceCatalog)
		}
		want := []string{"chicken", "wasser"}
		if !reflect.DeepEqual([]string(got.CanonicalIngredients), want) {
			t.Errorf("CanonicalIngredients = %v, want %v", got.CanonicalIngredients, want)
		}
	})

	t.Run("skips records without ingredient text", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{record: &domain.CatalogRecord{Barcode: "1", NameHint: "No Ingredients"}},
			{record: &domain.CatalogRecord{Barcode: "2", NameHint: "Blank", IngredientsText: "   "}},
		}}

		p := newTestPipeline(catalog, nil, store)
		if err := p.IngestCatalog(ctx, "Mjamjam"); err != nil {
			t.Fatalf("IngestCatalog() error = %v", err)
		}
		if store.writes != 0 {
			t.Errorf("store writes = %d, want 0", store.writes)
		}
	})

	t.Run("falls back to query brand and placeholder title", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{record: &domain.CatalogRecord{Barcode: "9", IngredientsText: "Huhn"}},
		}}

		p := newTestPipeline(catalog, nil, store)
		if err := p.IngestCatalog(ctx, "Mjamjam"); err != nil {
			t.Fatalf("IngestCatalog() error = %v", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Fatalf("stored products = %d, want 1", len(products))
		}
		if products[0].Title != "N/A" {
			t.Errorf("Title = %q, want N/A", products[0].Title)
		}
	})

	t.Run("skips malformed records and continues", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{err: fmt.Errorf("%w: bad payload", domain.ErrMalformedRecord)},
			{record: &domain.CatalogRecord{Barcode: "1", NameHint: "Good", IngredientsText: "Huhn"}},
		}}

		p := newTestPipeline(catalog, nil, store)
		if err := p.IngestCatalog(ctx, "Mjamjam"); err != nil {
			t.Fatalf("IngestCatalog() error = %v", err)
		}
		if store.writes != 1 {
			t.Errorf("store writes = %d, want 1", store.writes)
		}
	})

	t.Run("transport failure aborts the phase", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{record: &domain.CatalogRecord{Barcode: "1", NameHint: "First", IngredientsText: "Huhn"}},
			{err: fmt.Errorf("%w: connection reset", domain.ErrAdapterTransport)},
			{record: &domain.CatalogRecord{Barcode: "2", NameHint: "Never Seen", IngredientsText: "Huhn"}},
		}}

		p := newTestPipeline(catalog, nil, store)
		err := p.IngestCatalog(ctx, "Mjamjam")
		if !errors.Is(err, domain.ErrAdapterTransport) {
			t.Fatalf("error = %v, want ErrAdapterTransport", err)
		}
		// The upsert committed before the failure stays in place
		if store.writes != 1 {
			t.Errorf("store writes = %d, want 1", store.writes)
		}
	})
}

func TestIngestScrape(t *testing.T) {
	ctx := context.Background()

	t.Run("attributes records to the target brand without barcode", func(t *testing.T) {
		store := newFakeStore()
		scraper := &fakeScrapeSource{items: []scrapeItem{
			{record: &domain.ScrapedRecord{URL: "u", Title: "Turkey Ragout", IngredientsText: "Truthahn, Wasser"}},
		}}

		p := newTestPipeline(nil, scraper, store)
		if err := p.IngestScrape(ctx); err != nil {
			t.Fatalf("IngestScrape() error = %v", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Fatalf("stored products = %d, want 1", len(products))
		}
		got := products[0]
		if got.Source != domain.SourceScraper {
			t.Errorf("Source = %q, want %q", got.Source, domain.SourceScraper)
		}
		if got.Barcode != "" {
			t.Errorf("Barcode = %q, want empty", got.Barcode)
		}
		want := []string{"turkey", "wasser"}
		if !reflect.DeepEqual([]string(got.CanonicalIngredients), want) {
			t.Errorf("CanonicalIngredients = %v, want %v", got.CanonicalIngredients, want)
		}
	})

	t.Run("cancels the stream context when the phase aborts", func(t *testing.T) {
		scraper := &fakeScrapeSource{items: []scrapeItem{
			{record: &domain.ScrapedRecord{URL: "u", Title: "First", IngredientsText: "Huhn"}},
			{err: fmt.Errorf("%w: browser crashed", domain.ErrAdapterTransport)},
		}}

		p := newTestPipeline(nil, scraper, newFakeStore())
		err := p.IngestScrape(context.Background())
		if !errors.Is(err, domain.ErrAdapterTransport) {
			t.Fatalf("error = %v, want ErrAdapterTransport", err)
		}

		select {
		case <-scraper.streamCtx.Done():
		default:
			t.Error("stream context still live after phase abort")
		}
	})

	t.Run("cancels the stream context after a clean run", func(t *testing.T) {
		scraper := &fakeScrapeSource{}
		p := newTestPipeline(nil, scraper, newFakeStore())
		if err := p.IngestScrape(context.Background()); err != nil {
			t.Fatalf("IngestScrape() error = %v", err)
		}
		select {
		case <-scraper.streamCtx.Done():
		default:
			t.Error("stream context still live after phase end")
		}
	})

	t.Run("skips scraped records without ingredients", func(t *testing.T) {
		store := newFakeStore()
		scraper := &fakeScrapeSource{items: []scrapeItem{
			{record: &domain.ScrapedRecord{URL: "u", Title: "Gap"}},
		}}

		p := newTestPipeline(nil, scraper, store)
		if err := p.IngestScrape(ctx); err != nil {
			t.Fatalf("IngestScrape() error = %v", err)
		}
		if store.writes != 0 {
			t.Errorf("store writes = %d, want 0", store.writes)
		}
	})
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent by (brand, title)", func(t *testing.T) {
		store := newFakeStore()
		p := newTestPipeline(nil, nil, store)

		candidate := domain.CandidateProduct{
			BrandName:            "Mjamjam",
			Title:                "Chicken Pâté",
			RawIngredients:       "Hühnerfleisch",
			CanonicalIngredients: []string{"chicken"},
			Barcode:              "123",
			Source:               domain.SourceCatalog,
		}
		if err := p.Upsert(ctx, candidate); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if err := p.Upsert(ctx, candidate); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Fatalf("stored products = %d, want 1", len(products))
		}
		if products[0].Barcode != "123" {
			t.Errorf("Barcode = %q, want 123", products[0].Barcode)
		}
	})

	t.Run("rejects candidates without identity", func(t *testing.T) {
		p := newTestPipeline(nil, nil, newFakeStore())

		err := p.Upsert(ctx, domain.CandidateProduct{Title: "No Brand"})
		if !errors.Is(err, domain.ErrInvalidRecord) {
			t.Errorf("error = %v, want ErrInvalidRecord", err)
		}
		err = p.Upsert(ctx, domain.CandidateProduct{BrandName: "No Title"})
		if !errors.Is(err, domain.ErrInvalidRecord) {
			t.Errorf("error = %v, want ErrInvalidRecord", err)
		}
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("scrape pass overwrites catalog row for same identity", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{record: &domain.CatalogRecord{
				Barcode:         "123",
				BrandHint:       "Mjamjam",
				NameHint:        "Chicken Pâté",
				IngredientsText: "Hühnerfleisch",
			}},
		}}
		scraper := &fakeScrapeSource{items: []scrapeItem{
			{record: &domain.ScrapedRecord{
				URL:             "https://shop/huhn",
				Title:           "Chicken Pâté",
				IngredientsText: "Hühnerfleisch, Wasser",
			}},
		}}

		p := newTestPipeline(catalog, scraper, store)
		if err := p.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Fatalf("stored products = %d, want 1 (merged)", len(products))
		}
		got := products[0]
		if got.Source != domain.SourceScraper {
			t.Errorf("Source = %q, want scraper (last write wins)", got.Source)
		}
		if got.Barcode != "" {
			t.Errorf("Barcode = %q, want empty (overwritten by scrape pass)", got.Barcode)
		}
	})

	t.Run("catalog failure does not stop the scrape phase", func(t *testing.T) {
		store := newFakeStore()
		catalog := &fakeCatalogSource{items: []catalogItem{
			{err: fmt.Errorf("%w: network down", domain.ErrAdapterTransport)},
		}}
		scraper := &fakeScrapeSource{items: []scrapeItem{
			{record: &domain.ScrapedRecord{URL: "u", Title: "Survivor", IngredientsText: "Huhn"}},
		}}

		p := newTestPipeline(catalog, scraper, store)
		err := p.Run(ctx)
		if !errors.Is(err, domain.ErrAdapterTransport) {
			t.Fatalf("Run() error = %v, want ErrAdapterTransport", err)
		}

		products, _ := store.ProductsByBrand(ctx, "Mjamjam")
		if len(products) != 1 {
			t.Errorf("stored products = %d, want 1 from scrape phase", len(products))
		}
	})
}

func TestReport(t *testing.T) {
	ctx := context.Background()

	t.Run("reports zero products distinctly", func(t *testing.T) {
		p := newTestPipeline(nil, nil, newFakeStore())

		_, err := p.Report(ctx)
		if !errors.Is(err, domain.ErrNoProducts) {
			t.Errorf("error = %v, want ErrNoProducts", err)
		}
	})

	t.Run("returns stored products for the target brand", func(t *testing.T) {
		store := newFakeStore()
		p := newTestPipeline(nil, nil, store)
		candidate := domain.CandidateProduct{
			BrandName: "Mjamjam",
			Title:     "Chicken Pâté",
			Source:    domain.SourceCatalog,
		}
		if err := p.Upsert(ctx, candidate); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		products, err := p.Report(ctx)
		if err != nil {
			t.Fatalf("Report() error = %v", err)
		}
		if len(products) != 1 {
			t.Errorf("products = %d, want 1", len(products))
		}
	})
}
