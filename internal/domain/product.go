package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Source records which adapter produced a stored product.
type Source string

const (
	SourceCatalog Source = "catalog"
	SourceScraper Source = "scraper"
)

// Brand is a persisted brand entity. Created on first sight of a new brand
// name, never deleted by the pipeline.
type Brand struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:80;uniqueIndex" json:"name"`
}

// Product is a persisted product entity. Identity for merge purposes is the
// (brand, title) pair, not the barcode: scraped records never carry one.
// Barcode uniqueness is best-effort only, since the scrape phase writes
// empty barcodes.
type Product struct {
	ID                   uint                        `gorm:"primaryKey" json:"id"`
	Barcode              string                      `gorm:"size:32;index" json:"barcode"`
	Title                string                      `gorm:"size:512;uniqueIndex:idx_product_identity" json:"title"`
	BrandID              uint                        `gorm:"uniqueIndex:idx_product_identity" json:"brandId"`
	Brand                Brand                       `gorm:"foreignKey:BrandID" json:"brand"`
	RawIngredients       string                      `gorm:"type:text" json:"rawIngredients"`
	CanonicalIngredients datatypes.JSONSlice[string] `json:"ingredients"`
	Source               Source                      `gorm:"size:120" json:"source"`
	FetchedAt            time.Time                   `json:"fetchedAt"`
}

// CatalogRecord is one raw product record from the remote catalog API.
type CatalogRecord struct {
	Barcode         string         `json:"barcode"`
	BrandHint       string         `json:"brand,omitempty"`
	NameHint        string         `json:"name,omitempty"`
	IngredientsText string         `json:"ingredientsText,omitempty"`
	NutrientLevels  map[string]any `json:"nutrientLevels,omitempty"`
}

// ScrapedRecord is one raw product record from the browser-driven crawl.
type ScrapedRecord struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	IngredientsText string `json:"ingredients,omitempty"`
}

// CandidateProduct is the common shape both record kinds are normalized into
// before they enter the consolidation pipeline.
type CandidateProduct struct {
	BrandName            string   `json:"brandName"`
	Title                string   `json:"title"`
	RawIngredients       string   `json:"rawIngredients"`
	CanonicalIngredients []string `json:"canonicalIngredients"`
	Barcode              string   `json:"barcode,omitempty"`
	Source               Source   `json:"source"`
}
