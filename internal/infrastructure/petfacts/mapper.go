package petfacts

import (
	"strings"

	"github.com/pawfacts/backend/internal/domain"
)

// searchProduct mirrors one product object in the catalog search payload
type searchProduct struct {
	Code            string         `json:"code"`
	Brands          string         `json:"brands"`
	GenericName     string         `json:"generic_name"`
	ProductName     string         `json:"product_name"`
	IngredientsText string         `json:"ingredients_text"`
	NutrientLevels  map[string]any `json:"nutrient_levels"`
}

// toRecord converts a catalog API product to the domain record shape.
// The brands field is a comma-separated list; the first entry is the brand
// hint. The generic name is preferred over the marketing product name.
func (p searchProduct) toRecord() domain.CatalogRecord {
	return domain.CatalogRecord{
		Barcode:         p.Code,
		BrandHint:       firstBrand(p.Brands),
		NameHint:        firstNonEmpty(p.GenericName, p.ProductName),
		IngredientsText: p.IngredientsText,
		NutrientLevels:  p.NutrientLevels,
	}
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
