package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/platform/logger"
)

// Writer dumps the stored products for a brand into report files.
type Writer struct {
	dir string
	log *logger.Logger
}

// NewWriter creates a report writer targeting the given output directory.
func NewWriter(dir string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Writer{dir: dir, log: log.With("component", "export")}
}

// row is one exported product record.
type row struct {
	Title          string   `json:"title"`
	RawIngredients string   `json:"raw_ingredients"`
	Ingredients    []string `json:"ingredients"`
	Barcode        string   `json:"barcode"`
	Source         string   `json:"source"`
}

var reportTemplate = template.Must(template.New("report").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Brand}} products</title></head>
<body>
<h1>{{.Brand}} products</h1>
<table border="1">
<tr><th>title</th><th>raw_ingredients</th><th>ingredients</th><th>barcode</th><th>source</th></tr>
{{range .Rows}}<tr><td>{{.Title}}</td><td>{{.RawIngredients}}</td><td>{{join .Ingredients "; "}}</td><td>{{.Barcode}}</td><td>{{.Source}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// Write exports the products as <brand>_products.csv, <brand>_products.json
// and <brand>_products.html and returns the written paths. Callers are
// expected to have handled the zero-product case already; Write refuses an
// empty slice.
func (w *Writer) Write(brand string, products []domain.Product) ([]string, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoProducts, brand)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	rows := make([]row, 0, len(products))
	for _, p := range products {
		rows = append(rows, row{
			Title:          p.Title,
			RawIngredients: p.RawIngredients,
			Ingredients:    p.CanonicalIngredients,
			Barcode:        p.Barcode,
			Source:         string(p.Source),
		})
	}

	csvPath := filepath.Join(w.dir, fmt.Sprintf("%s_products.csv", brand))
	if err := w.writeCSV(csvPath, rows); err != nil {
		return nil, err
	}

	jsonPath := filepath.Join(w.dir, fmt.Sprintf("%s_products.json", brand))
	if err := w.writeJSON(jsonPath, rows); err != nil {
		return nil, err
	}

	htmlPath := filepath.Join(w.dir, fmt.Sprintf("%s_products.html", brand))
	if err := w.writeHTML(htmlPath, brand, rows); err != nil {
		return nil, err
	}

	w.log.Info("report exported", "brand", brand, "products", len(rows), "csv", csvPath, "json", jsonPath, "html", htmlPath)
	return []string{csvPath, jsonPath, htmlPath}, nil
}

func (w *Writer) writeCSV(path string, rows []row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"title", "raw_ingredients", "ingredients", "barcode", "source"}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, r := range rows {
		record := []string{
			r.Title,
			r.RawIngredients,
			strings.Join(r.Ingredients, "; "),
			r.Barcode,
			r.Source,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeJSON(path string, rows []row) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeHTML(path, brand string, rows []row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	data := struct {
		Brand string
		Rows  []row
	}{Brand: brand, Rows: rows}
	if err := reportTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
