package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/pawfacts/backend/config"
	"github.com/pawfacts/backend/internal/canonical"
	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/infrastructure/export"
	"github.com/pawfacts/backend/internal/infrastructure/petfacts"
	"github.com/pawfacts/backend/internal/infrastructure/scrape"
	"github.com/pawfacts/backend/internal/infrastructure/store"
	"github.com/pawfacts/backend/internal/platform/logger"
	"github.com/pawfacts/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	logg.Info("starting consolidation run",
		"brand", cfg.Pipeline.Brand,
		"catalog", cfg.Catalog.BaseURL,
		"shop", cfg.Scrape.BaseURL,
	)

	// Product store
	productStore, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logg)
	if err != nil {
		logg.Fatal("product store unavailable", "error", err)
	}

	// Source adapters
	catalog := petfacts.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.PageSize, cfg.Catalog.Timeout, logg)
	crawler := scrape.NewCrawler(cfg.Scrape.BaseURL, cfg.Scrape.Sections, cfg.Scrape.Headless, cfg.Scrape.Timeout, logg)

	// Consolidation pipeline
	engine := canonical.NewEngine(canonical.DefaultDictionary(), logg)
	pipeline := usecase.NewPipeline(catalog, crawler, productStore, engine, usecase.PipelineConfig{
		TargetBrand: cfg.Pipeline.Brand,
	}, logg)

	ctx := context.Background()

	// A failed phase aborts only itself; the other phase's upserts stand,
	// so a partial run still gets reported and exported.
	if err := pipeline.Run(ctx); err != nil {
		logg.Warn("run finished with phase failures", "error", err)
	}

	products, err := pipeline.Report(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoProducts) {
			fmt.Printf("No products found for brand: %s\n", cfg.Pipeline.Brand)
			os.Exit(1)
		}
		logg.Fatal("report failed", "error", err)
	}

	writer := export.NewWriter(cfg.Export.Dir, logg)
	paths, err := writer.Write(cfg.Pipeline.Brand, products)
	if err != nil {
		logg.Fatal("export failed", "error", err)
	}

	fmt.Println("✓ pipeline finished")
	fmt.Println("Results exported to:")
	for _, path := range paths {
		fmt.Printf("- %s\n", path)
	}
}
