package main

import (
	"fmt"
	"log"

	"github.com/pawfacts/backend/config"
	httpDelivery "github.com/pawfacts/backend/internal/delivery/http"
	"github.com/pawfacts/backend/internal/infrastructure/store"
	"github.com/pawfacts/backend/internal/platform/logger"
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

	logg.Info("starting report API",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
	)

	// Product store
	productStore, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logg)
	if err != nil {
		logg.Fatal("product store unavailable", "error", err)
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(productStore)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logg.Info("report API listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		logg.Fatal("server stopped", "error", err)
	}
}
