package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pawfacts/backend/internal/domain"
	"github.com/pawfacts/backend/internal/platform/logger"
)

// Store is the gorm-backed product store. Brand and product rows are created
// lazily and only ever updated in place; the pipeline never deletes.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the configured database, migrates the schema, and
// returns a ready store.
func Open(driver, dsn string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", domain.ErrStoreUnavailable, driver)
	}

	log.Info("connecting to product store", "driver", driver)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return New(db, log)
}

// New wraps an existing gorm connection and migrates the schema. Used
// directly by tests.
func New(db *gorm.DB, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if err := db.AutoMigrate(&domain.Brand{}, &domain.Product{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{db: db, log: log.With("component", "store")}, nil
}

// FindOrCreateBrand looks a brand up by exact name, creating it on first
// sight.
func (s *Store) FindOrCreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	var brand domain.Brand
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&brand).Error
	if err == nil {
		return &brand, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find brand %q: %w", name, err)
	}

	s.log.Info("creating new brand", "brand", name)
	brand = domain.Brand{Name: name}
	if err := s.db.WithContext(ctx).Create(&brand).Error; err != nil {
		return nil, fmt.Errorf("create brand %q: %w", name, err)
	}
	return &brand, nil
}

// FindOrCreateProduct looks a product up by exact (brand, title), creating
// an empty row on first sight.
func (s *Store) FindOrCreateProduct(ctx context.Context, brand *domain.Brand, title string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.WithContext(ctx).
		Where("brand_id = ? AND title = ?", brand.ID, title).
		First(&product).Error
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find product %q: %w", title, err)
	}

	s.log.Info("creating new product", "title", title, "brand", brand.Name)
	product = domain.Product{BrandID: brand.ID, Title: title}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("create product %q: %w", title, err)
	}
	return &product, nil
}

// WriteProduct persists the product's current fields, stamping FetchedAt.
func (s *Store) WriteProduct(ctx context.Context, product *domain.Product) error {
	product.FetchedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		return fmt.Errorf("write product %q: %w", product.Title, err)
	}
	return nil
}

// ProductsByBrand returns every stored product for the named brand.
func (s *Store) ProductsByBrand(ctx context.Context, brandName string) ([]domain.Product, error) {
	var products []domain.Product
	err := s.db.WithContext(ctx).
		Joins("JOIN brands ON brands.id = products.brand_id").
		Where("brands.name = ?", brandName).
		Preload("Brand").
		Order("products.id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("query products for brand %q: %w", brandName, err)
	}
	return products, nil
}
