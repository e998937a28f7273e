package database

import (
	"fmt"
	"strings"

	"partsync/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Migrate creates or updates the schema for the full entity set, parents
// before children so foreign keys resolve.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.SemaBrand{},
		&models.SemaDataset{},
		&models.SemaYear{},
		&models.SemaMake{},
		&models.SemaModel{},
		&models.SemaSubmodel{},
		&models.SemaMakeYear{},
		&models.SemaBaseVehicle{},
		&models.SemaVehicle{},
		&models.SemaEngine{},
		&models.SemaCategory{},
		&models.SemaProduct{},
		&models.SemaPiesAttribute{},
		&models.PremierProduct{},
		&models.Vendor{},
		&models.ShopifyProduct{},
		&models.ShopifyVariant{},
		&models.ShopifyOption{},
		&models.ShopifyImage{},
		&models.ShopifyMetafield{},
		&models.ShopifyTag{},
		&models.ShopifyCollection{},
		&models.ProductCalculator{},
		&models.CollectionCalculator{},
		&models.Item{},
		&models.CategoryPath{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
