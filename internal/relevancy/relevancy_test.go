package relevancy

import (
	"fmt"
	"testing"

	"partsync/internal/database"
	"partsync/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestBrandRelevancy(t *testing.T) {
	calc := New(nil)

	ok, errs := calc.Brand(&models.SemaBrand{IsAuthorized: true})
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = calc.Brand(&models.SemaBrand{IsAuthorized: false})
	assert.False(t, ok)
	assert.Equal(t, []string{"brand is unauthorized"}, errs)
}

func TestDatasetRequiresRelevantBrand(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaBrand{
		BrandID: "B1", Name: "ACME", IsAuthorized: true, IsRelevant: false,
	}).Error)

	calc := New(db)
	ok, errs := calc.Dataset(&models.SemaDataset{DatasetID: 1, BrandID: "B1", IsAuthorized: true})
	assert.False(t, ok)
	assert.Contains(t, errs, "brand is irrelevant")

	require.NoError(t, db.Model(&models.SemaBrand{}).
		Where("brand_id = ?", "B1").Update("is_relevant", true).Error)

	ok, errs = calc.Dataset(&models.SemaDataset{DatasetID: 1, BrandID: "B1", IsAuthorized: true})
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestVehicleRelevancePropagatesFromBaseVehicle(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaBaseVehicle{
		BaseVehicleID: 10, IsAuthorized: true, IsRelevant: false,
	}).Error)

	calc := New(db)

	// An authorized vehicle on an irrelevant base vehicle can never be
	// relevant.
	ok, errs := calc.Vehicle(&models.SemaVehicle{VehicleID: 1, BaseVehicleID: 10, IsAuthorized: true})
	assert.False(t, ok)
	assert.Equal(t, []string{"base vehicle is irrelevant"}, errs)

	require.NoError(t, db.Model(&models.SemaBaseVehicle{}).
		Where("base_vehicle_id = ?", 10).Update("is_relevant", true).Error)

	ok, errs = calc.Vehicle(&models.SemaVehicle{VehicleID: 1, BaseVehicleID: 10, IsAuthorized: true})
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func seedCompleteSemaProduct(t *testing.T, db *gorm.DB) *models.SemaProduct {
	t.Helper()

	require.NoError(t, db.Create(&models.SemaDataset{
		DatasetID: 100, Name: "DS", IsAuthorized: true, IsRelevant: true,
	}).Error)

	vehicle := models.SemaVehicle{VehicleID: 1, IsAuthorized: true, IsRelevant: true}
	require.NoError(t, db.Create(&vehicle).Error)

	product := models.SemaProduct{
		ProductID: 10, PartNumber: "PN1", DatasetID: 100,
		HTML: "<p>specs</p>", IsAuthorized: true,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Model(&product).Association("Vehicles").Append(&vehicle))

	for i := 1; i <= 3; i++ {
		category := models.SemaCategory{CategoryID: i, Name: fmt.Sprintf("C%d", i), IsAuthorized: true}
		require.NoError(t, db.Create(&category).Error)
		require.NoError(t, db.Model(&product).Association("Categories").Append(&category))
	}

	require.NoError(t, db.Create(&models.SemaPiesAttribute{
		ProductID: 10, Segment: "C10_DES_EN", PiesName: "Description", Value: "A part",
	}).Error)
	require.NoError(t, db.Create(&models.SemaPiesAttribute{
		ProductID: 10, Segment: "C50_ASSET", PiesName: "PrimaryImageURL", Value: "http://img/a.jpg",
	}).Error)

	return &product
}

func TestSemaProductComplete(t *testing.T) {
	db := testDB(t)
	product := seedCompleteSemaProduct(t, db)

	ok, errs := New(db).SemaProduct(product)
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestSemaProductDiagnosticsListEveryGap(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaDataset{
		DatasetID: 100, Name: "DS", IsAuthorized: true, IsRelevant: true,
	}).Error)
	product := models.SemaProduct{
		ProductID: 10, PartNumber: "PN1", DatasetID: 100, IsAuthorized: true,
	}
	require.NoError(t, db.Create(&product).Error)

	ok, errs := New(db).SemaProduct(&product)
	assert.False(t, ok)
	assert.Contains(t, errs, "no relevant vehicles")
	assert.Contains(t, errs, "no product html")
	assert.Contains(t, errs, "0 categories, need 3")
	assert.Contains(t, errs, "no description attributes")
	assert.Contains(t, errs, "no digital asset attributes")
}

func TestSemaProductFallsBackToDatasetVehicles(t *testing.T) {
	db := testDB(t)
	product := seedCompleteSemaProduct(t, db)

	// Detach the product's own fitment and attach the vehicle to the
	// dataset instead.
	require.NoError(t, db.Exec("DELETE FROM sema_product_vehicles").Error)
	var dataset models.SemaDataset
	require.NoError(t, db.First(&dataset, "dataset_id = ?", 100).Error)
	var vehicle models.SemaVehicle
	require.NoError(t, db.First(&vehicle, "vehicle_id = ?", 1).Error)
	require.NoError(t, db.Model(&dataset).Association("Vehicles").Append(&vehicle))

	ok, errs := New(db).SemaProduct(product)
	assert.True(t, ok, "%v", errs)
}

func TestPremierProductRules(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Vendor{
		PremierManufacturer: "ACME", BrandID: "B1", Slug: "acme",
	}).Error)

	calc := New(db)

	complete := models.PremierProduct{
		PremierPartNumber: "P1",
		Manufacturer:      "ACME",
		InventoryAB:       4,
		CostCAD:           decimal.RequireFromString("19.99"),
		PrimaryImage:      "http://img/p1.jpg",
	}
	ok, errs := calc.PremierProduct(&complete)
	assert.True(t, ok)
	assert.Empty(t, errs)

	empty := models.PremierProduct{PremierPartNumber: "P2", Manufacturer: "NOBODY"}
	ok, errs = calc.PremierProduct(&empty)
	assert.False(t, ok)
	assert.Contains(t, errs, `no vendor for manufacturer "NOBODY"`)
	assert.Contains(t, errs, "no stock in primary warehouse")
	assert.Contains(t, errs, "no CAD cost")
	assert.Contains(t, errs, "no primary image")
}

func TestItemRequiresBothSides(t *testing.T) {
	db := testDB(t)

	calc := New(db)
	ok, errs := calc.Item(&models.Item{})
	assert.False(t, ok)
	assert.Contains(t, errs, "no premier product linked")
	assert.Contains(t, errs, "no sema product linked")
}

func TestItemRelevantWhenBothSidesRelevant(t *testing.T) {
	db := testDB(t)
	seedCompleteSemaProduct(t, db)
	require.NoError(t, db.Create(&models.Vendor{
		PremierManufacturer: "ACME", BrandID: "B1", Slug: "acme",
	}).Error)
	require.NoError(t, db.Create(&models.PremierProduct{
		PremierPartNumber: "P1",
		Manufacturer:      "ACME",
		InventoryAB:       4,
		CostCAD:           decimal.RequireFromString("19.99"),
		PrimaryImage:      "http://img/p1.jpg",
	}).Error)

	premierID := "P1"
	semaID := 10
	ok, errs := New(db).Item(&models.Item{PremierProductID: &premierID, SemaProductID: &semaID})
	assert.True(t, ok, "%v", errs)
}
