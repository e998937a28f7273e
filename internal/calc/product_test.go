package calc

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

func TestParseMarkup(t *testing.T) {
	for _, valid := range []string{"0.00", "0.05", "0.20", "0.40"} {
		_, err := ParseMarkup(valid)
		assert.NoError(t, err, valid)
	}

	for _, invalid := range []string{"0.07", "-0.05", "0.45", "abc", "0.125"} {
		_, err := ParseMarkup(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestValidateChoice(t *testing.T) {
	assert.NoError(t, ValidateChoice("title", SourceSemaDescriptionShort))
	assert.NoError(t, ValidateChoice("price_base", SourcePremierMAPUSD))
	assert.NoError(t, ValidateChoice("price_markup", "0.15"))

	assert.EqualError(t, ValidateChoice("title", "premier_upc"),
		`invalid choice "premier_upc" for field title`)
	assert.EqualError(t, ValidateChoice("bogus", SourceCustom),
		`unknown calculator field "bogus"`)
	assert.Error(t, ValidateChoice("price_markup", "0.11"))
}

func TestValidateTagChoice(t *testing.T) {
	assert.NoError(t, ValidateTagChoice(TagSourceVendor))
	assert.NoError(t, ValidateTagChoice(TagSourceCollection))
	assert.NoError(t, ValidateTagChoice("custom_tag:ships-free"))

	assert.Error(t, ValidateTagChoice("custom_tag:"))
	assert.Error(t, ValidateTagChoice("vendor"))
}

func TestPriceAppliesMarkupToBase(t *testing.T) {
	pc := &ProductCalc{
		Product: &models.ShopifyProduct{},
		Settings: &models.ProductCalculator{
			PriceBaseChoice:   SourcePremierCostCAD,
			PriceMarkupChoice: "0.20",
		},
		Premier: &models.PremierProduct{
			CostCAD: decimal.RequireFromString("100.00"),
		},
	}

	f := pc.Price()
	require.NotNil(t, f.Result)
	assert.Equal(t, "120.00", *f.Result)
	assert.False(t, f.Match())
}

func TestPriceWithoutBaseHasNoOpinion(t *testing.T) {
	pc := &ProductCalc{
		Product: &models.ShopifyProduct{},
		Settings: &models.ProductCalculator{
			PriceBaseChoice:   SourcePremierCostCAD,
			PriceMarkupChoice: "0.20",
		},
	}

	// No linked pricing record at all.
	f := pc.Price()
	assert.Nil(t, f.Result)
	assert.True(t, f.Match())

	// A zero base is treated the same as missing data.
	pc.Premier = &models.PremierProduct{}
	f = pc.Price()
	assert.Nil(t, f.Result)
	assert.True(t, f.Match())
}

func TestTitleComputesFromSelectedSource(t *testing.T) {
	pc := &ProductCalc{
		Product:  &models.ShopifyProduct{Title: "old"},
		Settings: &models.ProductCalculator{TitleChoice: SourceSemaDescriptionShort},
		Sema: &models.SemaProduct{
			PiesAttributes: []models.SemaPiesAttribute{
				{Segment: "C10_DES_EN", Value: "Cold Air Intake"},
				{Segment: "C10_EXT_EN", Value: "A much longer description"},
			},
		},
	}

	f := pc.Title()
	require.NotNil(t, f.Result)
	assert.Equal(t, "Cold Air Intake", *f.Result)
	assert.False(t, f.Match())

	pc.Settings.TitleChoice = SourceCustom
	pc.Settings.TitleCustom = "Hand Written"
	f = pc.Title()
	require.NotNil(t, f.Result)
	assert.Equal(t, "Hand Written", *f.Result)
}

func TestTagsUnionIsSortedAndDeduped(t *testing.T) {
	pc := &ProductCalc{
		Product: &models.ShopifyProduct{},
		Settings: &models.ProductCalculator{
			TagsChoices: []string{
				TagSourceVendor,
				"custom_tag:zed",
				"custom_tag:acme",
			},
		},
		Vendor: &models.Vendor{Slug: "acme"},
	}

	assert.Equal(t, []string{"acme", "zed"}, pc.Tags())
}

func TestImagesFilterAssets(t *testing.T) {
	pc := &ProductCalc{
		Product:  &models.ShopifyProduct{},
		Settings: &models.ProductCalculator{ImagesChoice: SourceSemaDigitalAssets},
		Sema: &models.SemaProduct{
			PiesAttributes: []models.SemaPiesAttribute{
				{Segment: "C50", PiesName: "PrimaryImageURL", Value: "http://cdn/part.jpg"},
				{Segment: "C50", PiesName: "InstallSheetURL", Value: "http://cdn/install.PDF"},
				{Segment: "C50", PiesName: "BrandImageURL", Value: "http://cdn/brand-Logo.png"},
				{Segment: "C50", PiesName: "AssetType", Value: "http://cdn/not-an-asset.jpg"},
			},
		},
	}

	assert.Equal(t, []string{"http://cdn/part.jpg"}, pc.Images())
}

func TestMetafieldsComputeSelectedSlots(t *testing.T) {
	pc := &ProductCalc{
		Product: &models.ShopifyProduct{},
		Settings: &models.ProductCalculator{
			MetafieldsChoices: []string{
				MetafieldSourceDescriptionExtended,
				MetafieldSourceDimensions,
			},
		},
		Premier: &models.PremierProduct{
			Length: decimal.RequireFromString("10.5"),
			Width:  decimal.RequireFromString("4"),
			Height: decimal.RequireFromString("3.25"),
		},
		Sema: &models.SemaProduct{
			PiesAttributes: []models.SemaPiesAttribute{
				{Segment: "C10_EXT_EN", Value: "Extended copy"},
			},
		},
	}

	out := pc.Metafields()
	assert.Equal(t, "Extended copy", out["product.description_extended"])
	assert.Equal(t, "10.50 x 4.00 x 3.25", out["shipping.dimensions"])
}

func TestApplyMetafieldsInSlotOrder(t *testing.T) {
	db := testDB(t)
	product := models.ShopifyProduct{}
	require.NoError(t, db.Create(&product).Error)

	pc := &ProductCalc{
		DB:      db,
		Product: &product,
		Settings: &models.ProductCalculator{
			MetafieldsChoices: []string{
				MetafieldSourceDimensions,
				MetafieldSourceDescriptionExtended,
			},
		},
		Premier: &models.PremierProduct{
			Length: decimal.RequireFromString("10.5"),
			Width:  decimal.RequireFromString("4"),
			Height: decimal.RequireFromString("3.25"),
		},
		Sema: &models.SemaProduct{
			PiesAttributes: []models.SemaPiesAttribute{
				{Segment: "C10_EXT_EN", Value: "Extended copy"},
			},
		},
	}

	// Slot order in the changes is stable regardless of choice order.
	changes, err := pc.applyMetafields()
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "metafield product.description_extended", changes[0].Field)
	assert.Equal(t, "metafield shipping.dimensions", changes[1].Field)

	changes, err = pc.applyMetafields()
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestLoadProductCreatesCalculatorWithDefaults(t *testing.T) {
	db := testDB(t)
	product := models.ShopifyProduct{Title: "existing"}
	require.NoError(t, db.Create(&product).Error)

	pc, err := LoadProduct(db, product.ID)
	require.NoError(t, err)

	assert.Equal(t, SourceSemaDescriptionShort, pc.Settings.TitleChoice)
	assert.Equal(t, SourceVendorSlug, pc.Settings.VendorChoice)
	assert.Equal(t, SourcePremierCostCAD, pc.Settings.PriceBaseChoice)
	assert.Equal(t, "0.20", pc.Settings.PriceMarkupChoice)

	// Loading again reuses the stored calculator row.
	again, err := LoadProduct(db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, pc.Settings.ID, again.Settings.ID)
}

func TestApplyWritesNothingWithoutOpinions(t *testing.T) {
	db := testDB(t)
	product := models.ShopifyProduct{Title: "keep me", Vendor: "keep-vendor"}
	require.NoError(t, db.Create(&product).Error)

	pc, err := LoadProduct(db, product.ID)
	require.NoError(t, err)

	// No item linkage, so every field computes to no opinion.
	changes, err := pc.Apply()
	require.NoError(t, err)
	assert.Empty(t, changes)

	var reloaded models.ShopifyProduct
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, "keep me", reloaded.Title)
	assert.Equal(t, "keep-vendor", reloaded.Vendor)
}

func TestApplyWritesComputedFields(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.Create(&models.Vendor{
		PremierManufacturer: "ACME", BrandID: "B1", Slug: "acme",
	}).Error)
	require.NoError(t, db.Create(&models.PremierProduct{
		PremierPartNumber: "P1",
		Manufacturer:      "ACME",
		UPC:               "012345678905",
		CostCAD:           decimal.RequireFromString("100.00"),
	}).Error)

	sema := models.SemaProduct{ProductID: 10, PartNumber: "PN1"}
	require.NoError(t, db.Create(&sema).Error)
	require.NoError(t, db.Create(&models.SemaPiesAttribute{
		ProductID: 10, Segment: "C10_DES_EN", PiesName: "Description", Value: "Cold Air Intake",
	}).Error)

	product := models.ShopifyProduct{}
	require.NoError(t, db.Create(&product).Error)

	premierID := "P1"
	semaID := 10
	require.NoError(t, db.Create(&models.Item{
		PremierProductID: &premierID,
		SemaProductID:    &semaID,
		ShopifyProductID: &product.ID,
	}).Error)

	pc, err := LoadProduct(db, product.ID)
	require.NoError(t, err)

	changes, err := pc.Apply()
	require.NoError(t, err)
	assert.NotEmpty(t, changes)

	var reloaded models.ShopifyProduct
	require.NoError(t, db.Preload("Variants").First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, "Cold Air Intake", reloaded.Title)
	assert.Equal(t, "acme", reloaded.Vendor)
	require.Len(t, reloaded.Variants, 1)
	assert.Equal(t, "120.00", reloaded.Variants[0].Price.StringFixed(2))
	assert.Equal(t, "P1", reloaded.Variants[0].SKU)
	assert.Equal(t, "012345678905", reloaded.Variants[0].Barcode)

	// Re-applying with unchanged inputs is a no-op.
	pc, err = LoadProduct(db, product.ID)
	require.NoError(t, err)
	changes, err = pc.Apply()
	require.NoError(t, err)
	assert.Empty(t, changes)
}
