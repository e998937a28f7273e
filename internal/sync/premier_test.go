package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"partsync/internal/database"
	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/premier"

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

type fakePremierAPI struct {
	inventory map[string]premier.InventoryRecord
	pricing   map[string]premier.PricingRecord
	failWhen  func(chunk []string) error
}

func (f *fakePremierAPI) GetInventory(partNumbers []string) ([]premier.InventoryRecord, error) {
	if f.failWhen != nil {
		if err := f.failWhen(partNumbers); err != nil {
			return nil, err
		}
	}
	var out []premier.InventoryRecord
	for _, number := range partNumbers {
		if rec, ok := f.inventory[number]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakePremierAPI) GetPricing(partNumbers []string) ([]premier.PricingRecord, error) {
	if f.failWhen != nil {
		if err := f.failWhen(partNumbers); err != nil {
			return nil, err
		}
	}
	var out []premier.PricingRecord
	for _, number := range partNumbers {
		if rec, ok := f.pricing[number]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func seedPremierProducts(t *testing.T, db *gorm.DB, numbers ...string) {
	t.Helper()
	for _, number := range numbers {
		require.NoError(t, db.Create(&models.PremierProduct{
			PremierPartNumber: number,
			Manufacturer:      "ACME",
		}).Error)
	}
}

func flatInventory(number string, qty map[string]int) premier.InventoryRecord {
	rec := premier.InventoryRecord{ItemNumber: number}
	for code, n := range qty {
		rec.Inventories = append(rec.Inventories, premier.WarehouseInventory{
			WarehouseCode:     code,
			QuantityAvailable: n,
		})
	}
	return rec
}

func TestUpdateInventoryChunkFailureDoesNotBlockOtherChunks(t *testing.T) {
	db := testDB(t)
	seedPremierProducts(t, db, "P1", "P2", "P3", "P4", "P5")

	api := &fakePremierAPI{
		inventory: map[string]premier.InventoryRecord{
			"P1": flatInventory("P1", map[string]int{"AB01": 3}),
			"P2": flatInventory("P2", nil),
			"P3": flatInventory("P3", nil),
			"P4": flatInventory("P4", nil),
			"P5": flatInventory("P5", map[string]int{"TX02": 7}),
		},
		failWhen: func(chunk []string) error {
			for _, n := range chunk {
				if n == "P3" {
					return errors.New("gateway timeout")
				}
			}
			return nil
		},
	}

	updater := &PremierUpdater{Client: api, DB: db, ChunkSize: 2, Logger: logger.New("error")}
	msgs := updater.UpdateInventory(context.Background())

	require.Len(t, msgs, 4)
	assert.Equal(t, "Success: Premier Product P1 :: ACME updated, inventory_ab: 0 -> 3", msgs[0])
	assert.Equal(t, "Info: Premier Product P2 :: ACME, already up-to-date", msgs[1])
	assert.Equal(t, "Chunk Error: P3,P4, gateway timeout", msgs[2])
	assert.Equal(t, "Success: Premier Product P5 :: ACME updated, inventory_tx: 0 -> 7", msgs[3])

	// The chunks around the failed one were persisted.
	var p1, p3, p5 models.PremierProduct
	require.NoError(t, db.First(&p1, "premier_part_number = ?", "P1").Error)
	require.NoError(t, db.First(&p3, "premier_part_number = ?", "P3").Error)
	require.NoError(t, db.First(&p5, "premier_part_number = ?", "P5").Error)
	assert.Equal(t, 3, p1.InventoryAB)
	assert.Equal(t, 0, p3.InventoryAB)
	assert.Equal(t, 7, p5.InventoryTX)
}

func TestUpdateInventoryClearsWarehousesAbsentFromResponse(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.PremierProduct{
		PremierPartNumber: "P1",
		Manufacturer:      "ACME",
		InventoryAB:       5,
		InventoryTX:       2,
	}).Error)

	api := &fakePremierAPI{inventory: map[string]premier.InventoryRecord{
		"P1": flatInventory("P1", map[string]int{"TX02": 7}),
	}}

	updater := &PremierUpdater{Client: api, DB: db, Logger: logger.New("error")}
	msgs := updater.UpdateInventory(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: Premier Product P1 :: ACME updated, inventory_ab: 5 -> 0, inventory_tx: 2 -> 7", msgs[0])
}

func TestUpdateInventoryRejectsUnknownWarehouseCode(t *testing.T) {
	db := testDB(t)
	seedPremierProducts(t, db, "P1")

	api := &fakePremierAPI{inventory: map[string]premier.InventoryRecord{
		"P1": flatInventory("P1", map[string]int{"ZZ09": 4}),
	}}

	updater := &PremierUpdater{Client: api, DB: db, Logger: logger.New("error")}
	msgs := updater.UpdateInventory(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, `Error: Premier Product P1, unknown warehouse code "ZZ09"`, msgs[0])

	// Nothing was persisted for the rejected record.
	var p1 models.PremierProduct
	require.NoError(t, db.First(&p1, "premier_part_number = ?", "P1").Error)
	assert.Equal(t, 0, p1.InventoryAB)
}

func TestUpdateInventoryReportsMissingRecords(t *testing.T) {
	db := testDB(t)
	seedPremierProducts(t, db, "P1")

	api := &fakePremierAPI{inventory: map[string]premier.InventoryRecord{}}

	updater := &PremierUpdater{Client: api, DB: db, Logger: logger.New("error")}
	msgs := updater.UpdateInventory(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: Premier Product P1, no inventory data returned", msgs[0])
}

func TestUpdatePricingRoundsAndNamesDeltas(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.PremierProduct{
		PremierPartNumber: "P1",
		Manufacturer:      "ACME",
		CostCAD:           decimal.RequireFromString("10.00"),
	}).Error)

	api := &fakePremierAPI{pricing: map[string]premier.PricingRecord{
		"P1": {
			ItemNumber: "P1",
			Pricing: []premier.CurrencyPrice{
				{Currency: "CAD", Cost: 12.456},
				{Currency: "USD", Jobber: 99.99},
			},
		},
	}}

	updater := &PremierUpdater{Client: api, DB: db, Logger: logger.New("error")}
	msgs := updater.UpdatePricing(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t,
		"Success: Premier Product P1 :: ACME updated, cost_cad: 10.00 -> 12.46, jobber_usd: 0.00 -> 99.99",
		msgs[0])

	var p1 models.PremierProduct
	require.NoError(t, db.First(&p1, "premier_part_number = ?", "P1").Error)
	assert.Equal(t, "12.46", p1.CostCAD.StringFixed(2))
	assert.Equal(t, "99.99", p1.JobberUSD.StringFixed(2))

	// A second pass with identical data reports up-to-date.
	msgs = updater.UpdatePricing(context.Background())
	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: Premier Product P1 :: ACME, already up-to-date", msgs[0])
}

func TestChunkify(t *testing.T) {
	chunks := chunkify([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Nil(t, chunkify(nil, 2))
}
