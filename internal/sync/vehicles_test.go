package sync

import (
	"context"
	"testing"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/sema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeFitmentAPI struct {
	byProduct map[int][]sema.PartVehicles
	byBrand   map[string][]sema.BrandVehicle
}

func (f *fakeFitmentAPI) GetVehiclesByProduct(brandID string, datasetID int, partNumbers []string) ([]sema.PartVehicles, error) {
	return f.byProduct[datasetID], nil
}

func (f *fakeFitmentAPI) GetVehiclesByBrand(brandIDs []string, datasetIDs []int) ([]sema.BrandVehicle, error) {
	var out []sema.BrandVehicle
	for _, id := range brandIDs {
		out = append(out, f.byBrand[id]...)
	}
	return out, nil
}

func newTestLinker(db *gorm.DB, client FitmentAPI) *VehicleLinker {
	return &VehicleLinker{Client: client, DB: db, Logger: logger.New("error")}
}

func TestResolveOrSynthesizeBuildsShadowChain(t *testing.T) {
	db := testDB(t)
	linker := newTestLinker(db, nil)

	named := sema.VehicleByNames{Year: 2018, MakeName: "Honda", ModelName: "Civic", SubmodelName: "Si"}
	vehicle, err := linker.resolveOrSynthesize(named)
	require.NoError(t, err)

	// Every synthesized link carries a negative surrogate id and stays
	// unauthorized until the upstream export confirms it.
	assert.Equal(t, -1, vehicle.VehicleID)
	assert.False(t, vehicle.IsAuthorized)

	var mk models.SemaMake
	require.NoError(t, db.First(&mk, "name = ?", "Honda").Error)
	assert.Equal(t, -1, mk.MakeID)
	assert.False(t, mk.IsAuthorized)

	var model models.SemaModel
	require.NoError(t, db.First(&model, "name = ?", "Civic").Error)
	assert.Equal(t, -1, model.ModelID)

	var baseVehicle models.SemaBaseVehicle
	require.NoError(t, db.First(&baseVehicle, "base_vehicle_id = ?", -1).Error)
	assert.Equal(t, model.ModelID, baseVehicle.ModelID)

	// Resolving the same names again reuses the chain.
	again, err := linker.resolveOrSynthesize(named)
	require.NoError(t, err)
	assert.Equal(t, vehicle.VehicleID, again.VehicleID)

	var count int64
	require.NoError(t, db.Model(&models.SemaVehicle{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveOrSynthesizeReusesExistingChain(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaYear{Year: 2020, IsAuthorized: true}).Error)
	require.NoError(t, db.Create(&models.SemaMake{MakeID: 44, Name: "Ford", IsAuthorized: true}).Error)
	require.NoError(t, db.Create(&models.SemaModel{ModelID: 55, Name: "F-150", IsAuthorized: true}).Error)
	require.NoError(t, db.Create(&models.SemaSubmodel{SubmodelID: 66, Name: "XLT", IsAuthorized: true}).Error)

	makeYear := models.SemaMakeYear{YearID: 2020, MakeID: 44, IsAuthorized: true}
	require.NoError(t, db.Create(&makeYear).Error)
	require.NoError(t, db.Create(&models.SemaBaseVehicle{
		BaseVehicleID: 77, MakeYearID: makeYear.ID, ModelID: 55, IsAuthorized: true,
	}).Error)
	require.NoError(t, db.Create(&models.SemaVehicle{
		VehicleID: 88, BaseVehicleID: 77, SubmodelID: 66, IsAuthorized: true,
	}).Error)

	linker := newTestLinker(db, nil)
	vehicle, err := linker.resolveOrSynthesize(sema.VehicleByNames{
		Year: 2020, MakeName: "Ford", ModelName: "F-150", SubmodelName: "XLT",
	})
	require.NoError(t, err)
	assert.Equal(t, 88, vehicle.VehicleID)
	assert.True(t, vehicle.IsAuthorized)

	// No shadow rows were synthesized along the way.
	var count int64
	require.NoError(t, db.Model(&models.SemaMake{}).Where("make_id < 0").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestResolveOrSynthesizeRejectsAmbiguousNames(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaMake{MakeID: 1, Name: "Honda"}).Error)
	require.NoError(t, db.Create(&models.SemaMake{MakeID: 2, Name: "Honda"}).Error)

	linker := newTestLinker(db, nil)
	_, err := linker.resolveOrSynthesize(sema.VehicleByNames{
		Year: 2018, MakeName: "Honda", ModelName: "Civic", SubmodelName: "Si",
	})
	require.Error(t, err)
	assert.EqualError(t, err, `ambiguous make name "Honda"`)
}

func TestNextShadowID(t *testing.T) {
	db := testDB(t)

	// Empty table starts the shadow sequence at -1.
	id, err := nextShadowID(db, "sema_makes", "make_id")
	require.NoError(t, err)
	assert.Equal(t, -1, id)

	// Positive upstream ids never shift the sequence.
	require.NoError(t, db.Create(&models.SemaMake{MakeID: 5, Name: "Ford"}).Error)
	id, err = nextShadowID(db, "sema_makes", "make_id")
	require.NoError(t, err)
	assert.Equal(t, -1, id)

	// Existing shadow rows extend it downward.
	require.NoError(t, db.Create(&models.SemaMake{MakeID: -3, Name: "Kaiser"}).Error)
	id, err = nextShadowID(db, "sema_makes", "make_id")
	require.NoError(t, err)
	assert.Equal(t, -4, id)
}

func TestUpdateProductVehiclesIsAddOnly(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaDataset{DatasetID: 100, Name: "DS", IsAuthorized: true}).Error)
	require.NoError(t, db.Create(&models.SemaProduct{
		ProductID: 10, PartNumber: "PN1", DatasetID: 100, IsAuthorized: true,
	}).Error)

	api := &fakeFitmentAPI{byProduct: map[int][]sema.PartVehicles{
		100: {{
			PartNumber: "PN1",
			Vehicles: []sema.VehicleByNames{
				{Year: 2018, MakeName: "Honda", ModelName: "Civic", SubmodelName: "Si"},
			},
		}},
	}}

	linker := newTestLinker(db, api)
	msgs := linker.UpdateProductVehicles(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: SEMA Product 10 :: PN1 updated, vehicles:  -> -1", msgs[0])

	var product models.SemaProduct
	require.NoError(t, db.Preload("Vehicles").First(&product, "product_id = ?", 10).Error)
	require.Len(t, product.Vehicles, 1)
	assert.Equal(t, -1, product.Vehicles[0].VehicleID)

	// A second pass with the same fitment reports up-to-date and links
	// nothing new.
	msgs = linker.UpdateProductVehicles(context.Background())
	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: SEMA Product 10 :: PN1, already up-to-date", msgs[0])
}

func TestUpdateProductVehiclesRequiresAuthorizedDatasets(t *testing.T) {
	db := testDB(t)
	linker := newTestLinker(db, &fakeFitmentAPI{})

	msgs := linker.UpdateProductVehicles(context.Background())
	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: SEMA Product, no authorized datasets", msgs[0])
}

func TestUpdateDatasetVehiclesLinksBrandFitment(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaBrand{BrandID: "XQRS", Name: "ACME", IsAuthorized: true}).Error)
	require.NoError(t, db.Create(&models.SemaDataset{
		DatasetID: 100, Name: "DS", BrandID: "XQRS", IsAuthorized: true,
	}).Error)

	api := &fakeFitmentAPI{byBrand: map[string][]sema.BrandVehicle{
		"XQRS": {{
			AAIABrandID: "XQRS", Year: 2019, MakeName: "Toyota",
			ModelName: "Tacoma", SubmodelName: "TRD",
		}},
	}}

	linker := newTestLinker(db, api)
	msgs := linker.UpdateDatasetVehicles(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: SEMA Dataset 100 :: DS updated, vehicles:  -> -1", msgs[0])

	var dataset models.SemaDataset
	require.NoError(t, db.Preload("Vehicles").First(&dataset, "dataset_id = ?", 100).Error)
	require.Len(t, dataset.Vehicles, 1)
}
