package sync

import (
	"context"
	"fmt"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/sema"

	"gorm.io/gorm"
)

// FitmentAPI is the slice of the SEMA client the vehicle linker needs.
type FitmentAPI interface {
	GetVehiclesByProduct(brandID string, datasetID int, partNumbers []string) ([]sema.PartVehicles, error)
	GetVehiclesByBrand(brandIDs []string, datasetIDs []int) ([]sema.BrandVehicle, error)
}

// VehicleLinker associates products with the vehicles the fitment lookup
// names. A named combination that does not resolve locally gets its chain
// synthesized with surrogate keys and is_authorized=false, so one missing
// leaf never blocks an otherwise valid link.
type VehicleLinker struct {
	Client FitmentAPI
	DB     *gorm.DB
	Logger *logger.Logger
}

// UpdateProductVehicles runs one vehicles-by-product fetch per authorized
// dataset and applies the returned fitment rows.
func (l *VehicleLinker) UpdateProductVehicles(ctx context.Context) []string {
	var datasets []models.SemaDataset
	if err := l.DB.Where("is_authorized = ?", true).Find(&datasets).Error; err != nil {
		return []string{ErrorMsg("SEMA Product", err)}
	}
	if len(datasets) == 0 {
		return []string{ErrorMsg("SEMA Product", fmt.Errorf("no authorized datasets"))}
	}

	var msgs []string
	for _, dataset := range datasets {
		parts, err := l.Client.GetVehiclesByProduct("", dataset.DatasetID, nil)
		if err != nil {
			msgs = append(msgs, ErrorMsg("SEMA Product", err))
			continue
		}

		for _, part := range parts {
			msgs = append(msgs, l.applyPartVehicles(dataset.DatasetID, part)...)
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("SEMA Product"))
	}
	return msgs
}

// UpdateDatasetVehicles attaches brand-level fitment to each authorized
// dataset of the brand. Dataset vehicles back the relevancy fallback for
// products that carry no fitment of their own.
func (l *VehicleLinker) UpdateDatasetVehicles(ctx context.Context) []string {
	var brands []models.SemaBrand
	err := l.DB.Preload("Datasets", "is_authorized = ?", true).
		Where("is_authorized = ?", true).Find(&brands).Error
	if err != nil {
		return []string{ErrorMsg("SEMA Dataset", err)}
	}

	var msgs []string
	for _, brand := range brands {
		if len(brand.Datasets) == 0 {
			continue
		}
		rows, err := l.Client.GetVehiclesByBrand([]string{brand.BrandID}, nil)
		if err != nil {
			msgs = append(msgs, ErrorMsg("SEMA Dataset", err))
			continue
		}

		for i := range brand.Datasets {
			msgs = append(msgs, l.applyDatasetVehicles(&brand.Datasets[i], rows)...)
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("SEMA Dataset"))
	}
	return msgs
}

func (l *VehicleLinker) applyDatasetVehicles(dataset *models.SemaDataset, rows []sema.BrandVehicle) []string {
	var msgs []string
	var added []string
	for _, row := range rows {
		vehicle, err := l.resolveOrSynthesize(sema.VehicleByNames{
			Year:         row.Year,
			MakeName:     row.MakeName,
			ModelName:    row.ModelName,
			SubmodelName: row.SubmodelName,
		})
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Dataset", dataset.String(), err))
			continue
		}

		var count int64
		err = l.DB.Table("sema_dataset_vehicles").
			Where("sema_dataset_dataset_id = ? AND sema_vehicle_vehicle_id = ?",
				dataset.DatasetID, vehicle.VehicleID).
			Count(&count).Error
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Dataset", dataset.String(), err))
			continue
		}
		if count > 0 {
			continue
		}
		if err := l.DB.Model(dataset).Association("Vehicles").Append(vehicle); err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Dataset", dataset.String(), err))
			continue
		}
		added = append(added, vehicle.String())
	}

	if len(added) == 0 {
		msgs = append(msgs, UpToDateMsg("SEMA Dataset", dataset.String()))
	} else {
		deltas := make([]Delta, len(added))
		for i, id := range added {
			deltas[i] = Delta{Field: "vehicles", Old: "", New: id}
		}
		msgs = append(msgs, UpdatedMsg("SEMA Dataset", dataset.String(), deltas))
	}
	return msgs
}

func (l *VehicleLinker) applyPartVehicles(datasetID int, part sema.PartVehicles) []string {
	var product models.SemaProduct
	err := l.DB.First(&product, "part_number = ? AND dataset_id = ?", part.PartNumber, datasetID).Error
	if err != nil {
		return []string{RecordErrorMsg("SEMA Product", part.PartNumber, err)}
	}

	var msgs []string
	var added []string
	for _, named := range part.Vehicles {
		vehicle, err := l.resolveOrSynthesize(named)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Product", product.String(), err))
			continue
		}

		linked, err := l.linkVehicle(&product, vehicle)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Product", product.String(), err))
			continue
		}
		if linked {
			added = append(added, vehicle.String())
		}
	}

	if len(added) == 0 {
		msgs = append(msgs, UpToDateMsg("SEMA Product", product.String()))
	} else {
		deltas := make([]Delta, len(added))
		for i, id := range added {
			deltas[i] = Delta{Field: "vehicles", Old: "", New: id}
		}
		msgs = append(msgs, UpdatedMsg("SEMA Product", product.String(), deltas))
	}
	return msgs
}

func (l *VehicleLinker) linkVehicle(product *models.SemaProduct, vehicle *models.SemaVehicle) (bool, error) {
	var count int64
	err := l.DB.Table("sema_product_vehicles").
		Where("sema_product_product_id = ? AND sema_vehicle_vehicle_id = ?",
			product.ProductID, vehicle.VehicleID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := l.DB.Model(product).Association("Vehicles").Append(vehicle); err != nil {
		return false, err
	}
	return true, nil
}

// resolveOrSynthesize resolves a (year, make, model, submodel) name tuple to
// a vehicle, creating any missing link of the chain as an unauthorized
// shadow row. Name lookups are exact; an ambiguous name fails rather than
// guessing between same-named makes or models.
func (l *VehicleLinker) resolveOrSynthesize(named sema.VehicleByNames) (*models.SemaVehicle, error) {
	year, err := l.getOrCreateYear(named.Year)
	if err != nil {
		return nil, err
	}
	mk, err := l.getOrCreateMake(named.MakeName)
	if err != nil {
		return nil, err
	}
	makeYear, err := l.getOrCreateMakeYear(year, mk)
	if err != nil {
		return nil, err
	}
	model, err := l.getOrCreateModel(named.ModelName)
	if err != nil {
		return nil, err
	}
	baseVehicle, err := l.getOrCreateBaseVehicle(makeYear, model)
	if err != nil {
		return nil, err
	}
	submodel, err := l.getOrCreateSubmodel(named.SubmodelName)
	if err != nil {
		return nil, err
	}
	return l.getOrCreateVehicle(baseVehicle, submodel)
}

// nextShadowID hands out negative surrogate ids for shadow rows, so they
// can never collide with upstream-assigned positive ids.
func nextShadowID(db *gorm.DB, table, column string) (int, error) {
	var minID *int
	err := db.Table(table).Select("MIN(" + column + ")").Scan(&minID).Error
	if err != nil {
		return 0, err
	}
	if minID == nil || *minID >= 0 {
		return -1, nil
	}
	return *minID - 1, nil
}

func (l *VehicleLinker) getOrCreateYear(value int) (*models.SemaYear, error) {
	var year models.SemaYear
	err := l.DB.First(&year, "year = ?", value).Error
	if err == nil {
		return &year, nil
	}
	if !notFound(err) {
		return nil, err
	}

	year = models.SemaYear{Year: value}
	if err := l.DB.Create(&year).Error; err != nil {
		return nil, err
	}
	return &year, nil
}

func (l *VehicleLinker) getOrCreateMake(name string) (*models.SemaMake, error) {
	var makes []models.SemaMake
	if err := l.DB.Where("name = ?", name).Find(&makes).Error; err != nil {
		return nil, err
	}
	if len(makes) > 1 {
		return nil, fmt.Errorf("ambiguous make name %q", name)
	}
	if len(makes) == 1 {
		return &makes[0], nil
	}

	id, err := nextShadowID(l.DB, "sema_makes", "make_id")
	if err != nil {
		return nil, err
	}
	mk := models.SemaMake{MakeID: id, Name: name}
	if err := l.DB.Create(&mk).Error; err != nil {
		return nil, err
	}
	return &mk, nil
}

func (l *VehicleLinker) getOrCreateMakeYear(year *models.SemaYear, mk *models.SemaMake) (*models.SemaMakeYear, error) {
	var makeYear models.SemaMakeYear
	err := l.DB.First(&makeYear, "year_id = ? AND make_id = ?", year.Year, mk.MakeID).Error
	if err == nil {
		return &makeYear, nil
	}
	if !notFound(err) {
		return nil, err
	}

	makeYear = models.SemaMakeYear{YearID: year.Year, MakeID: mk.MakeID}
	if err := l.DB.Create(&makeYear).Error; err != nil {
		return nil, err
	}
	return &makeYear, nil
}

func (l *VehicleLinker) getOrCreateModel(name string) (*models.SemaModel, error) {
	var modelRows []models.SemaModel
	if err := l.DB.Where("name = ?", name).Find(&modelRows).Error; err != nil {
		return nil, err
	}
	if len(modelRows) > 1 {
		return nil, fmt.Errorf("ambiguous model name %q", name)
	}
	if len(modelRows) == 1 {
		return &modelRows[0], nil
	}

	id, err := nextShadowID(l.DB, "sema_models", "model_id")
	if err != nil {
		return nil, err
	}
	model := models.SemaModel{ModelID: id, Name: name}
	if err := l.DB.Create(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

func (l *VehicleLinker) getOrCreateBaseVehicle(makeYear *models.SemaMakeYear, model *models.SemaModel) (*models.SemaBaseVehicle, error) {
	var baseVehicle models.SemaBaseVehicle
	err := l.DB.First(&baseVehicle, "make_year_id = ? AND model_id = ?", makeYear.ID, model.ModelID).Error
	if err == nil {
		return &baseVehicle, nil
	}
	if !notFound(err) {
		return nil, err
	}

	id, err := nextShadowID(l.DB, "sema_base_vehicles", "base_vehicle_id")
	if err != nil {
		return nil, err
	}
	baseVehicle = models.SemaBaseVehicle{
		BaseVehicleID: id,
		MakeYearID:    makeYear.ID,
		ModelID:       model.ModelID,
	}
	if err := l.DB.Create(&baseVehicle).Error; err != nil {
		return nil, err
	}
	return &baseVehicle, nil
}

func (l *VehicleLinker) getOrCreateSubmodel(name string) (*models.SemaSubmodel, error) {
	var submodels []models.SemaSubmodel
	if err := l.DB.Where("name = ?", name).Find(&submodels).Error; err != nil {
		return nil, err
	}
	if len(submodels) > 1 {
		return nil, fmt.Errorf("ambiguous submodel name %q", name)
	}
	if len(submodels) == 1 {
		return &submodels[0], nil
	}

	id, err := nextShadowID(l.DB, "sema_submodels", "submodel_id")
	if err != nil {
		return nil, err
	}
	submodel := models.SemaSubmodel{SubmodelID: id, Name: name}
	if err := l.DB.Create(&submodel).Error; err != nil {
		return nil, err
	}
	return &submodel, nil
}

func (l *VehicleLinker) getOrCreateVehicle(baseVehicle *models.SemaBaseVehicle, submodel *models.SemaSubmodel) (*models.SemaVehicle, error) {
	var vehicle models.SemaVehicle
	err := l.DB.First(&vehicle,
		"base_vehicle_id = ? AND submodel_id = ?", baseVehicle.BaseVehicleID, submodel.SubmodelID).Error
	if err == nil {
		return &vehicle, nil
	}
	if !notFound(err) {
		return nil, err
	}

	id, err := nextShadowID(l.DB, "sema_vehicles", "vehicle_id")
	if err != nil {
		return nil, err
	}
	vehicle = models.SemaVehicle{
		VehicleID:     id,
		BaseVehicleID: baseVehicle.BaseVehicleID,
		SubmodelID:    submodel.SubmodelID,
	}
	if err := l.DB.Create(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}
