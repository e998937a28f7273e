package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"partsync/internal/models"
	"partsync/internal/services/sema"

	"gorm.io/gorm"
)

// descriptionSegments are the PIES segment families requested on product
// fetches.
var descriptionSegments = []string{"C10_DES", "C10_EXT"}

// makeYearPK renders the natural key of a year/make pair.
func makeYearPK(year, makeID int) string {
	return fmt.Sprintf("%d:%d", year, makeID)
}

// enginePK renders the natural key of an engine configuration.
func enginePK(vehicleID int, litre, cylinders, fuelType string) string {
	return fmt.Sprintf("%d:%s:%s:%s", vehicleID, litre, cylinders, fuelType)
}

func pksFromFetch(ctx context.Context, s Source) ([]string, error) {
	recs, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	pks := make([]string, 0, len(recs))
	for _, rec := range recs {
		pks = append(pks, rec.PK)
	}
	return pks, nil
}

// BrandSource feeds brands from the brand/dataset export. The export
// returns one row per dataset, so brands are deduplicated.
type BrandSource struct {
	Client *sema.Client
}

func (s *BrandSource) Label() string { return "SEMA Brand" }

func (s *BrandSource) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := s.Client.GetBrandDatasets()
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, Record{
			PK:     row.AAIABrandID,
			Fields: map[string]interface{}{"name": row.BrandName},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *BrandSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// DatasetSource feeds datasets from the brand/dataset export.
type DatasetSource struct {
	Client *sema.Client
}

func (s *DatasetSource) Label() string { return "SEMA Dataset" }

func (s *DatasetSource) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := s.Client.GetBrandDatasets()
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, Record{
			PK: strconv.Itoa(row.DatasetID),
			Fields: map[string]interface{}{
				"name":     row.DatasetName,
				"brand_id": row.AAIABrandID,
			},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *DatasetSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

type YearSource struct {
	Client *sema.Client
}

func (s *YearSource) Label() string { return "SEMA Year" }

func (s *YearSource) Fetch(ctx context.Context) ([]Record, error) {
	years, err := s.Client.GetYears(nil, nil)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(years))
	for _, year := range years {
		recs = append(recs, Record{
			PK:     strconv.Itoa(year),
			Fields: map[string]interface{}{"year": year},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *YearSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

type MakeSource struct {
	Client *sema.Client
}

func (s *MakeSource) Label() string { return "SEMA Make" }

func (s *MakeSource) Fetch(ctx context.Context) ([]Record, error) {
	makes, err := s.Client.GetMakes(nil, nil, 0)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(makes))
	for _, mk := range makes {
		recs = append(recs, Record{
			PK:     strconv.Itoa(mk.MakeID),
			Fields: map[string]interface{}{"name": mk.MakeName},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *MakeSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// ModelSource drops the base-vehicle annotation the lookup returns, then
// deduplicates, because the same model appears once per base vehicle.
type ModelSource struct {
	Client *sema.Client
}

func (s *ModelSource) Label() string { return "SEMA Model" }

func (s *ModelSource) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := s.Client.GetModels(nil, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, Record{
			PK:     strconv.Itoa(row.ModelID),
			Fields: map[string]interface{}{"name": row.ModelName},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *ModelSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// SubmodelSource drops the vehicle annotation, then deduplicates.
type SubmodelSource struct {
	Client *sema.Client
}

func (s *SubmodelSource) Label() string { return "SEMA Submodel" }

func (s *SubmodelSource) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := s.Client.GetSubmodels(nil, nil, 0, 0, 0)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, Record{
			PK:     strconv.Itoa(row.SubmodelID),
			Fields: map[string]interface{}{"name": row.SubmodelName},
		})
	}
	return dedupeRecords(recs), nil
}

func (s *SubmodelSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// MakeYearSource issues one makes-fetch per authorized year and annotates
// each record with the loop year. The pair has no upstream id, so records
// carry the year:make natural key.
type MakeYearSource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *MakeYearSource) Label() string { return "SEMA Make Year" }

func (s *MakeYearSource) Fetch(ctx context.Context) ([]Record, error) {
	var years []models.SemaYear
	if err := s.DB.Where("is_authorized = ?", true).Find(&years).Error; err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return nil, errors.New("no authorized years")
	}

	var recs []Record
	for _, year := range years {
		makes, err := s.Client.GetMakes(nil, nil, year.Year)
		if err != nil {
			return nil, err
		}
		for _, mk := range makes {
			recs = append(recs, Record{
				PK: makeYearPK(year.Year, mk.MakeID),
				Fields: map[string]interface{}{
					"year":    year.Year,
					"make_id": mk.MakeID,
				},
			})
		}
	}
	return dedupeRecords(recs), nil
}

func (s *MakeYearSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// BaseVehicleSource issues one models-fetch per authorized make year.
type BaseVehicleSource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *BaseVehicleSource) Label() string { return "SEMA Base Vehicle" }

func (s *BaseVehicleSource) Fetch(ctx context.Context) ([]Record, error) {
	var makeYears []models.SemaMakeYear
	if err := s.DB.Where("is_authorized = ?", true).Find(&makeYears).Error; err != nil {
		return nil, err
	}
	if len(makeYears) == 0 {
		return nil, errors.New("no authorized make years")
	}

	var recs []Record
	for _, makeYear := range makeYears {
		rows, err := s.Client.GetModels(nil, nil, makeYear.YearID, makeYear.MakeID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			recs = append(recs, Record{
				PK: strconv.Itoa(row.BaseVehicleID),
				Fields: map[string]interface{}{
					"model_id": row.ModelID,
					"year_":    makeYear.YearID,
					"make_id_": makeYear.MakeID,
				},
			})
		}
	}
	return dedupeRecords(recs), nil
}

func (s *BaseVehicleSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// VehicleSource issues one submodels-fetch per authorized base vehicle.
type VehicleSource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *VehicleSource) Label() string { return "SEMA Vehicle" }

func (s *VehicleSource) Fetch(ctx context.Context) ([]Record, error) {
	var baseVehicles []models.SemaBaseVehicle
	err := s.DB.Where("is_authorized = ?", true).
		Preload("MakeYear").
		Find(&baseVehicles).Error
	if err != nil {
		return nil, err
	}
	if len(baseVehicles) == 0 {
		return nil, errors.New("no authorized base vehicles")
	}

	var recs []Record
	for _, baseVehicle := range baseVehicles {
		if baseVehicle.MakeYear == nil {
			continue
		}
		rows, err := s.Client.GetSubmodels(nil, nil,
			baseVehicle.MakeYear.YearID, baseVehicle.MakeYear.MakeID, baseVehicle.ModelID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			recs = append(recs, Record{
				PK: strconv.Itoa(row.VehicleID),
				Fields: map[string]interface{}{
					"submodel_id":      row.SubmodelID,
					"base_vehicle_id_": baseVehicle.BaseVehicleID,
				},
			})
		}
	}
	return dedupeRecords(recs), nil
}

func (s *VehicleSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// EngineSource issues one engines-fetch per distinct authorized
// (year, make, model) triple.
type EngineSource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *EngineSource) Label() string { return "SEMA Engine" }

func (s *EngineSource) Fetch(ctx context.Context) ([]Record, error) {
	var baseVehicles []models.SemaBaseVehicle
	err := s.DB.Where("is_authorized = ?", true).
		Preload("MakeYear").
		Find(&baseVehicles).Error
	if err != nil {
		return nil, err
	}
	if len(baseVehicles) == 0 {
		return nil, errors.New("no authorized base vehicles")
	}

	type triple struct{ year, makeID, modelID int }
	seen := make(map[triple]bool)
	var recs []Record
	for _, baseVehicle := range baseVehicles {
		if baseVehicle.MakeYear == nil {
			continue
		}
		key := triple{baseVehicle.MakeYear.YearID, baseVehicle.MakeYear.MakeID, baseVehicle.ModelID}
		if seen[key] {
			continue
		}
		seen[key] = true

		rows, err := s.Client.GetEngines(nil, nil, key.year, key.makeID, key.modelID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			recs = append(recs, Record{
				PK: enginePK(row.VehicleID, row.Liter, row.Cylinders, row.FuelType),
				Fields: map[string]interface{}{
					"vehicle_id": row.VehicleID,
					"litre":      row.Liter,
					"cylinders":  row.Cylinders,
					"block_type": row.BlockType,
					"fuel_type":  row.FuelType,
				},
			})
		}
	}
	return dedupeRecords(recs), nil
}

func (s *EngineSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// CategorySource issues one categories-fetch per authorized dataset and
// flattens the nested tree into independent records. The nesting becomes
// add-only parent links.
type CategorySource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *CategorySource) Label() string { return "SEMA Category" }

func (s *CategorySource) Fetch(ctx context.Context) ([]Record, error) {
	var datasets []models.SemaDataset
	if err := s.DB.Where("is_authorized = ?", true).Find(&datasets).Error; err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, errors.New("no authorized datasets")
	}

	var recs []Record
	for _, dataset := range datasets {
		nodes, err := s.Client.GetCategories(sema.LookupFilter{DatasetIDs: []int{dataset.DatasetID}})
		if err != nil {
			return nil, err
		}
		recs = append(recs, flattenCategories(nodes, 0)...)
	}
	return dedupeRecords(recs), nil
}

func (s *CategorySource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}

// flattenCategories walks a category tree depth-first, emitting one record
// per node with its parent link.
func flattenCategories(nodes []sema.CategoryNode, parentID int) []Record {
	var recs []Record
	for _, node := range nodes {
		rec := Record{
			PK:     strconv.Itoa(node.CategoryID),
			Fields: map[string]interface{}{"name": node.Name},
		}
		if parentID != 0 {
			rec.M2M = map[string][]string{"parents": {strconv.Itoa(parentID)}}
		}
		recs = append(recs, rec)
		recs = append(recs, flattenCategories(node.Categories, node.CategoryID)...)
	}
	return recs
}

// ProductSource issues one products-fetch per authorized dataset,
// requesting the description PIES segments, and annotates records with the
// loop dataset.
type ProductSource struct {
	Client *sema.Client
	DB     *gorm.DB
}

func (s *ProductSource) Label() string { return "SEMA Product" }

func (s *ProductSource) Fetch(ctx context.Context) ([]Record, error) {
	var datasets []models.SemaDataset
	if err := s.DB.Where("is_authorized = ?", true).Find(&datasets).Error; err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, errors.New("no authorized datasets")
	}

	var recs []Record
	for _, dataset := range datasets {
		rows, err := s.Client.GetProducts(sema.LookupFilter{
			DatasetIDs:   []int{dataset.DatasetID},
			PiesSegments: descriptionSegments,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			recs = append(recs, Record{
				PK: strconv.Itoa(row.ProductID),
				Fields: map[string]interface{}{
					"part_number": row.PartNumber,
					"dataset_id_": dataset.DatasetID,
					"pies":        row.PiesAttributes,
				},
			})
		}
	}
	return dedupeRecords(recs), nil
}

func (s *ProductSource) FetchPKs(ctx context.Context) ([]string, error) {
	return pksFromFetch(ctx, s)
}
