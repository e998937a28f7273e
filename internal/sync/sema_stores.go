package sync

import (
	"errors"
	"fmt"
	"strconv"

	"partsync/internal/models"
	"partsync/internal/services/apierr"
	"partsync/internal/services/sema"

	"gorm.io/gorm"
)

// deltaSet accumulates changed-field deltas while applying a record. Fields
// are compared and written explicitly, one case per field.
type deltaSet struct {
	deltas []Delta
}

func (d *deltaSet) str(field string, current *string, next string) {
	if *current != next {
		d.deltas = append(d.deltas, Delta{Field: field, Old: *current, New: next})
		*current = next
	}
}

func (d *deltaSet) num(field string, current *int, next int) {
	if *current != next {
		d.deltas = append(d.deltas, Delta{
			Field: field,
			Old:   strconv.Itoa(*current),
			New:   strconv.Itoa(next),
		})
		*current = next
	}
}

func (d *deltaSet) boolean(field string, current *bool, next bool) {
	if *current != next {
		d.deltas = append(d.deltas, Delta{
			Field: field,
			Old:   strconv.FormatBool(*current),
			New:   strconv.FormatBool(next),
		})
		*current = next
	}
}

func fieldString(rec Record, name string) (string, bool) {
	v, ok := rec.Fields[name].(string)
	return v, ok
}

func fieldInt(rec Record, name string) (int, bool) {
	v, ok := rec.Fields[name].(int)
	return v, ok
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// --- Brand ---

type BrandStore struct {
	DB *gorm.DB
}

type brandRow struct {
	db  *gorm.DB
	obj *models.SemaBrand
}

func (s *BrandStore) Get(rec Record) (Row, bool, error) {
	var brand models.SemaBrand
	err := s.DB.First(&brand, "brand_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &brandRow{db: s.DB, obj: &brand}, true, nil
}

func (s *BrandStore) Create(rec Record) (Row, error) {
	name, _ := fieldString(rec, "name")
	brand := models.SemaBrand{
		BrandID:      rec.PK,
		Name:         name,
		IsAuthorized: true,
	}
	if err := s.DB.Create(&brand).Error; err != nil {
		return nil, err
	}
	return &brandRow{db: s.DB, obj: &brand}, nil
}

func (s *BrandStore) All() ([]Row, error) {
	var brands []models.SemaBrand
	if err := s.DB.Find(&brands).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(brands))
	for i := range brands {
		rows[i] = &brandRow{db: s.DB, obj: &brands[i]}
	}
	return rows, nil
}

func (r *brandRow) PK() string       { return r.obj.BrandID }
func (r *brandRow) Display() string  { return r.obj.String() }
func (r *brandRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *brandRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *brandRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Dataset ---

type DatasetStore struct {
	DB *gorm.DB
}

type datasetRow struct {
	db  *gorm.DB
	obj *models.SemaDataset
}

func (s *DatasetStore) Get(rec Record) (Row, bool, error) {
	var dataset models.SemaDataset
	err := s.DB.First(&dataset, "dataset_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &datasetRow{db: s.DB, obj: &dataset}, true, nil
}

func (s *DatasetStore) Create(rec Record) (Row, error) {
	brandID, _ := fieldString(rec, "brand_id")
	var brand models.SemaBrand
	if err := s.DB.First(&brand, "brand_id = ?", brandID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Brand", Key: brandID}
		}
		return nil, err
	}

	datasetID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad dataset id %q", rec.PK)
	}
	name, _ := fieldString(rec, "name")
	dataset := models.SemaDataset{
		DatasetID:    datasetID,
		Name:         name,
		BrandID:      brandID,
		IsAuthorized: true,
	}
	if err := s.DB.Create(&dataset).Error; err != nil {
		return nil, err
	}
	return &datasetRow{db: s.DB, obj: &dataset}, nil
}

func (s *DatasetStore) All() ([]Row, error) {
	var datasets []models.SemaDataset
	if err := s.DB.Find(&datasets).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(datasets))
	for i := range datasets {
		rows[i] = &datasetRow{db: s.DB, obj: &datasets[i]}
	}
	return rows, nil
}

func (r *datasetRow) PK() string       { return strconv.Itoa(r.obj.DatasetID) }
func (r *datasetRow) Display() string  { return r.obj.String() }
func (r *datasetRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *datasetRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	if brandID, ok := fieldString(rec, "brand_id"); ok {
		ds.str("brand_id", &r.obj.BrandID, brandID)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *datasetRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Year ---

type YearStore struct {
	DB *gorm.DB
}

type yearRow struct {
	db  *gorm.DB
	obj *models.SemaYear
}

func (s *YearStore) Get(rec Record) (Row, bool, error) {
	var year models.SemaYear
	err := s.DB.First(&year, "year = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &yearRow{db: s.DB, obj: &year}, true, nil
}

func (s *YearStore) Create(rec Record) (Row, error) {
	value, _ := fieldInt(rec, "year")
	year := models.SemaYear{Year: value, IsAuthorized: true}
	if err := s.DB.Create(&year).Error; err != nil {
		return nil, err
	}
	return &yearRow{db: s.DB, obj: &year}, nil
}

func (s *YearStore) All() ([]Row, error) {
	var years []models.SemaYear
	if err := s.DB.Find(&years).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(years))
	for i := range years {
		rows[i] = &yearRow{db: s.DB, obj: &years[i]}
	}
	return rows, nil
}

func (r *yearRow) PK() string       { return strconv.Itoa(r.obj.Year) }
func (r *yearRow) Display() string  { return r.obj.String() }
func (r *yearRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *yearRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *yearRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Make ---

type MakeStore struct {
	DB *gorm.DB
}

type makeRow struct {
	db  *gorm.DB
	obj *models.SemaMake
}

func (s *MakeStore) Get(rec Record) (Row, bool, error) {
	var mk models.SemaMake
	err := s.DB.First(&mk, "make_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &makeRow{db: s.DB, obj: &mk}, true, nil
}

func (s *MakeStore) Create(rec Record) (Row, error) {
	makeID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad make id %q", rec.PK)
	}
	name, _ := fieldString(rec, "name")
	mk := models.SemaMake{MakeID: makeID, Name: name, IsAuthorized: true}
	if err := s.DB.Create(&mk).Error; err != nil {
		return nil, err
	}
	return &makeRow{db: s.DB, obj: &mk}, nil
}

func (s *MakeStore) All() ([]Row, error) {
	var makes []models.SemaMake
	if err := s.DB.Find(&makes).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(makes))
	for i := range makes {
		rows[i] = &makeRow{db: s.DB, obj: &makes[i]}
	}
	return rows, nil
}

func (r *makeRow) PK() string       { return strconv.Itoa(r.obj.MakeID) }
func (r *makeRow) Display() string  { return r.obj.String() }
func (r *makeRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *makeRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *makeRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Model ---

type ModelStore struct {
	DB *gorm.DB
}

type modelRow struct {
	db  *gorm.DB
	obj *models.SemaModel
}

func (s *ModelStore) Get(rec Record) (Row, bool, error) {
	var model models.SemaModel
	err := s.DB.First(&model, "model_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &modelRow{db: s.DB, obj: &model}, true, nil
}

func (s *ModelStore) Create(rec Record) (Row, error) {
	modelID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad model id %q", rec.PK)
	}
	name, _ := fieldString(rec, "name")
	model := models.SemaModel{ModelID: modelID, Name: name, IsAuthorized: true}
	if err := s.DB.Create(&model).Error; err != nil {
		return nil, err
	}
	return &modelRow{db: s.DB, obj: &model}, nil
}

func (s *ModelStore) All() ([]Row, error) {
	var modelRows []models.SemaModel
	if err := s.DB.Find(&modelRows).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(modelRows))
	for i := range modelRows {
		rows[i] = &modelRow{db: s.DB, obj: &modelRows[i]}
	}
	return rows, nil
}

func (r *modelRow) PK() string       { return strconv.Itoa(r.obj.ModelID) }
func (r *modelRow) Display() string  { return r.obj.String() }
func (r *modelRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *modelRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *modelRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Submodel ---

type SubmodelStore struct {
	DB *gorm.DB
}

type submodelRow struct {
	db  *gorm.DB
	obj *models.SemaSubmodel
}

func (s *SubmodelStore) Get(rec Record) (Row, bool, error) {
	var submodel models.SemaSubmodel
	err := s.DB.First(&submodel, "submodel_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &submodelRow{db: s.DB, obj: &submodel}, true, nil
}

func (s *SubmodelStore) Create(rec Record) (Row, error) {
	submodelID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad submodel id %q", rec.PK)
	}
	name, _ := fieldString(rec, "name")
	submodel := models.SemaSubmodel{SubmodelID: submodelID, Name: name, IsAuthorized: true}
	if err := s.DB.Create(&submodel).Error; err != nil {
		return nil, err
	}
	return &submodelRow{db: s.DB, obj: &submodel}, nil
}

func (s *SubmodelStore) All() ([]Row, error) {
	var submodels []models.SemaSubmodel
	if err := s.DB.Find(&submodels).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(submodels))
	for i := range submodels {
		rows[i] = &submodelRow{db: s.DB, obj: &submodels[i]}
	}
	return rows, nil
}

func (r *submodelRow) PK() string       { return strconv.Itoa(r.obj.SubmodelID) }
func (r *submodelRow) Display() string  { return r.obj.String() }
func (r *submodelRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *submodelRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *submodelRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- MakeYear ---

// MakeYearStore resolves rows by the (year, make) natural key; the stored
// uuid is only a storage surrogate.
type MakeYearStore struct {
	DB *gorm.DB
}

type makeYearRow struct {
	db  *gorm.DB
	obj *models.SemaMakeYear
}

func (s *MakeYearStore) Get(rec Record) (Row, bool, error) {
	year, ok := fieldInt(rec, "year")
	makeID, ok2 := fieldInt(rec, "make_id")
	if !ok || !ok2 {
		// Unauthorize path resolves by the composite pk string.
		var parsedYear, parsedMake int
		if _, err := fmt.Sscanf(rec.PK, "%d:%d", &parsedYear, &parsedMake); err != nil {
			return nil, false, fmt.Errorf("bad make year key %q", rec.PK)
		}
		year, makeID = parsedYear, parsedMake
	}

	var makeYear models.SemaMakeYear
	err := s.DB.First(&makeYear, "year_id = ? AND make_id = ?", year, makeID).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &makeYearRow{db: s.DB, obj: &makeYear}, true, nil
}

func (s *MakeYearStore) Create(rec Record) (Row, error) {
	year, _ := fieldInt(rec, "year")
	makeID, _ := fieldInt(rec, "make_id")

	if err := s.DB.First(&models.SemaYear{}, "year = ?", year).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Year", Key: strconv.Itoa(year)}
		}
		return nil, err
	}
	if err := s.DB.First(&models.SemaMake{}, "make_id = ?", makeID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Make", Key: strconv.Itoa(makeID)}
		}
		return nil, err
	}

	makeYear := models.SemaMakeYear{YearID: year, MakeID: makeID, IsAuthorized: true}
	if err := s.DB.Create(&makeYear).Error; err != nil {
		return nil, err
	}
	return &makeYearRow{db: s.DB, obj: &makeYear}, nil
}

func (s *MakeYearStore) All() ([]Row, error) {
	var makeYears []models.SemaMakeYear
	if err := s.DB.Find(&makeYears).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(makeYears))
	for i := range makeYears {
		rows[i] = &makeYearRow{db: s.DB, obj: &makeYears[i]}
	}
	return rows, nil
}

func (r *makeYearRow) PK() string       { return makeYearPK(r.obj.YearID, r.obj.MakeID) }
func (r *makeYearRow) Display() string  { return r.obj.String() }
func (r *makeYearRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *makeYearRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *makeYearRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- BaseVehicle ---

type BaseVehicleStore struct {
	DB *gorm.DB
}

type baseVehicleRow struct {
	db  *gorm.DB
	obj *models.SemaBaseVehicle
}

func (s *BaseVehicleStore) Get(rec Record) (Row, bool, error) {
	var baseVehicle models.SemaBaseVehicle
	err := s.DB.First(&baseVehicle, "base_vehicle_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &baseVehicleRow{db: s.DB, obj: &baseVehicle}, true, nil
}

func (s *BaseVehicleStore) Create(rec Record) (Row, error) {
	baseVehicleID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad base vehicle id %q", rec.PK)
	}
	year, _ := fieldInt(rec, "year_")
	makeID, _ := fieldInt(rec, "make_id_")
	modelID, _ := fieldInt(rec, "model_id")

	var makeYear models.SemaMakeYear
	if err := s.DB.First(&makeYear, "year_id = ? AND make_id = ?", year, makeID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Make Year", Key: makeYearPK(year, makeID)}
		}
		return nil, err
	}
	if err := s.DB.First(&models.SemaModel{}, "model_id = ?", modelID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Model", Key: strconv.Itoa(modelID)}
		}
		return nil, err
	}

	baseVehicle := models.SemaBaseVehicle{
		BaseVehicleID: baseVehicleID,
		MakeYearID:    makeYear.ID,
		ModelID:       modelID,
		IsAuthorized:  true,
	}
	if err := s.DB.Create(&baseVehicle).Error; err != nil {
		return nil, err
	}
	return &baseVehicleRow{db: s.DB, obj: &baseVehicle}, nil
}

func (s *BaseVehicleStore) All() ([]Row, error) {
	var baseVehicles []models.SemaBaseVehicle
	if err := s.DB.Find(&baseVehicles).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(baseVehicles))
	for i := range baseVehicles {
		rows[i] = &baseVehicleRow{db: s.DB, obj: &baseVehicles[i]}
	}
	return rows, nil
}

func (r *baseVehicleRow) PK() string       { return strconv.Itoa(r.obj.BaseVehicleID) }
func (r *baseVehicleRow) Display() string  { return r.obj.String() }
func (r *baseVehicleRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *baseVehicleRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if modelID, ok := fieldInt(rec, "model_id"); ok {
		ds.num("model_id", &r.obj.ModelID, modelID)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *baseVehicleRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Vehicle ---

type VehicleStore struct {
	DB *gorm.DB
}

type vehicleRow struct {
	db  *gorm.DB
	obj *models.SemaVehicle
}

func (s *VehicleStore) Get(rec Record) (Row, bool, error) {
	var vehicle models.SemaVehicle
	err := s.DB.First(&vehicle, "vehicle_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &vehicleRow{db: s.DB, obj: &vehicle}, true, nil
}

func (s *VehicleStore) Create(rec Record) (Row, error) {
	vehicleID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad vehicle id %q", rec.PK)
	}
	baseVehicleID, _ := fieldInt(rec, "base_vehicle_id_")
	submodelID, _ := fieldInt(rec, "submodel_id")

	if err := s.DB.First(&models.SemaBaseVehicle{}, "base_vehicle_id = ?", baseVehicleID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Base Vehicle", Key: strconv.Itoa(baseVehicleID)}
		}
		return nil, err
	}
	if err := s.DB.First(&models.SemaSubmodel{}, "submodel_id = ?", submodelID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Submodel", Key: strconv.Itoa(submodelID)}
		}
		return nil, err
	}

	vehicle := models.SemaVehicle{
		VehicleID:     vehicleID,
		BaseVehicleID: baseVehicleID,
		SubmodelID:    submodelID,
		IsAuthorized:  true,
	}
	if err := s.DB.Create(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicleRow{db: s.DB, obj: &vehicle}, nil
}

func (s *VehicleStore) All() ([]Row, error) {
	var vehicles []models.SemaVehicle
	if err := s.DB.Find(&vehicles).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(vehicles))
	for i := range vehicles {
		rows[i] = &vehicleRow{db: s.DB, obj: &vehicles[i]}
	}
	return rows, nil
}

func (r *vehicleRow) PK() string       { return strconv.Itoa(r.obj.VehicleID) }
func (r *vehicleRow) Display() string  { return r.obj.String() }
func (r *vehicleRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *vehicleRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if submodelID, ok := fieldInt(rec, "submodel_id"); ok {
		ds.num("submodel_id", &r.obj.SubmodelID, submodelID)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *vehicleRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Engine ---

// EngineStore resolves rows by the (vehicle, litre, cylinders, fuel)
// natural key.
type EngineStore struct {
	DB *gorm.DB
}

type engineRow struct {
	db  *gorm.DB
	obj *models.SemaEngine
}

func (s *EngineStore) Get(rec Record) (Row, bool, error) {
	vehicleID, _ := fieldInt(rec, "vehicle_id")
	litre, _ := fieldString(rec, "litre")
	cylinders, _ := fieldString(rec, "cylinders")
	fuelType, _ := fieldString(rec, "fuel_type")

	var engine models.SemaEngine
	err := s.DB.First(&engine,
		"vehicle_id = ? AND litre = ? AND cylinders = ? AND fuel_type = ?",
		vehicleID, litre, cylinders, fuelType).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &engineRow{db: s.DB, obj: &engine}, true, nil
}

func (s *EngineStore) Create(rec Record) (Row, error) {
	vehicleID, _ := fieldInt(rec, "vehicle_id")
	if err := s.DB.First(&models.SemaVehicle{}, "vehicle_id = ?", vehicleID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Vehicle", Key: strconv.Itoa(vehicleID)}
		}
		return nil, err
	}

	litre, _ := fieldString(rec, "litre")
	cylinders, _ := fieldString(rec, "cylinders")
	blockType, _ := fieldString(rec, "block_type")
	fuelType, _ := fieldString(rec, "fuel_type")
	engine := models.SemaEngine{
		VehicleID:    vehicleID,
		Litre:        litre,
		Cylinders:    cylinders,
		BlockType:    blockType,
		FuelType:     fuelType,
		IsAuthorized: true,
	}
	if err := s.DB.Create(&engine).Error; err != nil {
		return nil, err
	}
	return &engineRow{db: s.DB, obj: &engine}, nil
}

func (s *EngineStore) All() ([]Row, error) {
	var engines []models.SemaEngine
	if err := s.DB.Find(&engines).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(engines))
	for i := range engines {
		rows[i] = &engineRow{db: s.DB, obj: &engines[i]}
	}
	return rows, nil
}

func (r *engineRow) PK() string {
	return enginePK(r.obj.VehicleID, r.obj.Litre, r.obj.Cylinders, r.obj.FuelType)
}
func (r *engineRow) Display() string  { return r.obj.String() }
func (r *engineRow) Authorized() bool { return r.obj.IsAuthorized }

func (r *engineRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if blockType, ok := fieldString(rec, "block_type"); ok {
		ds.str("block_type", &r.obj.BlockType, blockType)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *engineRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Category ---

type CategoryStore struct {
	DB *gorm.DB
}

type categoryRow struct {
	db  *gorm.DB
	obj *models.SemaCategory
}

func (s *CategoryStore) Get(rec Record) (Row, bool, error) {
	var category models.SemaCategory
	err := s.DB.First(&category, "category_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &categoryRow{db: s.DB, obj: &category}, true, nil
}

func (s *CategoryStore) Create(rec Record) (Row, error) {
	categoryID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad category id %q", rec.PK)
	}
	name, _ := fieldString(rec, "name")
	category := models.SemaCategory{
		CategoryID:   categoryID,
		Name:         name,
		IsAuthorized: true,
	}
	if err := s.DB.Create(&category).Error; err != nil {
		return nil, err
	}

	row := &categoryRow{db: s.DB, obj: &category}
	if err := row.addParents(rec.M2M["parents"]); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *CategoryStore) All() ([]Row, error) {
	var categories []models.SemaCategory
	if err := s.DB.Find(&categories).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(categories))
	for i := range categories {
		rows[i] = &categoryRow{db: s.DB, obj: &categories[i]}
	}
	return rows, nil
}

func (r *categoryRow) PK() string       { return strconv.Itoa(r.obj.CategoryID) }
func (r *categoryRow) Display() string  { return r.obj.String() }
func (r *categoryRow) Authorized() bool { return r.obj.IsAuthorized }

// addParents appends parent links not yet present. Parent links are never
// removed during sync.
func (r *categoryRow) addParents(parentPKs []string) error {
	for _, pk := range parentPKs {
		var parent models.SemaCategory
		if err := r.db.First(&parent, "category_id = ?", pk).Error; err != nil {
			if notFound(err) {
				return &apierr.ParentMissingError{Entity: "SEMA Category", Key: pk}
			}
			return err
		}

		var count int64
		err := r.db.Table("sema_category_parents").
			Where("category_id = ? AND parent_id = ?", r.obj.CategoryID, parent.CategoryID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			if err := r.db.Model(r.obj).Association("Parents").Append(&parent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *categoryRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if name, ok := fieldString(rec, "name"); ok {
		ds.str("name", &r.obj.Name, name)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)

	if err := r.addParents(rec.M2M["parents"]); err != nil {
		return nil, err
	}
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

func (r *categoryRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}

// --- Product ---

type ProductStore struct {
	DB *gorm.DB
}

type productRow struct {
	db  *gorm.DB
	obj *models.SemaProduct
}

func (s *ProductStore) Get(rec Record) (Row, bool, error) {
	var product models.SemaProduct
	err := s.DB.First(&product, "product_id = ?", rec.PK).Error
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &productRow{db: s.DB, obj: &product}, true, nil
}

func (s *ProductStore) Create(rec Record) (Row, error) {
	productID, err := strconv.Atoi(rec.PK)
	if err != nil {
		return nil, fmt.Errorf("bad product id %q", rec.PK)
	}
	datasetID, _ := fieldInt(rec, "dataset_id_")
	if err := s.DB.First(&models.SemaDataset{}, "dataset_id = ?", datasetID).Error; err != nil {
		if notFound(err) {
			return nil, &apierr.ParentMissingError{Entity: "SEMA Dataset", Key: strconv.Itoa(datasetID)}
		}
		return nil, err
	}

	partNumber, _ := fieldString(rec, "part_number")
	product := models.SemaProduct{
		ProductID:    productID,
		PartNumber:   partNumber,
		DatasetID:    datasetID,
		IsAuthorized: true,
	}
	if err := s.DB.Create(&product).Error; err != nil {
		return nil, err
	}

	row := &productRow{db: s.DB, obj: &product}
	if _, err := row.applyPies(rec); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *ProductStore) All() ([]Row, error) {
	var products []models.SemaProduct
	if err := s.DB.Find(&products).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, len(products))
	for i := range products {
		rows[i] = &productRow{db: s.DB, obj: &products[i]}
	}
	return rows, nil
}

func (r *productRow) PK() string       { return strconv.Itoa(r.obj.ProductID) }
func (r *productRow) Display() string  { return r.obj.String() }
func (r *productRow) Authorized() bool { return r.obj.IsAuthorized }

// applyPies upserts the product's PIES attributes, returning a delta per
// changed segment.
func (r *productRow) applyPies(rec Record) ([]Delta, error) {
	attrs, ok := rec.Fields["pies"].([]sema.PiesAttribute)
	if !ok {
		return nil, nil
	}

	var deltas []Delta
	for _, attr := range attrs {
		if attr.Value == nil {
			continue
		}

		var existing models.SemaPiesAttribute
		err := r.db.First(&existing,
			"product_id = ? AND segment = ?", r.obj.ProductID, attr.PiesSegment).Error
		if notFound(err) {
			created := models.SemaPiesAttribute{
				ProductID: r.obj.ProductID,
				Segment:   attr.PiesSegment,
				PiesName:  attr.PiesName,
				Value:     *attr.Value,
			}
			if err := r.db.Create(&created).Error; err != nil {
				return nil, err
			}
			deltas = append(deltas, Delta{Field: "pies:" + attr.PiesSegment, Old: "", New: *attr.Value})
			continue
		}
		if err != nil {
			return nil, err
		}
		if existing.Value != *attr.Value {
			deltas = append(deltas, Delta{
				Field: "pies:" + attr.PiesSegment,
				Old:   existing.Value,
				New:   *attr.Value,
			})
			existing.Value = *attr.Value
			if err := r.db.Save(&existing).Error; err != nil {
				return nil, err
			}
		}
	}
	return deltas, nil
}

func (r *productRow) Apply(rec Record) ([]Delta, error) {
	ds := &deltaSet{}
	if partNumber, ok := fieldString(rec, "part_number"); ok {
		ds.str("part_number", &r.obj.PartNumber, partNumber)
	}
	if datasetID, ok := fieldInt(rec, "dataset_id_"); ok {
		ds.num("dataset_id", &r.obj.DatasetID, datasetID)
	}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, true)

	piesDeltas, err := r.applyPies(rec)
	if err != nil {
		return nil, err
	}

	if len(ds.deltas) > 0 {
		if err := r.db.Save(r.obj).Error; err != nil {
			return nil, err
		}
	}
	return append(ds.deltas, piesDeltas...), nil
}

func (r *productRow) Unauthorize() ([]Delta, error) {
	ds := &deltaSet{}
	ds.boolean("is_authorized", &r.obj.IsAuthorized, false)
	if len(ds.deltas) == 0 {
		return nil, nil
	}
	return ds.deltas, r.db.Save(r.obj).Error
}
