package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SemaBrand is the root of the fitment hierarchy. Its primary key is the
// AAIA brand id assigned by the data cooperative.
type SemaBrand struct {
	BrandID      string `json:"brand_id" gorm:"primaryKey;column:brand_id"`
	Name         string `json:"name"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`

	Datasets []SemaDataset `json:"datasets,omitempty" gorm:"foreignKey:BrandID"`
}

func (b *SemaBrand) String() string {
	return fmt.Sprintf("%s :: %s", b.BrandID, b.Name)
}

// SemaDataset is the unit of licensing granularity. It owns products and is
// linked to the vehicles its license covers.
type SemaDataset struct {
	DatasetID    int    `json:"dataset_id" gorm:"primaryKey;column:dataset_id"`
	Name         string `json:"name"`
	BrandID      string `json:"brand_id" gorm:"index"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`

	Brand    *SemaBrand    `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
	Vehicles []SemaVehicle `json:"vehicles,omitempty" gorm:"many2many:sema_dataset_vehicles"`
}

func (d *SemaDataset) String() string {
	return fmt.Sprintf("%d :: %s", d.DatasetID, d.Name)
}

type SemaYear struct {
	Year         int  `json:"year" gorm:"primaryKey;column:year"`
	IsAuthorized bool `json:"is_authorized"`
	IsRelevant   bool `json:"is_relevant"`
}

func (y *SemaYear) String() string {
	return fmt.Sprintf("%d", y.Year)
}

type SemaMake struct {
	MakeID       int    `json:"make_id" gorm:"primaryKey;column:make_id"`
	Name         string `json:"name"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`
}

func (m *SemaMake) String() string {
	return fmt.Sprintf("%d :: %s", m.MakeID, m.Name)
}

type SemaModel struct {
	ModelID      int    `json:"model_id" gorm:"primaryKey;column:model_id"`
	Name         string `json:"name"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`
}

func (m *SemaModel) String() string {
	return fmt.Sprintf("%d :: %s", m.ModelID, m.Name)
}

type SemaSubmodel struct {
	SubmodelID   int    `json:"submodel_id" gorm:"primaryKey;column:submodel_id"`
	Name         string `json:"name"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`
}

func (s *SemaSubmodel) String() string {
	return fmt.Sprintf("%d :: %s", s.SubmodelID, s.Name)
}

// SemaMakeYear joins a year to a make. The upstream API exposes no id for
// the pair, so the row carries a locally generated surrogate key and a
// unique (year, make) index.
type SemaMakeYear struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	YearID       int       `json:"year" gorm:"column:year_id;uniqueIndex:idx_make_year"`
	MakeID       int       `json:"make_id" gorm:"uniqueIndex:idx_make_year"`
	IsAuthorized bool      `json:"is_authorized"`
	IsRelevant   bool      `json:"is_relevant"`

	Year *SemaYear `json:"year_obj,omitempty" gorm:"foreignKey:YearID"`
	Make *SemaMake `json:"make,omitempty" gorm:"foreignKey:MakeID"`
}

func (my *SemaMakeYear) BeforeCreate(tx *gorm.DB) error {
	if my.ID == uuid.Nil {
		my.ID = uuid.New()
	}
	return nil
}

func (my *SemaMakeYear) String() string {
	return fmt.Sprintf("%d :: make %d", my.YearID, my.MakeID)
}

type SemaBaseVehicle struct {
	BaseVehicleID int       `json:"base_vehicle_id" gorm:"primaryKey;column:base_vehicle_id"`
	MakeYearID    uuid.UUID `json:"make_year_id" gorm:"type:uuid;index"`
	ModelID       int       `json:"model_id" gorm:"index"`
	IsAuthorized  bool      `json:"is_authorized"`
	IsRelevant    bool      `json:"is_relevant"`

	MakeYear *SemaMakeYear `json:"make_year,omitempty" gorm:"foreignKey:MakeYearID"`
	Model    *SemaModel    `json:"model,omitempty" gorm:"foreignKey:ModelID"`
}

func (bv *SemaBaseVehicle) String() string {
	return fmt.Sprintf("%d", bv.BaseVehicleID)
}

// SemaVehicle is the leaf fitment entity. Its relevance ultimately gates
// whether a product is eligible for publication.
type SemaVehicle struct {
	VehicleID     int  `json:"vehicle_id" gorm:"primaryKey;column:vehicle_id"`
	BaseVehicleID int  `json:"base_vehicle_id" gorm:"index"`
	SubmodelID    int  `json:"submodel_id" gorm:"index"`
	IsAuthorized  bool `json:"is_authorized"`
	IsRelevant    bool `json:"is_relevant"`

	BaseVehicle *SemaBaseVehicle `json:"base_vehicle,omitempty" gorm:"foreignKey:BaseVehicleID"`
	Submodel    *SemaSubmodel    `json:"submodel,omitempty" gorm:"foreignKey:SubmodelID"`
}

func (v *SemaVehicle) String() string {
	return fmt.Sprintf("%d", v.VehicleID)
}

// SemaEngine is a per-vehicle engine configuration.
type SemaEngine struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	VehicleID    int       `json:"vehicle_id" gorm:"index"`
	Litre        string    `json:"litre"`
	Cylinders    string    `json:"cylinders"`
	BlockType    string    `json:"block_type"`
	FuelType     string    `json:"fuel_type"`
	IsAuthorized bool      `json:"is_authorized"`
	IsRelevant   bool      `json:"is_relevant"`

	Vehicle *SemaVehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

func (e *SemaEngine) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *SemaEngine) String() string {
	return fmt.Sprintf("vehicle %d :: %sL %s", e.VehicleID, e.Litre, e.FuelType)
}

// SemaCategory is a node in the 3-level category tree. Parent links are
// many-to-many and add-only during sync; the level is derived from link
// cardinality, never stored.
type SemaCategory struct {
	CategoryID   int    `json:"category_id" gorm:"primaryKey;column:category_id"`
	Name         string `json:"name"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`

	Parents []*SemaCategory `json:"parents,omitempty" gorm:"many2many:sema_category_parents;joinForeignKey:CategoryID;joinReferences:ParentID"`
}

func (c *SemaCategory) String() string {
	return fmt.Sprintf("%d :: %s", c.CategoryID, c.Name)
}

// CategoryLevel derives the tree level from link cardinality: a root has
// children but no parent, a leaf has a parent but no children, a branch has
// both. A node with neither is invalid and yields an empty level.
func CategoryLevel(hasParents, hasChildren bool) string {
	switch {
	case !hasParents && hasChildren:
		return "1"
	case hasParents && hasChildren:
		return "2"
	case hasParents && !hasChildren:
		return "3"
	default:
		return ""
	}
}

// SemaProduct is the fitment-and-content record.
type SemaProduct struct {
	ProductID    int    `json:"product_id" gorm:"primaryKey;column:product_id"`
	PartNumber   string `json:"part_number" gorm:"index"`
	DatasetID    int    `json:"dataset_id" gorm:"index"`
	HTML         string `json:"html"`
	IsAuthorized bool   `json:"is_authorized"`
	IsRelevant   bool   `json:"is_relevant"`

	Dataset        *SemaDataset        `json:"dataset,omitempty" gorm:"foreignKey:DatasetID"`
	Categories     []SemaCategory      `json:"categories,omitempty" gorm:"many2many:sema_product_categories"`
	Vehicles       []SemaVehicle       `json:"vehicles,omitempty" gorm:"many2many:sema_product_vehicles"`
	PiesAttributes []SemaPiesAttribute `json:"pies_attributes,omitempty" gorm:"foreignKey:ProductID"`
}

func (p *SemaProduct) String() string {
	return fmt.Sprintf("%d :: %s", p.ProductID, p.PartNumber)
}

// SemaPiesAttribute is one standardized PIES attribute of a product, keyed
// by segment code.
type SemaPiesAttribute struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID int       `json:"product_id" gorm:"index;uniqueIndex:idx_pies_slot"`
	Segment   string    `json:"segment" gorm:"uniqueIndex:idx_pies_slot"`
	PiesName  string    `json:"pies_name"`
	Value     string    `json:"value"`
}

func (a *SemaPiesAttribute) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsDescription reports whether the attribute belongs to the description
// segment family (C10_DES*, C10_EXT*).
func (a *SemaPiesAttribute) IsDescription() bool {
	return strings.HasPrefix(a.Segment, "C10_DES") || strings.HasPrefix(a.Segment, "C10_EXT")
}

// IsDigitalAsset reports whether the attribute carries an asset URL.
func (a *SemaPiesAttribute) IsDigitalAsset() bool {
	return strings.HasSuffix(a.PiesName, "URL")
}
