package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor joins a Premier manufacturer name to a SEMA brand and carries the
// storefront vendor slug used for vendor tags.
type Vendor struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PremierManufacturer string    `json:"premier_manufacturer" gorm:"uniqueIndex"`
	BrandID             string    `json:"brand_id" gorm:"index"`
	Slug                string    `json:"slug"`

	Brand *SemaBrand `json:"brand,omitempty" gorm:"foreignKey:BrandID"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *Vendor) String() string {
	return fmt.Sprintf("%s :: %s", v.PremierManufacturer, v.Slug)
}

// Item is the cross-system linkage record joining a Premier part to its
// SEMA fitment counterpart and to the storefront product built from both.
type Item struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	PremierProductID  *string    `json:"premier_product_id" gorm:"uniqueIndex"`
	SemaProductID     *int       `json:"sema_product_id" gorm:"index"`
	ShopifyProductID  *uuid.UUID `json:"shopify_product_id" gorm:"type:uuid;index"`
	IsRelevant        bool       `json:"is_relevant"`

	PremierProduct *PremierProduct `json:"premier_product,omitempty" gorm:"foreignKey:PremierProductID"`
	SemaProduct    *SemaProduct    `json:"sema_product,omitempty" gorm:"foreignKey:SemaProductID"`
	ShopifyProduct *ShopifyProduct `json:"shopify_product_obj,omitempty" gorm:"foreignKey:ShopifyProductID"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *Item) String() string {
	premier := "-"
	if i.PremierProductID != nil {
		premier = *i.PremierProductID
	}
	sema := "-"
	if i.SemaProductID != nil {
		sema = fmt.Sprintf("%d", *i.SemaProductID)
	}
	return fmt.Sprintf("premier %s :: sema %s", premier, sema)
}

// CategoryPath maps a (root, branch, leaf) category triple to the
// (root, branch, leaf) collection triple built from it.
type CategoryPath struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	RootCategoryID   int `json:"root_category_id" gorm:"uniqueIndex:idx_category_path"`
	BranchCategoryID int `json:"branch_category_id" gorm:"uniqueIndex:idx_category_path"`
	LeafCategoryID   int `json:"leaf_category_id" gorm:"uniqueIndex:idx_category_path"`

	RootCollectionID   *uuid.UUID `json:"root_collection_id" gorm:"type:uuid"`
	BranchCollectionID *uuid.UUID `json:"branch_collection_id" gorm:"type:uuid"`
	LeafCollectionID   *uuid.UUID `json:"leaf_collection_id" gorm:"type:uuid"`

	RootCategory   *SemaCategory `json:"root_category,omitempty" gorm:"foreignKey:RootCategoryID"`
	BranchCategory *SemaCategory `json:"branch_category,omitempty" gorm:"foreignKey:BranchCategoryID"`
	LeafCategory   *SemaCategory `json:"leaf_category,omitempty" gorm:"foreignKey:LeafCategoryID"`

	RootCollection   *ShopifyCollection `json:"root_collection,omitempty" gorm:"foreignKey:RootCollectionID"`
	BranchCollection *ShopifyCollection `json:"branch_collection,omitempty" gorm:"foreignKey:BranchCollectionID"`
	LeafCollection   *ShopifyCollection `json:"leaf_collection,omitempty" gorm:"foreignKey:LeafCollectionID"`
}

func (p *CategoryPath) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *CategoryPath) String() string {
	return fmt.Sprintf("%d/%d/%d", p.RootCategoryID, p.BranchCategoryID, p.LeafCategoryID)
}
