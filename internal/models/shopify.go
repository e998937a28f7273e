package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShopifyProduct mirrors a storefront product. ProductID is the
// platform-assigned id, zero until the product has been exported.
type ShopifyProduct struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID   int64     `json:"product_id" gorm:"index"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	IsPublished bool      `json:"is_published"`
	SEOTitle    string    `json:"seo_title"`
	SEODesc     string    `json:"seo_description"`

	Variants   []ShopifyVariant   `json:"variants,omitempty" gorm:"foreignKey:ShopifyProductID"`
	Options    []ShopifyOption    `json:"options,omitempty" gorm:"foreignKey:ShopifyProductID"`
	Images     []ShopifyImage     `json:"images,omitempty" gorm:"foreignKey:ShopifyProductID"`
	Metafields []ShopifyMetafield `json:"metafields,omitempty" gorm:"foreignKey:ShopifyProductID"`
	Tags       []ShopifyTag       `json:"tags,omitempty" gorm:"many2many:shopify_product_tags"`

	Calculator *ProductCalculator `json:"calculator,omitempty" gorm:"foreignKey:ShopifyProductID"`
}

func (p *ShopifyProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *ShopifyProduct) String() string {
	return fmt.Sprintf("%d :: %s", p.ProductID, p.Title)
}

type ShopifyVariant struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ShopifyProductID uuid.UUID `json:"shopify_product_id" gorm:"type:uuid;index"`
	VariantID        int64     `json:"variant_id" gorm:"index"`
	Title            string    `json:"title"`

	Price          decimal.Decimal `json:"price" gorm:"type:numeric(10,2)"`
	CompareAtPrice decimal.Decimal `json:"compare_at_price" gorm:"type:numeric(10,2)"`
	CostPerItem    decimal.Decimal `json:"cost_per_item" gorm:"type:numeric(10,2)"`

	SKU        string          `json:"sku"`
	Barcode    string          `json:"barcode"`
	Grams      int             `json:"grams"`
	Weight     decimal.Decimal `json:"weight" gorm:"type:numeric(10,2)"`
	WeightUnit string          `json:"weight_unit"`
}

func (v *ShopifyVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *ShopifyVariant) String() string {
	return fmt.Sprintf("%d :: %s", v.VariantID, v.SKU)
}

type ShopifyOption struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ShopifyProductID uuid.UUID      `json:"shopify_product_id" gorm:"type:uuid;index"`
	OptionID         int64          `json:"option_id"`
	Name             string         `json:"name"`
	Values           pq.StringArray `json:"values" gorm:"type:text[]"`
}

func (o *ShopifyOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type ShopifyImage struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ShopifyProductID uuid.UUID `json:"shopify_product_id" gorm:"type:uuid;index"`
	ImageID          int64     `json:"image_id"`
	Src              string    `json:"src"`
	Position         int       `json:"position"`
}

func (i *ShopifyImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ShopifyMetafield occupies one logical slot per owning object: the
// (owner, namespace, key) tuple is unique.
type ShopifyMetafield struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ShopifyProductID *uuid.UUID `json:"shopify_product_id" gorm:"type:uuid;uniqueIndex:idx_metafield_slot"`
	CollectionID     *uuid.UUID `json:"collection_id" gorm:"type:uuid;uniqueIndex:idx_metafield_slot"`
	MetafieldID      int64      `json:"metafield_id"`
	OwnerResource    string     `json:"owner_resource" gorm:"uniqueIndex:idx_metafield_slot"`
	Namespace        string     `json:"namespace" gorm:"uniqueIndex:idx_metafield_slot"`
	Key              string     `json:"key" gorm:"uniqueIndex:idx_metafield_slot"`
	Value            string     `json:"value"`
	ValueType        string     `json:"value_type"`
}

func (m *ShopifyMetafield) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *ShopifyMetafield) String() string {
	return fmt.Sprintf("%s.%s", m.Namespace, m.Key)
}

type ShopifyTag struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"uniqueIndex"`
}

func (t *ShopifyTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *ShopifyTag) String() string {
	return t.Name
}

// ShopifyCollection mirrors a storefront smart collection. The parent link
// forms the same 3-level tree as the category tree it is computed from.
type ShopifyCollection struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CollectionID int64      `json:"collection_id" gorm:"index"`
	Title        string     `json:"title"`
	BodyHTML     string     `json:"body_html"`
	Handle       string     `json:"handle"`
	IsPublished  bool       `json:"is_published"`
	ParentID     *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`

	Parent *ShopifyCollection `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Tags   []ShopifyTag       `json:"tags,omitempty" gorm:"many2many:shopify_collection_tags"`

	Calculator *CollectionCalculator `json:"calculator,omitempty" gorm:"foreignKey:CollectionID2"`
}

func (c *ShopifyCollection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *ShopifyCollection) String() string {
	return fmt.Sprintf("%d :: %s", c.CollectionID, c.Title)
}

// ProductCalculator stores, per output field of a storefront product, the
// choice of which upstream source feeds it. It never stores computed values.
type ProductCalculator struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ShopifyProductID uuid.UUID `json:"shopify_product_id" gorm:"type:uuid;uniqueIndex"`

	TitleChoice       string `json:"title_choice" gorm:"default:sema_description_short"`
	BodyHTMLChoice    string `json:"body_html_choice" gorm:"default:sema_description_extended"`
	VendorChoice      string `json:"vendor_choice" gorm:"default:vendor_slug"`
	PriceBaseChoice   string `json:"price_base_choice" gorm:"default:premier_cost_cad"`
	PriceMarkupChoice string `json:"price_markup_choice" gorm:"default:0.20"`
	SKUChoice         string `json:"sku_choice" gorm:"default:premier_part_number"`
	BarcodeChoice     string `json:"barcode_choice" gorm:"default:premier_upc"`
	WeightChoice      string `json:"weight_choice" gorm:"default:premier_weight"`
	ImagesChoice      string `json:"images_choice" gorm:"default:sema_digital_assets"`

	TagsChoices       pq.StringArray `json:"tags_choices" gorm:"type:text[]"`
	MetafieldsChoices pq.StringArray `json:"metafields_choices" gorm:"type:text[]"`

	TitleCustom    string `json:"title_custom"`
	BodyHTMLCustom string `json:"body_html_custom"`
	SKUCustom      string `json:"sku_custom"`
	BarcodeCustom  string `json:"barcode_custom"`
}

func (c *ProductCalculator) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CollectionCalculator is the collection-side counterpart of
// ProductCalculator.
type CollectionCalculator struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CollectionID2 uuid.UUID `json:"collection_id" gorm:"type:uuid;column:collection_id;uniqueIndex"`

	TitleChoice string         `json:"title_choice" gorm:"default:category_path"`
	TagsChoices pq.StringArray `json:"tags_choices" gorm:"type:text[]"`
	TitleCustom string         `json:"title_custom"`
}

func (c *CollectionCalculator) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
