package calc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"partsync/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Field is one computed output field. Result nil means the selected source
// has no data: the field has no opinion, reports as matching and is never
// pushed.
type Field struct {
	Name    string
	Result  *string
	Current string
}

// Match reports whether the stored value already equals the computed one.
// A nil result always matches.
func (f Field) Match() bool {
	return f.Result == nil || *f.Result == f.Current
}

// Change records one applied field write.
type Change struct {
	Field string
	Old   string
	New   string
}

// ProductCalc computes every output field of one storefront product from
// its stored choices and the upstream Premier and SEMA records linked
// through the item.
type ProductCalc struct {
	DB *gorm.DB

	Product  *models.ShopifyProduct
	Settings *models.ProductCalculator
	Premier  *models.PremierProduct
	Sema     *models.SemaProduct
	Vendor   *models.Vendor
}

// LoadProduct assembles the calculation context for one storefront
// product. Upstream sides missing from the item linkage stay nil and their
// dependent fields compute to no opinion.
func LoadProduct(db *gorm.DB, shopifyProductID uuid.UUID) (*ProductCalc, error) {
	var product models.ShopifyProduct
	err := db.Preload("Variants").Preload("Images").Preload("Metafields").
		Preload("Tags").Preload("Calculator").
		First(&product, "id = ?", shopifyProductID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product.Calculator == nil {
		product.Calculator = &models.ProductCalculator{ShopifyProductID: product.ID}
		if err := db.Create(product.Calculator).Error; err != nil {
			return nil, fmt.Errorf("failed to create calculator: %w", err)
		}
		// Re-read so column defaults populate the choices.
		if err := db.First(product.Calculator, "id = ?", product.Calculator.ID).Error; err != nil {
			return nil, err
		}
	}

	pc := &ProductCalc{DB: db, Product: &product, Settings: product.Calculator}

	var item models.Item
	err = db.First(&item, "shopify_product_id = ?", product.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pc, nil
		}
		return nil, err
	}

	if item.PremierProductID != nil {
		var premier models.PremierProduct
		err := db.First(&premier, "premier_part_number = ?", *item.PremierProductID).Error
		if err == nil {
			pc.Premier = &premier
			var vendor models.Vendor
			if db.First(&vendor, "premier_manufacturer = ?", premier.Manufacturer).Error == nil {
				pc.Vendor = &vendor
			}
		}
	}
	if item.SemaProductID != nil {
		var sema models.SemaProduct
		err := db.Preload("PiesAttributes").Preload("Categories").
			First(&sema, "product_id = ?", *item.SemaProductID).Error
		if err == nil {
			pc.Sema = &sema
		}
	}
	return pc, nil
}

func strPtr(s string) *string { return &s }

// optional converts a possibly-empty string into an opinion: empty means
// the source has no data.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (pc *ProductCalc) piesValue(segmentPrefix string) string {
	if pc.Sema == nil {
		return ""
	}
	for i := range pc.Sema.PiesAttributes {
		if strings.HasPrefix(pc.Sema.PiesAttributes[i].Segment, segmentPrefix) {
			return pc.Sema.PiesAttributes[i].Value
		}
	}
	return ""
}

func (pc *ProductCalc) Title() Field {
	f := Field{Name: "title", Current: pc.Product.Title}
	switch pc.Settings.TitleChoice {
	case SourceSemaDescriptionShort:
		f.Result = optional(pc.piesValue("C10_DES"))
	case SourceSemaDescriptionExtended:
		f.Result = optional(pc.piesValue("C10_EXT"))
	case SourcePremierDescription:
		if pc.Premier != nil {
			f.Result = optional(pc.Premier.Description)
		}
	case SourceCustom:
		f.Result = optional(pc.Settings.TitleCustom)
	}
	return f
}

func (pc *ProductCalc) BodyHTML() Field {
	f := Field{Name: "body_html", Current: pc.Product.BodyHTML}
	switch pc.Settings.BodyHTMLChoice {
	case SourceSemaDescriptionExtended:
		f.Result = optional(pc.piesValue("C10_EXT"))
	case SourceSemaHTML:
		if pc.Sema != nil {
			f.Result = optional(pc.Sema.HTML)
		}
	case SourceCustom:
		f.Result = optional(pc.Settings.BodyHTMLCustom)
	}
	return f
}

func (pc *ProductCalc) VendorField() Field {
	f := Field{Name: "vendor", Current: pc.Product.Vendor}
	switch pc.Settings.VendorChoice {
	case SourceVendorSlug:
		if pc.Vendor != nil {
			f.Result = optional(pc.Vendor.Slug)
		}
	case SourcePremierManufacturer:
		if pc.Premier != nil {
			f.Result = optional(pc.Premier.Manufacturer)
		}
	}
	return f
}

func (pc *ProductCalc) priceBase() *decimal.Decimal {
	if pc.Premier == nil {
		return nil
	}
	var base decimal.Decimal
	switch pc.Settings.PriceBaseChoice {
	case SourcePremierCostCAD:
		base = pc.Premier.CostCAD
	case SourcePremierCostUSD:
		base = pc.Premier.CostUSD
	case SourcePremierJobberCAD:
		base = pc.Premier.JobberCAD
	case SourcePremierJobberUSD:
		base = pc.Premier.JobberUSD
	case SourcePremierMSRPCAD:
		base = pc.Premier.MSRPCAD
	case SourcePremierMSRPUSD:
		base = pc.Premier.MSRPUSD
	case SourcePremierMAPCAD:
		base = pc.Premier.MAPCAD
	case SourcePremierMAPUSD:
		base = pc.Premier.MAPUSD
	default:
		return nil
	}
	if !base.IsPositive() {
		return nil
	}
	return &base
}

// Price computes base + base*markup rounded to 2 decimal places. A missing
// or non-positive base yields no opinion.
func (pc *ProductCalc) Price() Field {
	f := Field{Name: "price", Current: pc.currentPrice()}
	base := pc.priceBase()
	if base == nil {
		return f
	}
	rate, err := ParseMarkup(pc.Settings.PriceMarkupChoice)
	if err != nil {
		return f
	}
	result := base.Add(base.Mul(rate)).Round(2)
	f.Result = strPtr(result.StringFixed(2))
	return f
}

func (pc *ProductCalc) currentPrice() string {
	if len(pc.Product.Variants) == 0 {
		return ""
	}
	return pc.Product.Variants[0].Price.StringFixed(2)
}

func (pc *ProductCalc) SKU() Field {
	current := ""
	if len(pc.Product.Variants) > 0 {
		current = pc.Product.Variants[0].SKU
	}
	f := Field{Name: "sku", Current: current}
	switch pc.Settings.SKUChoice {
	case SourcePremierPartNumber:
		if pc.Premier != nil {
			f.Result = optional(pc.Premier.PremierPartNumber)
		}
	case SourcePremierVendorNumber:
		if pc.Premier != nil {
			f.Result = optional(pc.Premier.VendorPartNumber)
		}
	case SourceCustom:
		f.Result = optional(pc.Settings.SKUCustom)
	}
	return f
}

func (pc *ProductCalc) Barcode() Field {
	current := ""
	if len(pc.Product.Variants) > 0 {
		current = pc.Product.Variants[0].Barcode
	}
	f := Field{Name: "barcode", Current: current}
	switch pc.Settings.BarcodeChoice {
	case SourcePremierUPC:
		if pc.Premier != nil {
			f.Result = optional(pc.Premier.UPC)
		}
	case SourceCustom:
		f.Result = optional(pc.Settings.BarcodeCustom)
	}
	return f
}

func (pc *ProductCalc) Weight() Field {
	current := ""
	if len(pc.Product.Variants) > 0 && !pc.Product.Variants[0].Weight.IsZero() {
		current = pc.Product.Variants[0].Weight.StringFixed(2)
	}
	f := Field{Name: "weight", Current: current}
	if pc.Settings.WeightChoice == SourcePremierWeight && pc.Premier != nil &&
		pc.Premier.Weight.IsPositive() {
		f.Result = strPtr(pc.Premier.Weight.StringFixed(2))
	}
	return f
}

// Tags computes the union of the selected tag sources, sorted and deduped
// by value.
func (pc *ProductCalc) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, choice := range pc.Settings.TagsChoices {
		switch {
		case choice == TagSourceVendor:
			if pc.Vendor != nil {
				add(pc.Vendor.Slug)
			}
		case choice == TagSourceCollection:
			for _, title := range pc.collectionTitles() {
				add(title)
			}
		case strings.HasPrefix(choice, tagSourceCustom):
			add(strings.TrimPrefix(choice, tagSourceCustom))
		}
	}
	sort.Strings(tags)
	return tags
}

// collectionTitles resolves the collections on the product's category
// paths and yields their titles as tag values.
func (pc *ProductCalc) collectionTitles() []string {
	if pc.Sema == nil {
		return nil
	}
	var titles []string
	err := pc.DB.Model(&models.ShopifyCollection{}).
		Joins("JOIN category_paths ON category_paths.leaf_collection_id = shopify_collections.id").
		Joins("JOIN sema_product_categories ON sema_product_categories.sema_category_category_id = category_paths.leaf_category_id").
		Where("sema_product_categories.sema_product_product_id = ?", pc.Sema.ProductID).
		Pluck("shopify_collections.title", &titles).Error
	if err != nil {
		return nil
	}
	return titles
}

// Metafields computes the desired metafield values keyed by namespace.key.
func (pc *ProductCalc) Metafields() map[string]string {
	out := make(map[string]string)
	for _, choice := range pc.Settings.MetafieldsChoices {
		switch choice {
		case MetafieldSourceDescriptionExtended:
			if value := pc.piesValue("C10_EXT"); value != "" {
				out["product.description_extended"] = value
			}
		case MetafieldSourceDimensions:
			if pc.Premier != nil && pc.Premier.Length.IsPositive() {
				out["shipping.dimensions"] = fmt.Sprintf("%s x %s x %s",
					pc.Premier.Length.StringFixed(2),
					pc.Premier.Width.StringFixed(2),
					pc.Premier.Height.StringFixed(2))
			}
		}
	}
	return out
}

// Images computes the desired image source URLs. PDF assets and brand
// logos are not product images.
func (pc *ProductCalc) Images() []string {
	var srcs []string
	switch pc.Settings.ImagesChoice {
	case SourceSemaDigitalAssets:
		if pc.Sema == nil {
			return nil
		}
		for i := range pc.Sema.PiesAttributes {
			attr := &pc.Sema.PiesAttributes[i]
			if !attr.IsDigitalAsset() || attr.Value == "" {
				continue
			}
			lower := strings.ToLower(attr.Value)
			if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "logo") {
				continue
			}
			srcs = append(srcs, attr.Value)
		}
	case SourcePremierPrimaryImage:
		if pc.Premier != nil && pc.Premier.PrimaryImage != "" {
			srcs = append(srcs, pc.Premier.PrimaryImage)
		}
	}
	return srcs
}

// Fields returns every scalar field for diagnostics.
func (pc *ProductCalc) Fields() []Field {
	return []Field{
		pc.Title(),
		pc.BodyHTML(),
		pc.VendorField(),
		pc.Price(),
		pc.SKU(),
		pc.Barcode(),
		pc.Weight(),
	}
}

// Apply writes every mismatched field: scalars are overwritten, tags and
// metafields are add-or-update without removal, images are get-or-create
// by source URL.
func (pc *ProductCalc) Apply() ([]Change, error) {
	var changes []Change

	if f := pc.Title(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		pc.Product.Title = *f.Result
	}
	if f := pc.BodyHTML(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		pc.Product.BodyHTML = *f.Result
	}
	if f := pc.VendorField(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		pc.Product.Vendor = *f.Result
	}
	if err := pc.DB.Save(pc.Product).Error; err != nil {
		return nil, err
	}

	variantChanges, err := pc.applyVariant()
	if err != nil {
		return nil, err
	}
	changes = append(changes, variantChanges...)

	tagChanges, err := pc.applyTags()
	if err != nil {
		return nil, err
	}
	changes = append(changes, tagChanges...)

	metafieldChanges, err := pc.applyMetafields()
	if err != nil {
		return nil, err
	}
	changes = append(changes, metafieldChanges...)

	imageChanges, err := pc.applyImages()
	if err != nil {
		return nil, err
	}
	changes = append(changes, imageChanges...)

	return changes, nil
}

func (pc *ProductCalc) applyVariant() ([]Change, error) {
	var variant *models.ShopifyVariant
	if len(pc.Product.Variants) > 0 {
		variant = &pc.Product.Variants[0]
	} else {
		variant = &models.ShopifyVariant{ShopifyProductID: pc.Product.ID}
		if err := pc.DB.Create(variant).Error; err != nil {
			return nil, err
		}
		pc.Product.Variants = append(pc.Product.Variants, *variant)
		variant = &pc.Product.Variants[0]
	}

	var changes []Change
	if f := pc.Price(); !f.Match() {
		price, err := decimal.NewFromString(*f.Result)
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		variant.Price = price
	}
	if f := pc.SKU(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		variant.SKU = *f.Result
	}
	if f := pc.Barcode(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		variant.Barcode = *f.Result
	}
	if f := pc.Weight(); !f.Match() {
		weight, err := decimal.NewFromString(*f.Result)
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		variant.Weight = weight
		variant.WeightUnit = "lb"
	}

	if len(changes) == 0 {
		return nil, nil
	}
	if err := pc.DB.Save(variant).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

func (pc *ProductCalc) applyTags() ([]Change, error) {
	current := make(map[string]bool, len(pc.Product.Tags))
	for i := range pc.Product.Tags {
		current[pc.Product.Tags[i].Name] = true
	}

	var changes []Change
	for _, name := range pc.Tags() {
		if current[name] {
			continue
		}
		var tag models.ShopifyTag
		err := pc.DB.Where(models.ShopifyTag{Name: name}).FirstOrCreate(&tag).Error
		if err != nil {
			return nil, err
		}
		if err := pc.DB.Model(pc.Product).Association("Tags").Append(&tag); err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: "tags", Old: "", New: name})
	}
	return changes, nil
}

func (pc *ProductCalc) applyMetafields() ([]Change, error) {
	desired := pc.Metafields()
	slots := make([]string, 0, len(desired))
	for slot := range desired {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var changes []Change
	for _, slot := range slots {
		value := desired[slot]
		parts := strings.SplitN(slot, ".", 2)
		namespace, key := parts[0], parts[1]

		var existing models.ShopifyMetafield
		err := pc.DB.First(&existing,
			"shopify_product_id = ? AND namespace = ? AND key = ?",
			pc.Product.ID, namespace, key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metafield := models.ShopifyMetafield{
				ShopifyProductID: &pc.Product.ID,
				OwnerResource:    "product",
				Namespace:        namespace,
				Key:              key,
				Value:            value,
				ValueType:        "string",
			}
			if err := pc.DB.Create(&metafield).Error; err != nil {
				return nil, err
			}
			changes = append(changes, Change{Field: "metafield " + slot, Old: "", New: value})
			continue
		}
		if err != nil {
			return nil, err
		}
		if existing.Value == value {
			continue
		}
		changes = append(changes, Change{Field: "metafield " + slot, Old: existing.Value, New: value})
		existing.Value = value
		if err := pc.DB.Save(&existing).Error; err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func (pc *ProductCalc) applyImages() ([]Change, error) {
	current := make(map[string]bool, len(pc.Product.Images))
	for i := range pc.Product.Images {
		current[pc.Product.Images[i].Src] = true
	}

	var changes []Change
	position := len(pc.Product.Images)
	for _, src := range pc.Images() {
		if current[src] {
			continue
		}
		position++
		image := models.ShopifyImage{
			ShopifyProductID: pc.Product.ID,
			Src:              src,
			Position:         position,
		}
		if err := pc.DB.Create(&image).Error; err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: "images", Old: "", New: src})
	}
	return changes, nil
}
