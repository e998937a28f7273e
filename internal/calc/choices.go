package calc

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Named value sources a calculator choice can select. A choice outside the
// enumeration for its field is rejected on update, never silently ignored.
const (
	SourceSemaDescriptionShort    = "sema_description_short"
	SourceSemaDescriptionExtended = "sema_description_extended"
	SourceSemaHTML                = "sema_html"
	SourceSemaDigitalAssets       = "sema_digital_assets"

	SourcePremierDescription   = "premier_description"
	SourcePremierPartNumber    = "premier_part_number"
	SourcePremierVendorNumber  = "premier_vendor_part_number"
	SourcePremierUPC           = "premier_upc"
	SourcePremierWeight        = "premier_weight"
	SourcePremierPrimaryImage  = "premier_primary_image"
	SourcePremierCostCAD       = "premier_cost_cad"
	SourcePremierCostUSD       = "premier_cost_usd"
	SourcePremierJobberCAD     = "premier_jobber_cad"
	SourcePremierJobberUSD     = "premier_jobber_usd"
	SourcePremierMSRPCAD       = "premier_msrp_cad"
	SourcePremierMSRPUSD       = "premier_msrp_usd"
	SourcePremierMAPCAD        = "premier_map_cad"
	SourcePremierMAPUSD        = "premier_map_usd"
	SourceVendorSlug           = "vendor_slug"
	SourcePremierManufacturer  = "premier_manufacturer"

	SourceCategoryPath = "category_path"
	SourceCustom       = "custom"
)

// Composite tag sources. A custom tag embeds its literal value after the
// prefix, e.g. "custom_tag:ships-free".
const (
	TagSourceVendor     = "vendor_tags"
	TagSourceCollection = "collection_tags"
	tagSourceCustom     = "custom_tag:"
)

// Metafield sources.
const (
	MetafieldSourceDescriptionExtended = "sema_description_extended"
	MetafieldSourceDimensions          = "premier_dimensions"
)

var titleChoices = map[string]bool{
	SourceSemaDescriptionShort:    true,
	SourceSemaDescriptionExtended: true,
	SourcePremierDescription:      true,
	SourceCustom:                  true,
}

var bodyHTMLChoices = map[string]bool{
	SourceSemaDescriptionExtended: true,
	SourceSemaHTML:                true,
	SourceCustom:                  true,
}

var vendorChoices = map[string]bool{
	SourceVendorSlug:          true,
	SourcePremierManufacturer: true,
}

var priceBaseChoices = map[string]bool{
	SourcePremierCostCAD:   true,
	SourcePremierCostUSD:   true,
	SourcePremierJobberCAD: true,
	SourcePremierJobberUSD: true,
	SourcePremierMSRPCAD:   true,
	SourcePremierMSRPUSD:   true,
	SourcePremierMAPCAD:    true,
	SourcePremierMAPUSD:    true,
}

var skuChoices = map[string]bool{
	SourcePremierPartNumber:   true,
	SourcePremierVendorNumber: true,
	SourceCustom:              true,
}

var barcodeChoices = map[string]bool{
	SourcePremierUPC: true,
	SourceCustom:     true,
}

var weightChoices = map[string]bool{
	SourcePremierWeight: true,
}

var imagesChoices = map[string]bool{
	SourceSemaDigitalAssets:   true,
	SourcePremierPrimaryImage: true,
}

var collectionTitleChoices = map[string]bool{
	SourceCategoryPath: true,
	SourceCustom:       true,
}

// ValidateChoice checks one scalar-field choice against its enumeration.
func ValidateChoice(field, choice string) error {
	var allowed map[string]bool
	switch field {
	case "title":
		allowed = titleChoices
	case "body_html":
		allowed = bodyHTMLChoices
	case "vendor":
		allowed = vendorChoices
	case "price_base":
		allowed = priceBaseChoices
	case "price_markup":
		_, err := ParseMarkup(choice)
		return err
	case "sku":
		allowed = skuChoices
	case "barcode":
		allowed = barcodeChoices
	case "weight":
		allowed = weightChoices
	case "images":
		allowed = imagesChoices
	case "collection_title":
		allowed = collectionTitleChoices
	default:
		return fmt.Errorf("unknown calculator field %q", field)
	}
	if !allowed[choice] {
		return fmt.Errorf("invalid choice %q for field %s", choice, field)
	}
	return nil
}

// ValidateTagChoice checks one entry of the tags choice set.
func ValidateTagChoice(choice string) error {
	if choice == TagSourceVendor || choice == TagSourceCollection {
		return nil
	}
	if strings.HasPrefix(choice, tagSourceCustom) && len(choice) > len(tagSourceCustom) {
		return nil
	}
	return fmt.Errorf("invalid tag source %q", choice)
}

// ValidateMetafieldChoice checks one entry of the metafields choice set.
func ValidateMetafieldChoice(choice string) error {
	switch choice {
	case MetafieldSourceDescriptionExtended, MetafieldSourceDimensions:
		return nil
	}
	return fmt.Errorf("invalid metafield source %q", choice)
}

var markupStep = decimal.NewFromFloat(0.05)
var markupMax = decimal.NewFromFloat(0.40)

// ParseMarkup parses a markup rate choice. Valid rates run from 0.00 to
// 0.40 in 0.05 steps.
func ParseMarkup(choice string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(choice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid markup rate %q", choice)
	}
	if rate.IsNegative() || rate.GreaterThan(markupMax) {
		return decimal.Zero, fmt.Errorf("markup rate %s out of range", rate)
	}
	if !rate.Mod(markupStep).IsZero() {
		return decimal.Zero, fmt.Errorf("markup rate %s is not a 0.05 step", rate)
	}
	return rate, nil
}
