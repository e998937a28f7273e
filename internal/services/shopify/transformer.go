package shopify

import (
	"sort"
	"strings"

	"partsync/internal/models"
)

// Transformer maps between the local storefront mirror and the API payload
// shapes.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// WrapBodyHTML applies the outbound body formatting the storefront theme
// expects.
func (t *Transformer) WrapBodyHTML(html string) string {
	if html == "" {
		return ""
	}
	return "<strong>" + html + "</strong>"
}

// UnwrapBodyHTML reverses WrapBodyHTML and undoes the entity escaping the
// platform applies, so pulled values compare equal to local ones.
func (t *Transformer) UnwrapBodyHTML(html string) string {
	html = strings.TrimPrefix(html, "<strong>")
	html = strings.TrimSuffix(html, "</strong>")
	return strings.ReplaceAll(html, "&amp;", "&")
}

// JoinTags renders a tag list into the comma-joined string the API expects,
// sorted by name with duplicates removed.
func (t *Transformer) JoinTags(tags []models.ShopifyTag) string {
	seen := make(map[string]bool)
	var names []string
	for _, tag := range tags {
		if !seen[tag.Name] {
			seen[tag.Name] = true
			names = append(names, tag.Name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// SplitTags parses the API's comma-joined tag string.
func (t *Transformer) SplitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ToPayload renders the local product into the outbound API payload.
func (t *Transformer) ToPayload(product *models.ShopifyProduct) *Product {
	payload := &Product{
		ID:          product.ProductID,
		Title:       product.Title,
		BodyHTML:    t.WrapBodyHTML(product.BodyHTML),
		Vendor:      product.Vendor,
		ProductType: product.ProductType,
		Tags:        t.JoinTags(product.Tags),
	}
	if product.IsPublished {
		payload.Status = "active"
	} else {
		payload.Status = "draft"
	}

	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, Variant{
			ID:         variant.VariantID,
			Title:      variant.Title,
			Price:      variant.Price.StringFixed(2),
			Sku:        variant.SKU,
			Barcode:    variant.Barcode,
			Grams:      variant.Grams,
			Weight:     variant.Weight.StringFixed(2),
			WeightUnit: variant.WeightUnit,
		})
	}
	for _, option := range product.Options {
		payload.Options = append(payload.Options, Option{
			ID:     option.OptionID,
			Name:   option.Name,
			Values: option.Values,
		})
	}
	for _, image := range product.Images {
		payload.Images = append(payload.Images, Image{
			ID:       image.ImageID,
			Src:      image.Src,
			Position: image.Position,
		})
	}
	for _, metafield := range product.Metafields {
		payload.Metafields = append(payload.Metafields, Metafield{
			ID:        metafield.MetafieldID,
			Namespace: metafield.Namespace,
			Key:       metafield.Key,
			Value:     metafield.Value,
			ValueType: metafield.ValueType,
		})
	}
	return payload
}

// ToCollectionPayload renders the local collection into the outbound API
// payload. Smart collection rules match on the collection's tag list.
func (t *Transformer) ToCollectionPayload(collection *models.ShopifyCollection) *SmartCollection {
	payload := &SmartCollection{
		ID:       collection.CollectionID,
		Title:    collection.Title,
		BodyHTML: collection.BodyHTML,
		Handle:   collection.Handle,
	}
	for _, tag := range collection.Tags {
		payload.Rules = append(payload.Rules, Rule{
			Column:    "tag",
			Relation:  "equals",
			Condition: tag.Name,
		})
	}
	return payload
}
