package outbound

import (
	"fmt"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/shopify"
	"partsync/internal/sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StorefrontAPI is the slice of the storefront client the outbound engine
// needs.
type StorefrontAPI interface {
	GetProduct(productID int64) (*shopify.Product, error)
	CreateProduct(product *shopify.Product) (*shopify.Product, error)
	UpdateProduct(product *shopify.Product) (*shopify.Product, error)
	GetSmartCollection(collectionID int64) (*shopify.SmartCollection, error)
	CreateSmartCollection(collection *shopify.SmartCollection) (*shopify.SmartCollection, error)
	UpdateSmartCollection(collection *shopify.SmartCollection) (*shopify.SmartCollection, error)
}

// Engine pushes the local storefront mirror to the platform and pulls the
// platform's canonical copy back for drift detection. Pushes never merge:
// local values win. Pulls apply the canonical payload field by field,
// writing only what changed.
type Engine struct {
	Client      StorefrontAPI
	DB          *gorm.DB
	Transformer *shopify.Transformer
	Logger      *logger.Logger
}

func NewEngine(client StorefrontAPI, db *gorm.DB, logger *logger.Logger) *Engine {
	return &Engine{
		Client:      client,
		DB:          db,
		Transformer: shopify.NewTransformer(),
		Logger:      logger,
	}
}

// CreateRemoteProduct exports a product that has never been pushed. A
// product already carrying a platform id fails the guard, so a retried
// export can never double-create.
func (e *Engine) CreateRemoteProduct(id uuid.UUID) (string, error) {
	product, err := e.loadProduct(id)
	if err != nil {
		return "", err
	}
	if product.ProductID != 0 {
		return "", fmt.Errorf("product %s already has external id %d", product.Title, product.ProductID)
	}

	created, err := e.Client.CreateProduct(e.Transformer.ToPayload(product))
	if err != nil {
		return sync.RecordErrorMsg("Shopify Product", product.String(), err), nil
	}

	product.ProductID = created.ID
	if err := e.DB.Save(product).Error; err != nil {
		return "", err
	}
	// Absorb the canonical payload: the platform normalizes values on
	// create, so the local copy must re-derive from what came back.
	if _, err := e.applyProductPayload(product, created); err != nil {
		return "", err
	}
	return sync.CreatedMsg("Shopify Product", product.String()), nil
}

// UpdateRemoteProduct pushes the local representation of an already
// exported product. Local values always win.
func (e *Engine) UpdateRemoteProduct(id uuid.UUID) (string, error) {
	product, err := e.loadProduct(id)
	if err != nil {
		return "", err
	}
	if product.ProductID == 0 {
		return "", fmt.Errorf("product %s has no external id", product.Title)
	}

	updated, err := e.Client.UpdateProduct(e.Transformer.ToPayload(product))
	if err != nil {
		return sync.RecordErrorMsg("Shopify Product", product.String(), err), nil
	}
	if err := e.absorbRemoteIDs(product, updated); err != nil {
		return "", err
	}
	return sync.UpdatedMsg("Shopify Product", product.String(),
		[]sync.Delta{{Field: "pushed", Old: "", New: fmt.Sprintf("%d", product.ProductID)}}), nil
}

// PullAndReconcileProduct fetches the platform's canonical copy and
// applies it locally, changed fields only.
func (e *Engine) PullAndReconcileProduct(id uuid.UUID) (string, error) {
	product, err := e.loadProduct(id)
	if err != nil {
		return "", err
	}
	if product.ProductID == 0 {
		return "", fmt.Errorf("product %s has no external id", product.Title)
	}

	remote, err := e.Client.GetProduct(product.ProductID)
	if err != nil {
		return sync.RecordErrorMsg("Shopify Product", product.String(), err), nil
	}

	deltas, err := e.applyProductPayload(product, remote)
	if err != nil {
		return "", err
	}
	if len(deltas) == 0 {
		return sync.UpToDateMsg("Shopify Product", product.String()), nil
	}
	return sync.UpdatedMsg("Shopify Product", product.String(), deltas), nil
}

func (e *Engine) loadProduct(id uuid.UUID) (*models.ShopifyProduct, error) {
	var product models.ShopifyProduct
	err := e.DB.Preload("Variants").Preload("Options").Preload("Images").
		Preload("Metafields").Preload("Tags").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// applyProductPayload reconciles the local mirror against a canonical
// payload, returning the per-field deltas it wrote.
func (e *Engine) applyProductPayload(product *models.ShopifyProduct, payload *shopify.Product) ([]sync.Delta, error) {
	var deltas []sync.Delta
	changed := false

	if payload.Title != product.Title {
		deltas = append(deltas, sync.Delta{Field: "title", Old: product.Title, New: payload.Title})
		product.Title = payload.Title
		changed = true
	}
	body := e.Transformer.UnwrapBodyHTML(payload.BodyHTML)
	if body != product.BodyHTML {
		deltas = append(deltas, sync.Delta{Field: "body_html", Old: product.BodyHTML, New: body})
		product.BodyHTML = body
		changed = true
	}
	if payload.Vendor != product.Vendor {
		deltas = append(deltas, sync.Delta{Field: "vendor", Old: product.Vendor, New: payload.Vendor})
		product.Vendor = payload.Vendor
		changed = true
	}
	if payload.ProductType != product.ProductType {
		deltas = append(deltas, sync.Delta{Field: "product_type", Old: product.ProductType, New: payload.ProductType})
		product.ProductType = payload.ProductType
		changed = true
	}
	published := payload.Status == "active"
	if published != product.IsPublished {
		deltas = append(deltas, sync.Delta{
			Field: "is_published",
			Old:   fmt.Sprintf("%t", product.IsPublished),
			New:   fmt.Sprintf("%t", published),
		})
		product.IsPublished = published
		changed = true
	}

	if changed {
		if err := e.DB.Save(product).Error; err != nil {
			return nil, err
		}
	}

	tagDeltas, err := e.applyTags(product, payload.Tags)
	if err != nil {
		return nil, err
	}
	deltas = append(deltas, tagDeltas...)

	variantDeltas, err := e.applyVariants(product, payload.Variants)
	if err != nil {
		return nil, err
	}
	deltas = append(deltas, variantDeltas...)

	imageDeltas, err := e.applyImages(product, payload.Images)
	if err != nil {
		return nil, err
	}
	deltas = append(deltas, imageDeltas...)

	metafieldDeltas, err := e.applyMetafields(product, payload.Metafields)
	if err != nil {
		return nil, err
	}
	deltas = append(deltas, metafieldDeltas...)

	return deltas, nil
}

func (e *Engine) applyTags(product *models.ShopifyProduct, joined string) ([]sync.Delta, error) {
	current := make(map[string]bool, len(product.Tags))
	for i := range product.Tags {
		current[product.Tags[i].Name] = true
	}

	var deltas []sync.Delta
	for _, name := range e.Transformer.SplitTags(joined) {
		if current[name] {
			continue
		}
		var tag models.ShopifyTag
		err := e.DB.Where(models.ShopifyTag{Name: name}).FirstOrCreate(&tag).Error
		if err != nil {
			return nil, err
		}
		if err := e.DB.Model(product).Association("Tags").Append(&tag); err != nil {
			return nil, err
		}
		deltas = append(deltas, sync.Delta{Field: "tags", Old: "", New: name})
	}
	return deltas, nil
}

// applyVariants matches by platform variant id first, then by position for
// variants created before the first push assigned ids.
func (e *Engine) applyVariants(product *models.ShopifyProduct, payload []shopify.Variant) ([]sync.Delta, error) {
	var deltas []sync.Delta
	for i, remote := range payload {
		var local *models.ShopifyVariant
		for j := range product.Variants {
			if product.Variants[j].VariantID == remote.ID {
				local = &product.Variants[j]
				break
			}
		}
		if local == nil && i < len(product.Variants) && product.Variants[i].VariantID == 0 {
			local = &product.Variants[i]
		}
		if local == nil {
			continue
		}

		changed := false
		if local.VariantID != remote.ID {
			local.VariantID = remote.ID
			changed = true
		}
		if remote.Price != "" && local.Price.StringFixed(2) != remote.Price {
			deltas = append(deltas, sync.Delta{Field: "price", Old: local.Price.StringFixed(2), New: remote.Price})
			price, err := parseDecimal(remote.Price)
			if err != nil {
				return nil, err
			}
			local.Price = price
			changed = true
		}
		if remote.Sku != local.SKU {
			deltas = append(deltas, sync.Delta{Field: "sku", Old: local.SKU, New: remote.Sku})
			local.SKU = remote.Sku
			changed = true
		}
		if remote.Barcode != local.Barcode {
			deltas = append(deltas, sync.Delta{Field: "barcode", Old: local.Barcode, New: remote.Barcode})
			local.Barcode = remote.Barcode
			changed = true
		}
		if remote.Grams != 0 && remote.Grams != local.Grams {
			deltas = append(deltas, sync.Delta{
				Field: "grams",
				Old:   fmt.Sprintf("%d", local.Grams),
				New:   fmt.Sprintf("%d", remote.Grams),
			})
			local.Grams = remote.Grams
			changed = true
		}
		if changed {
			if err := e.DB.Save(local).Error; err != nil {
				return nil, err
			}
		}
	}
	return deltas, nil
}

func (e *Engine) applyImages(product *models.ShopifyProduct, payload []shopify.Image) ([]sync.Delta, error) {
	var deltas []sync.Delta
	for _, remote := range payload {
		var local *models.ShopifyImage
		for j := range product.Images {
			if product.Images[j].ImageID == remote.ID ||
				(product.Images[j].ImageID == 0 && product.Images[j].Src == remote.Src) {
				local = &product.Images[j]
				break
			}
		}
		if local == nil {
			image := models.ShopifyImage{
				ShopifyProductID: product.ID,
				ImageID:          remote.ID,
				Src:              remote.Src,
				Position:         remote.Position,
			}
			if err := e.DB.Create(&image).Error; err != nil {
				return nil, err
			}
			product.Images = append(product.Images, image)
			deltas = append(deltas, sync.Delta{Field: "images", Old: "", New: remote.Src})
			continue
		}

		changed := false
		if local.ImageID != remote.ID {
			local.ImageID = remote.ID
			changed = true
		}
		if remote.Position != 0 && local.Position != remote.Position {
			local.Position = remote.Position
			changed = true
		}
		if changed {
			if err := e.DB.Save(local).Error; err != nil {
				return nil, err
			}
		}
	}
	return deltas, nil
}

func (e *Engine) applyMetafields(product *models.ShopifyProduct, payload []shopify.Metafield) ([]sync.Delta, error) {
	var deltas []sync.Delta
	for _, remote := range payload {
		var local *models.ShopifyMetafield
		for j := range product.Metafields {
			if product.Metafields[j].Namespace == remote.Namespace &&
				product.Metafields[j].Key == remote.Key {
				local = &product.Metafields[j]
				break
			}
		}
		if local == nil {
			metafield := models.ShopifyMetafield{
				ShopifyProductID: &product.ID,
				MetafieldID:      remote.ID,
				OwnerResource:    "product",
				Namespace:        remote.Namespace,
				Key:              remote.Key,
				Value:            remote.Value,
				ValueType:        remote.ValueType,
			}
			if err := e.DB.Create(&metafield).Error; err != nil {
				return nil, err
			}
			product.Metafields = append(product.Metafields, metafield)
			deltas = append(deltas, sync.Delta{
				Field: "metafield " + metafield.String(), Old: "", New: remote.Value,
			})
			continue
		}

		changed := false
		if local.MetafieldID != remote.ID {
			local.MetafieldID = remote.ID
			changed = true
		}
		if local.Value != remote.Value {
			deltas = append(deltas, sync.Delta{
				Field: "metafield " + local.String(), Old: local.Value, New: remote.Value,
			})
			local.Value = remote.Value
			changed = true
		}
		if changed {
			if err := e.DB.Save(local).Error; err != nil {
				return nil, err
			}
		}
	}
	return deltas, nil
}

// absorbRemoteIDs stores platform-assigned ids after a push without
// touching local field values.
func (e *Engine) absorbRemoteIDs(product *models.ShopifyProduct, payload *shopify.Product) error {
	for i, remote := range payload.Variants {
		if i < len(product.Variants) && product.Variants[i].VariantID == 0 {
			product.Variants[i].VariantID = remote.ID
			if err := e.DB.Save(&product.Variants[i]).Error; err != nil {
				return err
			}
		}
	}
	for _, remote := range payload.Images {
		for j := range product.Images {
			if product.Images[j].ImageID == 0 && product.Images[j].Src == remote.Src {
				product.Images[j].ImageID = remote.ID
				if err := e.DB.Save(&product.Images[j]).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}
