package catalog

import (
	"context"
	"errors"
	"fmt"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/sync"

	"gorm.io/gorm"
)

// Linker creates the cross-system item rows that join a Premier part to
// its SEMA counterpart. Matching runs through the vendor table: the
// Premier manufacturer names a vendor, the vendor names a SEMA brand, and
// within that brand's datasets the Premier vendor part number must equal
// the SEMA part number.
type Linker struct {
	DB     *gorm.DB
	Logger *logger.Logger
}

// LinkItems creates items for unlinked Premier products and attaches SEMA
// products to items still missing their fitment side.
func (l *Linker) LinkItems(ctx context.Context) []string {
	msgs := l.linkPremier()
	msgs = append(msgs, l.attachSema()...)
	if len(msgs) == 0 {
		msgs = append(msgs, sync.AllUpToDateMsg("Item"))
	}
	return msgs
}

func (l *Linker) linkPremier() []string {
	var products []models.PremierProduct
	err := l.DB.
		Joins("LEFT JOIN items ON items.premier_product_id = premier_products.premier_part_number").
		Where("items.id IS NULL").
		Find(&products).Error
	if err != nil {
		return []string{sync.ErrorMsg("Item", err)}
	}

	var msgs []string
	for i := range products {
		product := &products[i]
		item := models.Item{PremierProductID: &product.PremierPartNumber}

		semaProduct, err := l.matchSema(product)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg("Item", product.String(), err))
			continue
		}
		if semaProduct != nil {
			item.SemaProductID = &semaProduct.ProductID
		}

		if err := l.DB.Create(&item).Error; err != nil {
			msgs = append(msgs, sync.RecordErrorMsg("Item", product.String(), err))
			continue
		}
		msgs = append(msgs, sync.CreatedMsg("Item", item.String()))
	}
	return msgs
}

// attachSema fills in the SEMA side of items created before the matching
// SEMA product was imported.
func (l *Linker) attachSema() []string {
	var items []models.Item
	err := l.DB.Preload("PremierProduct").
		Where("sema_product_id IS NULL AND premier_product_id IS NOT NULL").
		Find(&items).Error
	if err != nil {
		return []string{sync.ErrorMsg("Item", err)}
	}

	var msgs []string
	for i := range items {
		item := &items[i]
		if item.PremierProduct == nil {
			continue
		}
		semaProduct, err := l.matchSema(item.PremierProduct)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg("Item", item.String(), err))
			continue
		}
		if semaProduct == nil {
			continue
		}
		item.SemaProductID = &semaProduct.ProductID
		if err := l.DB.Save(item).Error; err != nil {
			msgs = append(msgs, sync.RecordErrorMsg("Item", item.String(), err))
			continue
		}
		msgs = append(msgs, sync.UpdatedMsg("Item", item.String(), []sync.Delta{
			{Field: "sema_product", Old: "", New: semaProduct.String()},
		}))
	}
	return msgs
}

// matchSema resolves the SEMA product for a Premier part, or nil when no
// vendor or counterpart exists yet. More than one counterpart within the
// brand is an error, never a guess.
func (l *Linker) matchSema(product *models.PremierProduct) (*models.SemaProduct, error) {
	var vendor models.Vendor
	err := l.DB.First(&vendor, "premier_manufacturer = ?", product.Manufacturer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if vendor.BrandID == "" || product.VendorPartNumber == "" {
		return nil, nil
	}

	var matches []models.SemaProduct
	err = l.DB.
		Joins("JOIN sema_datasets ON sema_datasets.dataset_id = sema_products.dataset_id").
		Where("sema_datasets.brand_id = ? AND sema_products.part_number = ?",
			vendor.BrandID, product.VendorPartNumber).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("ambiguous part number %q in brand %s",
			product.VendorPartNumber, vendor.BrandID)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}
