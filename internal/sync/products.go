package sync

import (
	"context"
	"unicode/utf8"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/sema"

	"gorm.io/gorm"
)

// ContentAPI is the slice of the SEMA client the product enrichment
// passes need.
type ContentAPI interface {
	GetProductsByCategory(categoryID int, includeChildren bool, f sema.LookupFilter) ([]sema.ProductRecord, error)
	GetProductHTML(productID int) (string, error)
}

// ProductEnricher runs the per-product enrichment passes that the bulk
// product import cannot cover: category membership, which the API only
// exposes through per-category lookups, and the rendered HTML content,
// which is a per-product fetch.
type ProductEnricher struct {
	Client ContentAPI
	DB     *gorm.DB
	Logger *logger.Logger
}

// UpdateProductCategories links each authorized category to the products
// it contains. Links are add-only, stale ones are left for review.
func (e *ProductEnricher) UpdateProductCategories(ctx context.Context) []string {
	datasetIDs, err := e.authorizedDatasetIDs()
	if err != nil {
		return []string{ErrorMsg("SEMA Product", err)}
	}

	var categories []models.SemaCategory
	if err := e.DB.Where("is_authorized = ?", true).Find(&categories).Error; err != nil {
		return []string{ErrorMsg("SEMA Product", err)}
	}

	var msgs []string
	for _, category := range categories {
		records, err := e.Client.GetProductsByCategory(category.CategoryID, false,
			sema.LookupFilter{DatasetIDs: datasetIDs})
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Category", category.String(), err))
			continue
		}

		for _, record := range records {
			msg, err := e.linkCategory(&category, record.ProductID)
			if err != nil {
				msgs = append(msgs, RecordErrorMsg("SEMA Category", category.String(), err))
				continue
			}
			if msg != "" {
				msgs = append(msgs, msg)
			}
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("SEMA Product"))
	}
	return msgs
}

func (e *ProductEnricher) linkCategory(category *models.SemaCategory, productID int) (string, error) {
	var product models.SemaProduct
	if err := e.DB.First(&product, "product_id = ?", productID).Error; err != nil {
		if notFound(err) {
			// Category lookups can return products outside the imported
			// datasets. Skip them silently.
			return "", nil
		}
		return "", err
	}

	var count int64
	err := e.DB.Table("sema_product_categories").
		Where("sema_product_product_id = ? AND sema_category_category_id = ?",
			product.ProductID, category.CategoryID).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}
	if err := e.DB.Model(&product).Association("Categories").Append(category); err != nil {
		return "", err
	}
	return UpdatedMsg("SEMA Product", product.String(),
		[]Delta{{Field: "categories", Old: "", New: category.String()}}), nil
}

// UpdateProductHTML refreshes the rendered product content one product at
// a time, saving only when the markup actually changed.
func (e *ProductEnricher) UpdateProductHTML(ctx context.Context) []string {
	var products []models.SemaProduct
	if err := e.DB.Where("is_authorized = ?", true).Find(&products).Error; err != nil {
		return []string{ErrorMsg("SEMA Product", err)}
	}

	var msgs []string
	for i := range products {
		product := &products[i]
		html, err := e.Client.GetProductHTML(product.ProductID)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Product", product.String(), err))
			continue
		}

		if product.HTML == html {
			msgs = append(msgs, UpToDateMsg("SEMA Product", product.String()))
			continue
		}

		delta := Delta{Field: "html", Old: truncate(product.HTML), New: truncate(html)}
		product.HTML = html
		if err := e.DB.Save(product).Error; err != nil {
			msgs = append(msgs, RecordErrorMsg("SEMA Product", product.String(), err))
			continue
		}
		msgs = append(msgs, UpdatedMsg("SEMA Product", product.String(), []Delta{delta}))
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("SEMA Product"))
	}
	return msgs
}

func (e *ProductEnricher) authorizedDatasetIDs() ([]int, error) {
	var ids []int
	err := e.DB.Model(&models.SemaDataset{}).
		Where("is_authorized = ?", true).
		Pluck("dataset_id", &ids).Error
	return ids, err
}

// truncate keeps delta messages readable when the value is a whole HTML
// document. The cut lands on a rune boundary so multi-byte content stays
// valid UTF-8.
func truncate(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
