package sync

import (
	"context"
	"fmt"
	"strings"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/services/premier"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PremierAPI is the slice of the Premier client the updater needs.
type PremierAPI interface {
	GetInventory(partNumbers []string) ([]premier.InventoryRecord, error)
	GetPricing(partNumbers []string) ([]premier.PricingRecord, error)
}

// PremierUpdater refreshes inventory and pricing wholesale from the bulk
// API, one chunk of part numbers at a time. A failed chunk produces one
// chunk-level error message and never blocks the chunks after it.
type PremierUpdater struct {
	Client    PremierAPI
	DB        *gorm.DB
	ChunkSize int
	Logger    *logger.Logger
}

const defaultChunkSize = 50

func (u *PremierUpdater) chunkSize() int {
	if u.ChunkSize > 0 {
		return u.ChunkSize
	}
	return defaultChunkSize
}

func chunkify(items []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func (u *PremierUpdater) partNumbers() ([]string, error) {
	var numbers []string
	err := u.DB.Model(&models.PremierProduct{}).
		Order("premier_part_number").
		Pluck("premier_part_number", &numbers).Error
	return numbers, err
}

// UpdateInventory refreshes every product's per-warehouse quantities.
func (u *PremierUpdater) UpdateInventory(ctx context.Context) []string {
	numbers, err := u.partNumbers()
	if err != nil {
		return []string{ErrorMsg("Premier Product", err)}
	}

	var msgs []string
	for _, chunk := range chunkify(numbers, u.chunkSize()) {
		records, err := u.Client.GetInventory(chunk)
		if err != nil {
			msgs = append(msgs, ChunkErrorMsg(chunk, err))
			continue
		}

		byNumber := make(map[string]premier.InventoryRecord, len(records))
		for _, record := range records {
			byNumber[record.ItemNumber] = record
		}

		for _, number := range chunk {
			record, ok := byNumber[number]
			if !ok {
				msgs = append(msgs, RecordErrorMsg("Premier Product", number,
					fmt.Errorf("no inventory data returned")))
				continue
			}
			msg, err := u.applyInventory(number, record)
			if err != nil {
				msgs = append(msgs, RecordErrorMsg("Premier Product", number, err))
				continue
			}
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("Premier Product"))
	}
	return msgs
}

// applyInventory maps warehouse codes through the enumerated warehouse
// table and writes only changed quantities. Warehouses absent from the
// response are cleared to zero.
func (u *PremierUpdater) applyInventory(number string, record premier.InventoryRecord) (string, error) {
	var product models.PremierProduct
	if err := u.DB.First(&product, "premier_part_number = ?", number).Error; err != nil {
		return "", err
	}

	desired := make(map[models.Warehouse]int, len(models.Warehouses))
	for _, warehouse := range models.Warehouses {
		desired[warehouse] = 0
	}
	for _, entry := range record.Inventories {
		if len(entry.WarehouseCode) < 2 {
			return "", fmt.Errorf("bad warehouse code %q", entry.WarehouseCode)
		}
		warehouse := models.Warehouse(strings.ToUpper(entry.WarehouseCode[:2]))
		if _, known := desired[warehouse]; !known {
			return "", fmt.Errorf("unknown warehouse code %q", entry.WarehouseCode)
		}
		desired[warehouse] = entry.QuantityAvailable
	}

	var deltas []Delta
	for _, warehouse := range models.Warehouses {
		current, err := product.Inventory(warehouse)
		if err != nil {
			return "", err
		}
		next := desired[warehouse]
		if current != next {
			deltas = append(deltas, Delta{
				Field: "inventory_" + strings.ToLower(string(warehouse)),
				Old:   fmt.Sprintf("%d", current),
				New:   fmt.Sprintf("%d", next),
			})
			if err := product.SetInventory(warehouse, next); err != nil {
				return "", err
			}
		}
	}

	if len(deltas) == 0 {
		return UpToDateMsg("Premier Product", product.String()), nil
	}
	if err := u.DB.Save(&product).Error; err != nil {
		return "", err
	}
	return UpdatedMsg("Premier Product", product.String(), deltas), nil
}

// UpdatePricing refreshes every product's per-currency price points.
func (u *PremierUpdater) UpdatePricing(ctx context.Context) []string {
	numbers, err := u.partNumbers()
	if err != nil {
		return []string{ErrorMsg("Premier Product", err)}
	}

	var msgs []string
	for _, chunk := range chunkify(numbers, u.chunkSize()) {
		records, err := u.Client.GetPricing(chunk)
		if err != nil {
			msgs = append(msgs, ChunkErrorMsg(chunk, err))
			continue
		}

		byNumber := make(map[string]premier.PricingRecord, len(records))
		for _, record := range records {
			byNumber[record.ItemNumber] = record
		}

		for _, number := range chunk {
			record, ok := byNumber[number]
			if !ok {
				msgs = append(msgs, RecordErrorMsg("Premier Product", number,
					fmt.Errorf("no pricing data returned")))
				continue
			}
			msg, err := u.applyPricing(number, record)
			if err != nil {
				msgs = append(msgs, RecordErrorMsg("Premier Product", number, err))
				continue
			}
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg("Premier Product"))
	}
	return msgs
}

func (u *PremierUpdater) applyPricing(number string, record premier.PricingRecord) (string, error) {
	var product models.PremierProduct
	if err := u.DB.First(&product, "premier_part_number = ?", number).Error; err != nil {
		return "", err
	}

	var deltas []Delta
	for _, price := range record.Pricing {
		points := []struct {
			kind  models.PriceKind
			value float64
		}{
			{models.PriceCost, price.Cost},
			{models.PriceJobber, price.Jobber},
			{models.PriceMSRP, price.MSRP},
			{models.PriceMAP, price.MAP},
		}
		for _, point := range points {
			next := decimal.NewFromFloat(point.value).Round(2)
			current, err := currentPrice(&product, point.kind, price.Currency)
			if err != nil {
				return "", err
			}
			if !current.Equal(next) {
				deltas = append(deltas, Delta{
					Field: fmt.Sprintf("%s_%s", point.kind, strings.ToLower(price.Currency)),
					Old:   current.StringFixed(2),
					New:   next.StringFixed(2),
				})
				if err := product.SetPrice(point.kind, price.Currency, next); err != nil {
					return "", err
				}
			}
		}
	}

	if len(deltas) == 0 {
		return UpToDateMsg("Premier Product", product.String()), nil
	}
	if err := u.DB.Save(&product).Error; err != nil {
		return "", err
	}
	return UpdatedMsg("Premier Product", product.String(), deltas), nil
}

func currentPrice(product *models.PremierProduct, kind models.PriceKind, currency string) (decimal.Decimal, error) {
	switch currency {
	case "CAD":
		switch kind {
		case models.PriceCost:
			return product.CostCAD, nil
		case models.PriceJobber:
			return product.JobberCAD, nil
		case models.PriceMSRP:
			return product.MSRPCAD, nil
		case models.PriceMAP:
			return product.MAPCAD, nil
		}
	case "USD":
		switch kind {
		case models.PriceCost:
			return product.CostUSD, nil
		case models.PriceJobber:
			return product.JobberUSD, nil
		case models.PriceMSRP:
			return product.MSRPUSD, nil
		case models.PriceMAP:
			return product.MAPUSD, nil
		}
	}
	return decimal.Zero, fmt.Errorf("unknown price point %s/%s", kind, currency)
}
