package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PremierProduct is the pricing/inventory source of truth, refreshed
// wholesale from the provider's bulk API. The premier part number is the
// primary key.
type PremierProduct struct {
	PremierPartNumber string `json:"premier_part_number" gorm:"primaryKey;column:premier_part_number"`
	VendorPartNumber  string `json:"vendor_part_number" gorm:"index"`
	Description       string `json:"description"`
	Manufacturer      string `json:"manufacturer" gorm:"index"`
	UPC               string `json:"upc"`

	CostCAD   decimal.Decimal `json:"cost_cad" gorm:"type:numeric(10,2)"`
	CostUSD   decimal.Decimal `json:"cost_usd" gorm:"type:numeric(10,2)"`
	JobberCAD decimal.Decimal `json:"jobber_cad" gorm:"type:numeric(10,2)"`
	JobberUSD decimal.Decimal `json:"jobber_usd" gorm:"type:numeric(10,2)"`
	MSRPCAD   decimal.Decimal `json:"msrp_cad" gorm:"type:numeric(10,2)"`
	MSRPUSD   decimal.Decimal `json:"msrp_usd" gorm:"type:numeric(10,2)"`
	MAPCAD    decimal.Decimal `json:"map_cad" gorm:"type:numeric(10,2)"`
	MAPUSD    decimal.Decimal `json:"map_usd" gorm:"type:numeric(10,2)"`

	InventoryAB int `json:"inventory_ab"`
	InventoryPO int `json:"inventory_po"`
	InventoryUT int `json:"inventory_ut"`
	InventoryKY int `json:"inventory_ky"`
	InventoryTX int `json:"inventory_tx"`
	InventoryCA int `json:"inventory_ca"`
	InventoryWA int `json:"inventory_wa"`
	InventoryCO int `json:"inventory_co"`

	Weight decimal.Decimal `json:"weight" gorm:"type:numeric(10,2)"`
	Length decimal.Decimal `json:"length" gorm:"type:numeric(10,2)"`
	Width  decimal.Decimal `json:"width" gorm:"type:numeric(10,2)"`
	Height decimal.Decimal `json:"height" gorm:"type:numeric(10,2)"`

	PrimaryImage string `json:"primary_image"`
	IsRelevant   bool   `json:"is_relevant"`
}

func (p *PremierProduct) String() string {
	return fmt.Sprintf("%s :: %s", p.PremierPartNumber, p.Manufacturer)
}

// Warehouse identifies a Premier distribution warehouse by its two-letter
// code prefix.
type Warehouse string

const (
	WarehouseAB Warehouse = "AB"
	WarehousePO Warehouse = "PO"
	WarehouseUT Warehouse = "UT"
	WarehouseKY Warehouse = "KY"
	WarehouseTX Warehouse = "TX"
	WarehouseCA Warehouse = "CA"
	WarehouseWA Warehouse = "WA"
	WarehouseCO Warehouse = "CO"
)

// Warehouses lists every known warehouse. Inventory records carrying a code
// outside this set are rejected rather than mapped by string construction.
var Warehouses = []Warehouse{
	WarehouseAB, WarehousePO, WarehouseUT, WarehouseKY,
	WarehouseTX, WarehouseCA, WarehouseWA, WarehouseCO,
}

// SetInventory writes a quantity into the named warehouse field.
func (p *PremierProduct) SetInventory(w Warehouse, qty int) error {
	switch w {
	case WarehouseAB:
		p.InventoryAB = qty
	case WarehousePO:
		p.InventoryPO = qty
	case WarehouseUT:
		p.InventoryUT = qty
	case WarehouseKY:
		p.InventoryKY = qty
	case WarehouseTX:
		p.InventoryTX = qty
	case WarehouseCA:
		p.InventoryCA = qty
	case WarehouseWA:
		p.InventoryWA = qty
	case WarehouseCO:
		p.InventoryCO = qty
	default:
		return fmt.Errorf("unknown warehouse code %q", w)
	}
	return nil
}

// Inventory reads the quantity of the named warehouse field.
func (p *PremierProduct) Inventory(w Warehouse) (int, error) {
	switch w {
	case WarehouseAB:
		return p.InventoryAB, nil
	case WarehousePO:
		return p.InventoryPO, nil
	case WarehouseUT:
		return p.InventoryUT, nil
	case WarehouseKY:
		return p.InventoryKY, nil
	case WarehouseTX:
		return p.InventoryTX, nil
	case WarehouseCA:
		return p.InventoryCA, nil
	case WarehouseWA:
		return p.InventoryWA, nil
	case WarehouseCO:
		return p.InventoryCO, nil
	}
	return 0, fmt.Errorf("unknown warehouse code %q", w)
}

// PriceKind names one of the four price points Premier publishes per
// currency.
type PriceKind string

const (
	PriceCost   PriceKind = "cost"
	PriceJobber PriceKind = "jobber"
	PriceMSRP   PriceKind = "msrp"
	PriceMAP    PriceKind = "map"
)

// SetPrice writes a price point for the given currency (CAD or USD).
func (p *PremierProduct) SetPrice(kind PriceKind, currency string, value decimal.Decimal) error {
	switch currency {
	case "CAD":
		switch kind {
		case PriceCost:
			p.CostCAD = value
		case PriceJobber:
			p.JobberCAD = value
		case PriceMSRP:
			p.MSRPCAD = value
		case PriceMAP:
			p.MAPCAD = value
		default:
			return fmt.Errorf("unknown price kind %q", kind)
		}
	case "USD":
		switch kind {
		case PriceCost:
			p.CostUSD = value
		case PriceJobber:
			p.JobberUSD = value
		case PriceMSRP:
			p.MSRPUSD = value
		case PriceMAP:
			p.MAPUSD = value
		default:
			return fmt.Errorf("unknown price kind %q", kind)
		}
	default:
		return fmt.Errorf("unknown currency %q", currency)
	}
	return nil
}
