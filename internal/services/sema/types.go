package sema

// BrandDataset is one row of the brand/dataset export. The same brand
// appears once per dataset it licenses.
type BrandDataset struct {
	AAIABrandID string `json:"AAIABrandId"`
	BrandName   string `json:"BrandName"`
	DatasetID   int    `json:"DatasetId"`
	DatasetName string `json:"DatasetName"`
}

type Make struct {
	MakeID   int    `json:"MakeID"`
	MakeName string `json:"MakeName"`
}

type Model struct {
	BaseVehicleID int    `json:"BaseVehicleID"`
	ModelID       int    `json:"ModelID"`
	ModelName     string `json:"ModelName"`
}

type Submodel struct {
	VehicleID    int    `json:"VehicleID"`
	SubmodelID   int    `json:"SubmodelID"`
	SubmodelName string `json:"SubmodelName"`
}

type Engine struct {
	VehicleID int    `json:"VehicleID"`
	Liter     string `json:"Liter"`
	Cylinders string `json:"Cylinders"`
	BlockType string `json:"BlockType"`
	FuelType  string `json:"FuelTypeName"`
}

// CategoryNode is a node of the nested category tree. Children arrive under
// the Categories key and are flattened by the sync layer.
type CategoryNode struct {
	CategoryID int            `json:"CategoryId"`
	ParentID   int            `json:"ParentId"`
	Name       string         `json:"Name"`
	Categories []CategoryNode `json:"Categories"`
}

type PiesAttribute struct {
	PiesName    string  `json:"PiesName"`
	PiesSegment string  `json:"PiesSegment"`
	Value       *string `json:"Value"`
}

type ProductRecord struct {
	ProductID      int             `json:"ProductId"`
	PartNumber     string          `json:"PartNumber"`
	PiesAttributes []PiesAttribute `json:"PiesAttributes"`
}

type VehicleByNames struct {
	Year         int    `json:"Year"`
	MakeName     string `json:"MakeName"`
	ModelName    string `json:"ModelName"`
	SubmodelName string `json:"SubmodelName"`
}

// PartVehicles groups fitment rows per part number, as returned by the
// vehicles-by-product lookup with grouping enabled.
type PartVehicles struct {
	PartNumber string           `json:"PartNumber"`
	Vehicles   []VehicleByNames `json:"Vehicles"`
}

type BrandVehicle struct {
	AAIABrandID  string `json:"AAIA_BrandID"`
	BrandName    string `json:"BrandName"`
	Year         int    `json:"Year"`
	MakeName     string `json:"MakeName"`
	ModelName    string `json:"ModelName"`
	SubmodelName string `json:"SubmodelName"`
}

// LookupFilter carries the optional filters most lookup endpoints share.
// Constraint checks (exactly one of brands/datasets, the year/make/model
// require-together group, at most one vehicle filter style) run client-side
// before any request is issued.
type LookupFilter struct {
	BrandIDs       []string
	DatasetIDs     []int
	BaseVehicleIDs []int
	VehicleIDs     []int
	Year           int
	MakeName       string
	ModelName      string
	SubmodelName   string
	PartNumbers    []string
	PiesSegments   []string
}
