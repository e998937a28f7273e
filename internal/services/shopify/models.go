package shopify

// Product represents a Shopify product payload
type Product struct {
	ID          int64       `json:"id,omitempty"`
	Title       string      `json:"title"`
	BodyHTML    string      `json:"body_html"`
	Vendor      string      `json:"vendor"`
	ProductType string      `json:"product_type"`
	Handle      string      `json:"handle,omitempty"`
	Status      string      `json:"status,omitempty"`
	Tags        string      `json:"tags"`
	Variants    []Variant   `json:"variants,omitempty"`
	Images      []Image     `json:"images,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Metafields  []Metafield `json:"metafields,omitempty"`
}

// Variant represents a product variant
type Variant struct {
	ID             int64  `json:"id,omitempty"`
	ProductID      int64  `json:"product_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price,omitempty"`
	Sku            string `json:"sku"`
	Barcode        string `json:"barcode,omitempty"`
	Grams          int    `json:"grams,omitempty"`
	Weight         string `json:"weight,omitempty"`
	WeightUnit     string `json:"weight_unit,omitempty"`
	Option1        string `json:"option1,omitempty"`
	Option2        string `json:"option2,omitempty"`
	Option3        string `json:"option3,omitempty"`
}

// Image represents a product image
type Image struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	Src       string `json:"src"`
}

// Option represents a product option
type Option struct {
	ID        int64    `json:"id,omitempty"`
	ProductID int64    `json:"product_id,omitempty"`
	Name      string   `json:"name"`
	Position  int      `json:"position,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// Metafield represents a metafield on a product or collection
type Metafield struct {
	ID            int64  `json:"id,omitempty"`
	Namespace     string `json:"namespace"`
	Key           string `json:"key"`
	Value         string `json:"value"`
	ValueType     string `json:"value_type,omitempty"`
	OwnerResource string `json:"owner_resource,omitempty"`
	OwnerID       int64  `json:"owner_id,omitempty"`
}

// SmartCollection represents a smart collection payload
type SmartCollection struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	BodyHTML string `json:"body_html,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Rules    []Rule `json:"rules,omitempty"`
	Disjunctive bool `json:"disjunctive,omitempty"`
}

// Rule is one matching rule of a smart collection
type Rule struct {
	Column    string `json:"column"`
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}
