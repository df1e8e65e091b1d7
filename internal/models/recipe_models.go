package models

// Recipe is the manufacturing formula for a sellable product: a yield
// quantity plus the raw-material ingredients consumed per yield.
type Recipe struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	TotalQuantity float64      `json:"total_quantity"`
	Ingredients   []Ingredient `json:"ingredients,omitempty"`
}

// Ingredient is one (recipe, component product) row. DefaultPurchasePrice is
// the component's unit cost as looked up at aggregation time.
type Ingredient struct {
	ProductID            string  `json:"product_id"`
	VariationID          string  `json:"variation_id,omitempty"`
	Name                 string  `json:"name"`
	Quantity             float64 `json:"quantity"`
	UnitName             string  `json:"unit_name"`
	DefaultPurchasePrice float64 `json:"default_purchase_price"`
}

// JoinKey returns the identifier used to accumulate this ingredient across
// recipes. Rows missing a final-product identifier fall back to their
// variation identifier.
func (i Ingredient) JoinKey() string {
	if i.ProductID != "" {
		return i.ProductID
	}
	return i.VariationID
}
