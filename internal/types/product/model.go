package product

// Product is the catalog backing row for a store item. TaxExempt true
// means the item is exempt from sales tax; lines for exempt items
// contribute no tax to a quote.
type Product struct {
	ID          int64   `db:"id" json:"-"`
	Tag         int64   `db:"tag" json:"tag"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description,omitempty"`
	Category    string  `db:"category" json:"category,omitempty"`
	Price       float64 `db:"price" json:"price"`
	TaxExempt   bool    `db:"tax_exempt" json:"-"`
	Comments    string  `db:"comments" json:"-"`
}
