package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avelskoog/storefront/internal/types/order"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart has no lines")
	ErrBadQuantity     = errors.New("line quantity must be positive")
)

// Sales tax rate applied to non-exempt lines.
var taxRate = decimal.NewFromFloat(0.0825)

// ResolvedProduct is what the catalog hands back for one cart line.
type ResolvedProduct struct {
	Price   float64
	Taxable bool
}

// Catalog resolves a product tag to its price and taxability.
type Catalog interface {
	Resolve(ctx context.Context, tag int64) (*ResolvedProduct, error)
}

// Quote is the priced result for a cart. Total is always
// round2(Subtotal + Tax).
type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type Engine struct {
	catalog Catalog
}

func NewEngine(c Catalog) *Engine {
	return &Engine{catalog: c}
}

// Price resolves every cart line and folds up subtotal and tax.
// Rounding to cents happens at every accumulation step, not once at the
// end; downstream deltas depend on totals staying bit-exact across
// repricings of the same cart.
func (e *Engine) Price(ctx context.Context, lines []order.CartLine) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", line.Product, ErrBadQuantity)
		}
		p, err := e.catalog.Resolve(ctx, line.Product)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", line.Product, ErrProductNotFound)
		}
		lineAmount := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineAmount.Round(2)).Round(2)
		if p.Taxable {
			tax = tax.Add(lineAmount.Mul(taxRate).Round(2)).Round(2)
		}
	}
	total := subtotal.Add(tax).Round(2)
	return &Quote{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}, nil
}

// Round2 rounds a money amount to cents the same way the engine does.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
