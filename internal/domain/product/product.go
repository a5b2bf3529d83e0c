package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category classifies a product. The set is closed but extensible: adding a
// category only requires a new constant and matching rows in discount_rules.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
)

// Product represents a catalog item available for purchase. Products are
// read-only from the discount engine's perspective; orders snapshot price
// and category at purchase time.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category Category
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
