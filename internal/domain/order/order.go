package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopworks/discount-engine/internal/domain/product"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order. Transitions are performed only
// by an authorized admin collaborator; an order never re-enters StatusCreated.
type Status string

const (
	StatusCreated   Status = "created"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

// Valid reports whether s is a member of the status enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusShipped, StatusCompleted, StatusDelayed, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Order is the aggregate root: it owns its line items and its discount rows.
// Deleting an order deletes both, enforced transactionally by the repository.
type Order struct {
	ID         string
	CustomerID string
	Status     Status
	Items      []LineItem
	CreatedAt  time.Time
}

// TotalPrice returns the sum of line totals.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// TotalQuantity returns the sum of line item quantities.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// LineItem is a single order line. PriceAtPurchase and Category are immutable
// snapshots taken at order creation; they never track later product changes.
// Line items are created atomically with their order and not edited afterward.
type LineItem struct {
	ID              string
	OrderID         string
	ProductID       string
	Category        product.Category
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Total returns PriceAtPurchase * Quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.PriceAtPurchase.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	// Create persists the order and all of its line items in one transaction.
	Create(ctx context.Context, o *Order) error
	// GetByID loads an order with fully materialized line items.
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus transitions the order's status.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// CountByStatus counts the customer's orders whose status is in statuses,
	// excluding excludeOrderID.
	CountByStatus(ctx context.Context, customerID string, statuses []Status, excludeOrderID string) (int, error)
	// Delete removes the order together with its line items and discounts.
	Delete(ctx context.Context, id string) error
}
