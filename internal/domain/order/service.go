package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/shopworks/discount-engine/internal/domain/product"
)

// Sentinel errors for order creation and status transitions.
var (
	ErrEmptyItems      = errors.New("items required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrReenterCreated  = errors.New("order cannot re-enter created status")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Recomputer runs a discount pass for a freshly persisted order. Implemented
// by the discount engine.
type Recomputer interface {
	Recompute(ctx context.Context, o *Order) error
}

// Invalidator drops cached derived totals for an order. Every mutator of an
// order's line items or discounts must call it on the return path.
type Invalidator interface {
	Invalidate(ctx context.Context, orderID string) error
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CustomerID string
	Items      []ItemRequest
}

// ItemRequest selects a product and quantity for one order line.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// Service encapsulates order creation and administration. Placing an order is
// the single trigger point of the discount engine: the pass runs exactly
// once, synchronously, right after the order and its line items are
// persisted. Line items are immutable afterward, so discounts cannot go stale
// through item edits; rule-set corrections are handled by an explicit
// operational recompute.
type Service struct {
	products  product.Repository
	orders    Repository
	discounts Recomputer
	totals    Invalidator
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository, discounts Recomputer, totals Invalidator) *Service {
	return &Service{
		products:  products,
		orders:    orders,
		discounts: discounts,
		totals:    totals,
	}
}

// Place validates the request, snapshots product price and category into line
// items, persists the order atomically, and runs the discount pass.
func (s *Service) Place(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Status:     StatusCreated,
		Items:      make([]LineItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		o.Items = append(o.Items, LineItem{
			ID:              uuid.New().String(),
			OrderID:         o.ID,
			ProductID:       p.ID,
			Category:        p.Category,
			Quantity:        item.Quantity,
			PriceAtPurchase: p.Price,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.discounts.Recompute(ctx, o); err != nil {
		return nil, errors.Wrap(err, "apply discounts")
	}

	return o, nil
}

// UpdateStatus transitions an order's status on behalf of an admin. The
// created status is entry-only: orders never transition back into it. The
// discount engine does not react to status changes; loyalty is recomputed
// fresh on each new order's discount pass.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	if !status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	if status == StatusCreated {
		return ErrReenterCreated
	}
	return s.orders.UpdateStatus(ctx, orderID, status)
}

// Remove deletes an order along with its owned line items and discounts, then
// drops the order's cached derived totals. The line items and discount rows
// are gone after the delete commits, so a stale cache entry would keep serving
// totals for an order that no longer exists.
func (s *Service) Remove(ctx context.Context, orderID string) error {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	if err := s.totals.Invalidate(ctx, orderID); err != nil {
		return errors.Wrapf(err, "invalidate totals of deleted order %s", orderID)
	}
	return nil
}
