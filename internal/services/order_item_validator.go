package services

import (
	"context"
	"fmt"
	"math"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/repositories"
	"restaurant_order_backend/pkg/utils"
)

// OrderItemRequest is one requested line of an order.
type OrderItemRequest struct {
	VariantSlug string
	Quantity    int
	Note        string
}

// ValidatedItems are priced order item drafts in request order.
type ValidatedItems struct {
	Items    []models.OrderItem
	Subtotal int64
}

// OrderItemValidator prices requested lines against the live catalog.
type OrderItemValidator interface {
	ValidateItems(ctx context.Context, reqs []OrderItemRequest) (*ValidatedItems, error)
}

type orderItemValidator struct {
	catalog repositories.CatalogRepository
}

// NewOrderItemValidator creates a new instance of OrderItemValidator.
func NewOrderItemValidator(catalog repositories.CatalogRepository) OrderItemValidator {
	return &orderItemValidator{catalog: catalog}
}

// ValidateItems keeps duplicate variants as separate lines. The variant price is copied into
// each item, so later catalog price changes do not touch created orders.
func (v *orderItemValidator) ValidateItems(ctx context.Context, reqs []OrderItemRequest) (*ValidatedItems, error) {
	result := &ValidatedItems{Items: make([]models.OrderItem, 0, len(reqs))}

	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for variant %s must be positive, got %d", ErrInvalidQuantity, req.VariantSlug, req.Quantity)
		}
		if req.Quantity > MaxItemQuantity {
			return nil, fmt.Errorf("%w: quantity for variant %s must not exceed %d, got %d", ErrInvalidQuantity, req.VariantSlug, MaxItemQuantity, req.Quantity)
		}
		variant, err := v.catalog.GetVariantBySlug(ctx, req.VariantSlug)
		if err != nil {
			return nil, lookupError(err, ErrVariantNotFound, "variant", req.VariantSlug)
		}

		if variant.Price > math.MaxInt64/int64(req.Quantity) {
			return nil, fmt.Errorf("%w: subtotal of variant %s overflows", ErrInvalidQuantity, req.VariantSlug)
		}
		subtotal := variant.Price * int64(req.Quantity)
		if result.Subtotal > math.MaxInt64-subtotal {
			return nil, fmt.Errorf("%w: order subtotal overflows at variant %s", ErrInvalidQuantity, req.VariantSlug)
		}
		result.Items = append(result.Items, models.OrderItem{
			Slug:        utils.NewSlug(),
			VariantID:   variant.ID,
			VariantSlug: variant.Slug,
			ProductID:   variant.ProductID,
			SizeID:      variant.SizeID,
			Quantity:    req.Quantity,
			Price:       variant.Price,
			Subtotal:    subtotal,
			Note:        utils.NewNullString(req.Note),
		})
		result.Subtotal += subtotal
	}
	return result, nil
}
