package services

import (
	"context"
	"time"

	"restaurant_order_backend/internal/models"
)

// OrderCreatedRoutingKey is the routing key of order created events.
const OrderCreatedRoutingKey = "order.created"

// OrderEventPublisher announces committed orders. Implementations must be safe for concurrent use.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
}

// OrderCreatedEvent is the payload published after an order commits.
type OrderCreatedEvent struct {
	OrderSlug  string                  `json:"order_slug"`
	Type       models.OrderType        `json:"type"`
	Status     string                  `json:"status"`
	BranchSlug string                  `json:"branch"`
	TableSlug  string                  `json:"table,omitempty"`
	OwnerSlug  string                  `json:"owner"`
	Subtotal   int64                   `json:"subtotal"`
	Items      []OrderCreatedEventItem `json:"items"`
	CreatedAt  time.Time               `json:"created_at"`
}

type OrderCreatedEventItem struct {
	Slug        string `json:"slug"`
	VariantSlug string `json:"variant"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	Subtotal    int64  `json:"subtotal"`
}

// NewOrderCreatedEvent builds the event of a committed order with its references attached.
func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	event := OrderCreatedEvent{
		OrderSlug: order.Slug,
		Type:      order.Type,
		Status:    order.Status,
		Subtotal:  order.Subtotal,
		Items:     make([]OrderCreatedEventItem, 0, len(order.OrderItems)),
		CreatedAt: order.CreatedAt,
	}
	if order.Branch != nil {
		event.BranchSlug = order.Branch.Slug
	}
	if order.Table != nil {
		event.TableSlug = order.Table.Slug
	}
	if order.Owner != nil {
		event.OwnerSlug = order.Owner.Slug
	}
	for _, item := range order.OrderItems {
		event.Items = append(event.Items, OrderCreatedEventItem{
			Slug:        item.Slug,
			VariantSlug: item.VariantSlug,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal,
		})
	}
	return event
}
