package models

import "time"

// MovementTypeSale marks stock drawn down by an order.
const MovementTypeSale = "sale"

// StockMovement records a change of a menu item's current stock
type StockMovement struct {
	ID              int64     `json:"id" db:"id"`
	MenuItemID      int64     `json:"menu_item_id" db:"menu_item_id"`
	MovementType    string    `json:"movement_type" db:"movement_type"`
	QuantityChanged int       `json:"quantity_changed" db:"quantity_changed"`
	OrderSlug       *string   `json:"order_slug,omitempty" db:"order_slug"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
