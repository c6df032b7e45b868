package models

import "time"

// OrderType defines how the order is served
type OrderType string

const (
	OrderTypeAtTable OrderType = "at-table"
	OrderTypeTakeOut OrderType = "take-out"
)

// IsValidOrderType checks if the provided string is a known OrderType.
func IsValidOrderType(t string) bool {
	switch OrderType(t) {
	case OrderTypeAtTable, OrderTypeTakeOut:
		return true
	default:
		return false
	}
}

// OrderStatus constants. Orders are created as pending; later transitions belong to payment and fulfilment.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipping  = "shipping"
	OrderStatusCompleted = "completed"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
)

// Order is the aggregate root of an order graph.
// TableID is set iff Type is OrderTypeAtTable.
type Order struct {
	ID         int64     `json:"-" db:"id"`
	Slug       string    `json:"slug" db:"slug"`
	Type       OrderType `json:"type" db:"type"`
	Status     string    `json:"status" db:"status"`
	Subtotal   int64     `json:"subtotal" db:"subtotal"`
	BranchID   int64     `json:"-" db:"branch_id"`
	TableID    *int64    `json:"-" db:"table_id"`
	OwnerID    int64     `json:"-" db:"owner_id"`
	ApproverID *int64    `json:"-" db:"approver_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	Branch     *Branch     `json:"branch,omitempty" db:"-"`
	Table      *Table      `json:"table,omitempty" db:"-"`
	Owner      *User       `json:"owner,omitempty" db:"-"`
	ApprovalBy *User       `json:"approval_by,omitempty" db:"-"`
	OrderItems []OrderItem `json:"order_items" db:"-"`
}

// OrderItem is a priced line of an order. Price is a snapshot of the variant price at creation.
type OrderItem struct {
	ID          int64     `json:"-" db:"id"`
	Slug        string    `json:"slug" db:"slug"`
	OrderID     int64     `json:"-" db:"order_id"`
	VariantID   int64     `json:"-" db:"variant_id"`
	VariantSlug string    `json:"variant" db:"variant_slug"`
	ProductID   int64     `json:"-" db:"product_id"`
	SizeID      int64     `json:"-" db:"size_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Price       int64     `json:"price" db:"price"`
	Subtotal    int64     `json:"subtotal" db:"subtotal"`
	Note        *string   `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
