package models

import "time"

// TableStatus defines the seating state of a table
type TableStatus string

const (
	TableStatusFree     TableStatus = "free"
	TableStatusOccupied TableStatus = "occupied"
	TableStatusReserved TableStatus = "reserved"
)

// Branch represents a physical restaurant location
type Branch struct {
	ID        int64     `json:"-" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Table represents a seating unit inside a branch
type Table struct {
	ID        int64       `json:"-" db:"id"`
	Slug      string      `json:"slug" db:"slug"`
	Name      string      `json:"name" db:"name"`
	Status    TableStatus `json:"status" db:"status"`
	BranchID  int64       `json:"-" db:"branch_id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// User is either a staff member or a customer. Staff carry a branch.
type User struct {
	ID        int64     `json:"-" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	BranchID  *int64    `json:"-" db:"branch_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Variant is the priced, orderable combination of a product and a size.
// Price is in integer currency units.
type Variant struct {
	ID        int64     `json:"-" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Price     int64     `json:"price" db:"price"`
	ProductID int64     `json:"-" db:"product_id"`
	SizeID    int64     `json:"-" db:"size_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Menu is the set of products a branch sells on one day
type Menu struct {
	ID        int64     `json:"-" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Day       string    `json:"day" db:"day"` // YYYY-MM-DD
	BranchID  int64     `json:"-" db:"branch_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MenuItem carries the stock of a product on a menu.
// 0 <= CurrentStock <= DefaultStock; only the stock ledger mutates CurrentStock.
type MenuItem struct {
	ID           int64     `json:"-" db:"id"`
	Slug         string    `json:"slug" db:"slug"`
	MenuID       int64     `json:"-" db:"menu_id"`
	ProductID    int64     `json:"-" db:"product_id"`
	DefaultStock int       `json:"default_stock" db:"default_stock"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// MenuDayLayout is the layout of Menu.Day.
const MenuDayLayout = "2006-01-02"
