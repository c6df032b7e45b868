package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_order_backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // For pq.Error
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	// Order methods
	CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error)
	GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) // Order with branch, table and users attached

	// OrderItem methods
	CreateOrderItems(ctx context.Context, executor SQLExecutor, items []models.OrderItem) error // Single multi-row insert, fills IDs
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

type orderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepository{db: db}
}

// --- Order Methods ---

func (r *orderRepository) CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (slug, type, status, subtotal, branch_id, table_id, owner_id, approver_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	err := executor.QueryRowxContext(ctx, query,
		order.Slug, order.Type, order.Status, order.Subtotal, order.BranchID, order.TableID,
		order.OwnerID, order.ApproverID, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return 0, wrapWriteError("creating order "+order.Slug, err)
	}
	return order.ID, nil
}

// orderRow is an order joined with the display fields of its references.
type orderRow struct {
	models.Order
	BranchSlug    string         `db:"branch_slug"`
	BranchName    string         `db:"branch_name"`
	BranchAddress string         `db:"branch_address"`
	TableSlug     sql.NullString `db:"table_slug"`
	TableName     sql.NullString `db:"table_name"`
	OwnerSlug     string         `db:"owner_slug"`
	OwnerName     string         `db:"owner_name"`
	OwnerPhone    sql.NullString `db:"owner_phone"`
	ApproverSlug  sql.NullString `db:"approver_slug"`
	ApproverName  sql.NullString `db:"approver_name"`
}

func (r *orderRepository) GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) {
	var row orderRow
	query := `
        SELECT
            o.id, o.slug, o.type, o.status, o.subtotal, o.branch_id, o.table_id, o.owner_id, o.approver_id,
            o.created_at, o.updated_at,
            b.slug AS branch_slug, b.name AS branch_name, b.address AS branch_address,
            t.slug AS table_slug, t.name AS table_name,
            ow.slug AS owner_slug, ow.name AS owner_name, ow.phone AS owner_phone,
            ap.slug AS approver_slug, ap.name AS approver_name
        FROM orders o
        JOIN branches b ON o.branch_id = b.id
        JOIN users ow ON o.owner_id = ow.id
        LEFT JOIN tables t ON o.table_id = t.id
        LEFT JOIN users ap ON o.approver_id = ap.id
        WHERE o.slug = $1`
	err := r.db.GetContext(ctx, &row, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by slug %s: %v", ErrDatabaseError, slug, err)
	}

	order := row.Order
	order.Branch = &models.Branch{ID: order.BranchID, Slug: row.BranchSlug, Name: row.BranchName, Address: row.BranchAddress}
	if order.TableID != nil {
		order.Table = &models.Table{ID: *order.TableID, BranchID: order.BranchID, Slug: row.TableSlug.String, Name: row.TableName.String}
	}
	order.Owner = &models.User{ID: order.OwnerID, Slug: row.OwnerSlug, Name: row.OwnerName}
	if row.OwnerPhone.Valid {
		phone := row.OwnerPhone.String
		order.Owner.Phone = &phone
	}
	if order.ApproverID != nil {
		order.ApprovalBy = &models.User{ID: *order.ApproverID, Slug: row.ApproverSlug.String, Name: row.ApproverName.String}
	}
	return &order, nil
}

// --- OrderItem Methods ---

const orderItemColumns = 12

func (r *orderRepository) CreateOrderItems(ctx context.Context, executor SQLExecutor, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`INSERT INTO order_items
	            (slug, order_id, variant_id, variant_slug, product_id, size_id, quantity, price, subtotal, note,
	             created_at, updated_at)
	          VALUES `)

	args := make([]interface{}, 0, len(items)*orderItemColumns)
	now := time.Now()
	for i := range items {
		item := &items[i]
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = item.CreatedAt
		}
		if i > 0 {
			queryBuilder.WriteString(", ")
		}
		placeholders := make([]string, orderItemColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", i*orderItemColumns+c+1)
		}
		queryBuilder.WriteString("(" + strings.Join(placeholders, ", ") + ")")
		args = append(args,
			item.Slug, item.OrderID, item.VariantID, item.VariantSlug, item.ProductID, item.SizeID,
			item.Quantity, item.Price, item.Subtotal, item.Note, item.CreatedAt, item.UpdatedAt,
		)
	}
	queryBuilder.WriteString(" RETURNING id, slug")

	rows, err := executor.QueryxContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return wrapWriteError("creating order items", err)
	}
	defer rows.Close()

	// RETURNING order is not guaranteed, so IDs are matched back by slug.
	ids := make(map[string]int64, len(items))
	for rows.Next() {
		var id int64
		var slug string
		if err := rows.Scan(&id, &slug); err != nil {
			return fmt.Errorf("%w: scanning created order item: %v", ErrDatabaseError, err)
		}
		ids[slug] = id
	}
	if err := rows.Err(); err != nil {
		return wrapWriteError("creating order items", err)
	}
	for i := range items {
		id, ok := ids[items[i].Slug]
		if !ok {
			return fmt.Errorf("%w: order item %s was not returned by insert", ErrDatabaseError, items[i].Slug)
		}
		items[i].ID = id
	}
	return nil
}

func (r *orderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `
		SELECT id, slug, order_id, variant_id, variant_slug, product_id, size_id, quantity, price, subtotal,
		       note, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`
	if err := r.db.SelectContext(ctx, &items, query, orderID); err != nil {
		return nil, fmt.Errorf("%w: querying order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return items, nil
}

// wrapWriteError maps driver errors of inserts to repository errors.
func wrapWriteError(action string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, action, pqErr.Constraint)
		case "foreign_key_violation", "check_violation":
			return fmt.Errorf("%w: %s (constraint: %s): %v", ErrDatabaseError, action, pqErr.Constraint, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, action, err)
}
