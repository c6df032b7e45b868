package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant_order_backend/internal/models"
)

// StockRepository is the Postgres stock ledger. A reservation is one conditional UPDATE run inside
// the caller's transaction, so concurrent callers serialize on the menu item row lock and a
// rollback is the release.
type StockRepository interface {
	ReserveStock(ctx context.Context, executor SQLExecutor, menuItemID int64, quantity int) (int, error) // Returns new stock level
	CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.StockMovement) (int64, error)
}

type stockRepository struct{}

// NewStockRepository creates a new instance of StockRepository.
func NewStockRepository() StockRepository {
	return &stockRepository{}
}

func (r *stockRepository) ReserveStock(ctx context.Context, executor SQLExecutor, menuItemID int64, quantity int) (int, error) {
	var newStock int
	query := `UPDATE menu_items
	          SET current_stock = current_stock - $1, updated_at = $2
	          WHERE id = $3 AND current_stock >= $1
	          RETURNING current_stock`
	err := executor.QueryRowxContext(ctx, query, quantity, time.Now(), menuItemID).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.explainNoRows(ctx, executor, menuItemID, quantity)
		}
		return 0, fmt.Errorf("%w: reserving %d of menu item %d: %v", ErrDatabaseError, quantity, menuItemID, err)
	}
	return newStock, nil
}

// explainNoRows tells a missing menu item apart from an exhausted one.
func (r *stockRepository) explainNoRows(ctx context.Context, executor SQLExecutor, menuItemID int64, quantity int) error {
	var current int
	err := executor.GetContext(ctx, &current, `SELECT current_stock FROM menu_items WHERE id = $1`, menuItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: checking stock of menu item %d: %v", ErrDatabaseError, menuItemID, err)
	}
	return fmt.Errorf("%w: menu item %d has %d, requested %d", ErrInsufficientStock, menuItemID, current, quantity)
}

func (r *stockRepository) CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.StockMovement) (int64, error) {
	query := `INSERT INTO stock_movements (menu_item_id, movement_type, quantity_changed, order_slug, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	err := executor.QueryRowxContext(ctx, query,
		movement.MenuItemID, movement.MovementType, movement.QuantityChanged, movement.OrderSlug, movement.CreatedAt,
	).Scan(&movement.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating stock movement: %v", ErrDatabaseError, err)
	}
	return movement.ID, nil
}
