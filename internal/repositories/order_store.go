package repositories

import (
	"context"
	"errors"
	"fmt"

	"restaurant_order_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// OrderTx is the write side of a single order creation unit of work.
type OrderTx interface {
	// ReserveStock decrements a menu item's current stock, or fails with ErrInsufficientStock
	// without changing it.
	ReserveStock(ctx context.Context, menuItemID int64, quantity int) error
	RecordMovement(ctx context.Context, movement *models.StockMovement) error
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
}

// OrderStore runs order creation units of work and serves created orders.
type OrderStore interface {
	// WithinTx commits everything fn did if it returns nil. Otherwise nothing fn did is
	// visible afterwards, including stock reservations.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error
	GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) // Order with its items
}

type postgresOrderStore struct {
	db        *sqlx.DB
	orderRepo OrderRepository
	stockRepo StockRepository
}

// NewPostgresOrderStore creates an OrderStore backed by Postgres transactions.
func NewPostgresOrderStore(db *sqlx.DB, orderRepo OrderRepository, stockRepo StockRepository) OrderStore {
	return &postgresOrderStore{db: db, orderRepo: orderRepo, stockRepo: stockRepo}
}

func (s *postgresOrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to start database transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &postgresOrderTx{tx: tx, store: s}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit order transaction: %v", ErrDatabaseError, err)
	}
	return nil
}

func (s *postgresOrderStore) GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	items, err := s.orderRepo.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.OrderItems = items
	return order, nil
}

type postgresOrderTx struct {
	tx    *sqlx.Tx
	store *postgresOrderStore
}

func (t *postgresOrderTx) ReserveStock(ctx context.Context, menuItemID int64, quantity int) error {
	_, err := t.store.stockRepo.ReserveStock(ctx, t.tx, menuItemID, quantity)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: menu item %d no longer exists", ErrInsufficientStock, menuItemID)
	}
	return err
}

func (t *postgresOrderTx) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	_, err := t.store.stockRepo.CreateMovement(ctx, t.tx, movement)
	return err
}

func (t *postgresOrderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := t.store.orderRepo.CreateOrder(ctx, t.tx, order)
	return err
}

func (t *postgresOrderTx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	return t.store.orderRepo.CreateOrderItems(ctx, t.tx, items)
}
