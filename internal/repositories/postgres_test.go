package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"restaurant_order_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

var (
	reserveQuery  = regexp.QuoteMeta(`UPDATE menu_items`)
	stockQuery    = regexp.QuoteMeta(`SELECT current_stock FROM menu_items WHERE id = $1`)
	movementQuery = regexp.QuoteMeta(`INSERT INTO stock_movements`)
	orderQuery    = regexp.QuoteMeta(`INSERT INTO orders`)
	itemsQuery    = regexp.QuoteMeta(`INSERT INTO order_items`)
)

func TestStockRepository_ReserveStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStockRepository()
	ctx := context.Background()

	mock.ExpectQuery(reserveQuery).
		WithArgs(2, sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(8))

	left, err := repo.ReserveStock(ctx, db, 7, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if left != 8 {
		t.Errorf("expected 8 left, got %d", left)
	}
	expectationsMet(t, mock)
}

func TestStockRepository_ReserveStockShortOrMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStockRepository()
	ctx := context.Background()

	mock.ExpectQuery(reserveQuery).WithArgs(5, sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))
	mock.ExpectQuery(stockQuery).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(3))

	if _, err := repo.ReserveStock(ctx, db, 7, 5); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	mock.ExpectQuery(reserveQuery).WithArgs(1, sqlmock.AnyArg(), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))
	mock.ExpectQuery(stockQuery).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))

	if _, err := repo.ReserveStock(ctx, db, 9, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCatalogRepository_Lookups(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM branches WHERE slug = $1`)).WithArgs("downtown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "address", "created_at", "updated_at"}).
			AddRow(1, "downtown", "Downtown", "1 Main St", now, now))
	branch, err := repo.GetBranchBySlug(ctx, "downtown")
	if err != nil || branch.ID != 1 {
		t.Fatalf("expected branch 1, got %+v (%v)", branch, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tables`)).WithArgs("r1", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "status", "branch_id", "created_at", "updated_at"}))
	if _, err := repo.GetTableBySlugInBranch(ctx, "r1", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a table of another branch, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM menu_items mi`)).WithArgs(int64(1), "2026-10-15", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "menu_id", "product_id", "default_stock", "current_stock", "created_at", "updated_at"}).
			AddRow(11, "mi-11", 3, 4, 20, 12, now, now))
	item, err := repo.GetMenuItemForProduct(ctx, 1, 4, "2026-10-15")
	if err != nil || item.CurrentStock != 12 {
		t.Fatalf("expected menu item with stock 12, got %+v (%v)", item, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM variants WHERE slug = $1`)).WithArgs("tea").
		WillReturnError(errors.New("connection refused"))
	if _, err := repo.GetVariantBySlug(ctx, "tea"); !errors.Is(err, ErrDatabaseError) {
		t.Errorf("expected ErrDatabaseError, got %v", err)
	}
	expectationsMet(t, mock)
}

func newTestOrder() (*models.Order, []models.OrderItem) {
	tableID := int64(2)
	order := &models.Order{Slug: "o1", Type: models.OrderTypeAtTable, Status: models.OrderStatusPending, Subtotal: 130000, BranchID: 1, TableID: &tableID, OwnerID: 3}
	items := []models.OrderItem{
		{Slug: "i1", VariantID: 5, VariantSlug: "pho-small", ProductID: 1, SizeID: 1, Quantity: 2, Price: 50000, Subtotal: 100000},
		{Slug: "i2", VariantID: 6, VariantSlug: "tea", ProductID: 2, SizeID: 1, Quantity: 1, Price: 30000, Subtotal: 30000},
	}
	return order, items
}

func TestPostgresOrderStore_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresOrderStore(db, NewOrderRepository(db), NewStockRepository())
	order, items := newTestOrder()

	mock.ExpectBegin()
	mock.ExpectQuery(reserveQuery).WithArgs(2, sqlmock.AnyArg(), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(8))
	mock.ExpectQuery(movementQuery).WithArgs(int64(11), models.MovementTypeSale, -2, "o1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(orderQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	// RETURNING rows come back in a different order than inserted.
	mock.ExpectQuery(itemsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).AddRow(501, "i2").AddRow(500, "i1"))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx OrderTx) error {
		if err := tx.ReserveStock(ctx, 11, 2); err != nil {
			return err
		}
		if err := tx.RecordMovement(ctx, &models.StockMovement{MenuItemID: 11, MovementType: models.MovementTypeSale, QuantityChanged: -2, OrderSlug: &order.Slug}); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.InsertOrderItems(ctx, items)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.ID != 42 || items[0].ID != 500 || items[1].ID != 501 || items[0].OrderID != 42 {
		t.Errorf("expected ids to be filled, got order %d items %d/%d", order.ID, items[0].ID, items[1].ID)
	}
	expectationsMet(t, mock)
}

func TestPostgresOrderStore_RollbackOnShortage(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresOrderStore(db, NewOrderRepository(db), NewStockRepository())

	mock.ExpectBegin()
	mock.ExpectQuery(reserveQuery).WithArgs(1, sqlmock.AnyArg(), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(0))
	mock.ExpectQuery(reserveQuery).WithArgs(3, sqlmock.AnyArg(), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))
	mock.ExpectQuery(stockQuery).WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(2))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx OrderTx) error {
		if err := tx.ReserveStock(ctx, 11, 1); err != nil {
			return err
		}
		return tx.ReserveStock(ctx, 12, 3)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresOrderStore_DuplicateSlug(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresOrderStore(db, NewOrderRepository(db), NewStockRepository())
	order, _ := newTestOrder()

	mock.ExpectBegin()
	mock.ExpectQuery(orderQuery).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_slug_key"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx OrderTx) error {
		return tx.InsertOrder(ctx, order)
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresOrderStore_GetOrderBySlug(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresOrderStore(db, NewOrderRepository(db), NewStockRepository())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders o`)).WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "slug", "type", "status", "subtotal", "branch_id", "table_id", "owner_id", "approver_id",
			"created_at", "updated_at",
			"branch_slug", "branch_name", "branch_address",
			"table_slug", "table_name",
			"owner_slug", "owner_name", "owner_phone",
			"approver_slug", "approver_name",
		}).AddRow(
			42, "o1", "take-out", "pending", 100000, 1, nil, 3, nil,
			now, now,
			"downtown", "Downtown", "1 Main St",
			nil, nil,
			"waiter", "Waiter", nil,
			nil, nil,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items`)).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "slug", "order_id", "variant_id", "variant_slug", "product_id", "size_id", "quantity", "price", "subtotal",
			"note", "created_at", "updated_at",
		}).AddRow(500, "i1", 42, 5, "pho-small", 1, 1, 2, 50000, 100000, nil, now, now))

	order, err := store.GetOrderBySlug(context.Background(), "o1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.Type != models.OrderTypeTakeOut || order.Table != nil || order.Branch.Slug != "downtown" || order.Owner.Slug != "waiter" {
		t.Errorf("unexpected order %+v", order)
	}
	if len(order.OrderItems) != 1 || order.OrderItems[0].Price != 50000 {
		t.Errorf("unexpected items %+v", order.OrderItems)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders o`)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := store.GetOrderBySlug(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
