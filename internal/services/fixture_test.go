package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/repositories"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// fixture is a seeded in-memory catalog with today's menu for one branch.
//
//	pho-small  product 1, 50000
//	pho-large  product 1, 70000 (same menu item as pho-small)
//	tea        product 2, 30000
//	cake       product 3, 20000 (not on today's menu)
type fixture struct {
	store *repositories.MemoryStore

	branch, otherBranch models.Branch
	table, otherTable   models.Table
	owner, approver     models.User

	phoSmall, phoLarge, tea, cake models.Variant
	phoItem, teaItem              models.MenuItem
}

func newFixture(t *testing.T, phoStock, teaStock int) *fixture {
	t.Helper()
	s := repositories.NewMemoryStore()
	f := &fixture{store: s}

	f.branch = s.AddBranch(models.Branch{Slug: "downtown", Name: "Downtown"})
	f.otherBranch = s.AddBranch(models.Branch{Slug: "riverside", Name: "Riverside"})
	f.table = s.AddTable(models.Table{Slug: "t1", Name: "T1", Status: models.TableStatusFree, BranchID: f.branch.ID})
	f.otherTable = s.AddTable(models.Table{Slug: "r1", Name: "R1", Status: models.TableStatusFree, BranchID: f.otherBranch.ID})
	f.owner = s.AddUser(models.User{Slug: "waiter", Name: "Waiter"})
	f.approver = s.AddUser(models.User{Slug: "manager", Name: "Manager"})

	f.phoSmall = s.AddVariant(models.Variant{Slug: "pho-small", Price: 50000, ProductID: 1, SizeID: 1})
	f.phoLarge = s.AddVariant(models.Variant{Slug: "pho-large", Price: 70000, ProductID: 1, SizeID: 2})
	f.tea = s.AddVariant(models.Variant{Slug: "tea", Price: 30000, ProductID: 2, SizeID: 1})
	f.cake = s.AddVariant(models.Variant{Slug: "cake", Price: 20000, ProductID: 3, SizeID: 1})

	day := fixedNow.Format(models.MenuDayLayout)
	menu, err := s.AddMenu(models.Menu{Slug: "downtown-today", Day: day, BranchID: f.branch.ID})
	if err != nil {
		t.Fatalf("seeding today's menu: %v", err)
	}
	// Yesterday's menu also lists cake; it must not be used.
	oldMenu, err := s.AddMenu(models.Menu{Slug: "downtown-yesterday", Day: fixedNow.AddDate(0, 0, -1).Format(models.MenuDayLayout), BranchID: f.branch.ID})
	if err != nil {
		t.Fatalf("seeding yesterday's menu: %v", err)
	}

	if f.phoItem, err = s.AddMenuItem(models.MenuItem{Slug: "pho-today", MenuID: menu.ID, ProductID: 1, DefaultStock: 100, CurrentStock: phoStock}); err != nil {
		t.Fatalf("seeding pho menu item: %v", err)
	}
	if f.teaItem, err = s.AddMenuItem(models.MenuItem{Slug: "tea-today", MenuID: menu.ID, ProductID: 2, DefaultStock: 100, CurrentStock: teaStock}); err != nil {
		t.Fatalf("seeding tea menu item: %v", err)
	}
	if _, err = s.AddMenuItem(models.MenuItem{Slug: "cake-yesterday", MenuID: oldMenu.ID, ProductID: 3, DefaultStock: 10, CurrentStock: 10}); err != nil {
		t.Fatalf("seeding cake menu item: %v", err)
	}
	return f
}

// service builds an order service over the fixture's store, or over the given store and catalog.
func (f *fixture) service(opts ...func(*orderService)) *orderService {
	svc := NewOrderService(f.store, f.store, nil, time.Second).(*orderService)
	svc.now = func() time.Time { return fixedNow }
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func withStore(store repositories.OrderStore) func(*orderService) {
	return func(s *orderService) { s.store = store }
}

func withCatalog(catalog repositories.CatalogRepository) func(*orderService) {
	return func(s *orderService) {
		s.catalog = catalog
		s.contextValidator = NewOrderContextValidator(catalog)
		s.itemValidator = NewOrderItemValidator(catalog)
	}
}

func withPublisher(p OrderEventPublisher) func(*orderService) {
	return func(s *orderService) { s.publisher = p }
}

func (f *fixture) stock(t *testing.T, item models.MenuItem) int {
	t.Helper()
	n, ok := f.store.Stock(item.ID)
	if !ok {
		t.Fatalf("menu item %s is not tracked", item.Slug)
	}
	return n
}

func atTable(items ...CreateOrderItemRequest) CreateOrderRequest {
	return CreateOrderRequest{Type: string(models.OrderTypeAtTable), Branch: "downtown", Table: "t1", Owner: "waiter", OrderItems: items}
}

func line(variant string, quantity int) CreateOrderItemRequest {
	return CreateOrderItemRequest{Variant: variant, Quantity: quantity}
}

// failingItemsStore fails every unit at InsertOrderItems, after stock has been reserved.
type failingItemsStore struct {
	*repositories.MemoryStore
}

func (s failingItemsStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.OrderTx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		return fn(ctx, failingItemsTx{tx})
	})
}

type failingItemsTx struct {
	repositories.OrderTx
}

func (failingItemsTx) InsertOrderItems(context.Context, []models.OrderItem) error {
	return errors.New("connection reset by peer")
}

// slowStore holds every unit at InsertOrder for delay.
type slowStore struct {
	*repositories.MemoryStore
	delay time.Duration
}

func (s slowStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.OrderTx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		return fn(ctx, slowTx{OrderTx: tx, delay: s.delay})
	})
}

type slowTx struct {
	repositories.OrderTx
	delay time.Duration
}

func (t slowTx) InsertOrder(ctx context.Context, order *models.Order) error {
	select {
	case <-time.After(t.delay):
	case <-ctx.Done():
	}
	return t.OrderTx.InsertOrder(ctx, order)
}

// staleCatalog reports plenty of stock while planning, so shortages surface at reservation time.
type staleCatalog struct {
	repositories.CatalogRepository
}

func (c staleCatalog) GetMenuItemForProduct(ctx context.Context, branchID, productID int64, day string) (*models.MenuItem, error) {
	item, err := c.CatalogRepository.GetMenuItemForProduct(ctx, branchID, productID, day)
	if err != nil {
		return nil, err
	}
	item.CurrentStock = item.DefaultStock
	return item, nil
}

// brokenCatalog fails every lookup with a storage error.
type brokenCatalog struct {
	repositories.CatalogRepository
}

func (brokenCatalog) GetBranchBySlug(context.Context, string) (*models.Branch, error) {
	return nil, repositories.ErrDatabaseError
}

func (brokenCatalog) GetVariantBySlug(context.Context, string) (*models.Variant, error) {
	return nil, repositories.ErrDatabaseError
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return p.err
}
