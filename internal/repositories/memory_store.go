package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/pkg/utils"
)

// MemoryStore keeps the catalog and the created orders in process memory.
// It implements both CatalogRepository and OrderStore and is used for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64

	branches  map[string]models.Branch
	tables    map[string]models.Table
	users     map[string]models.User
	variants  map[string]models.Variant
	menus     map[int64]models.Menu
	menuItems map[int64]models.MenuItem

	orders     map[string]models.Order
	orderItems map[int64][]models.OrderItem
	movements  []models.StockMovement

	ledger *MemoryStockLedger
}

var (
	_ CatalogRepository = (*MemoryStore)(nil)
	_ OrderStore        = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches:   make(map[string]models.Branch),
		tables:     make(map[string]models.Table),
		users:      make(map[string]models.User),
		variants:   make(map[string]models.Variant),
		menus:      make(map[int64]models.Menu),
		menuItems:  make(map[int64]models.MenuItem),
		orders:     make(map[string]models.Order),
		orderItems: make(map[int64][]models.OrderItem),
		ledger:     NewMemoryStockLedger(),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- Catalog seeding ---

// AddBranch stores a branch and returns it with its ID set.
func (s *MemoryStore) AddBranch(branch models.Branch) models.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	branch.ID = s.id()
	s.branches[branch.Slug] = branch
	return branch
}

// AddTable stores a table and returns it with its ID set.
func (s *MemoryStore) AddTable(table models.Table) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	table.ID = s.id()
	s.tables[table.Slug] = table
	return table
}

// AddUser stores a user and returns it with its ID set.
func (s *MemoryStore) AddUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	s.users[user.Slug] = user
	return user
}

// AddVariant stores a variant and returns it with its ID set.
func (s *MemoryStore) AddVariant(variant models.Variant) models.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	variant.ID = s.id()
	s.variants[variant.Slug] = variant
	return variant
}

// SetVariantPrice changes the catalog price of a variant.
func (s *MemoryStore) SetVariantPrice(slug string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[slug]
	if !ok {
		return ErrNotFound
	}
	v.Price = price
	v.UpdatedAt = time.Now()
	s.variants[slug] = v
	return nil
}

// AddMenu stores a menu and returns it with its ID set. A branch has at most one menu per day.
func (s *MemoryStore) AddMenu(menu models.Menu) (models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.menus {
		if existing.BranchID == menu.BranchID && existing.Day == menu.Day {
			return models.Menu{}, fmt.Errorf("%w: branch %d already has menu %s for %s", ErrDuplicateKey, menu.BranchID, existing.Slug, menu.Day)
		}
	}
	menu.ID = s.id()
	s.menus[menu.ID] = menu
	return menu, nil
}

// AddMenuItem stores a menu item and starts tracking its stock. A product appears at most once per menu.
func (s *MemoryStore) AddMenuItem(item models.MenuItem) (models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menus[item.MenuID]; !ok {
		return models.MenuItem{}, fmt.Errorf("%w: menu %d", ErrNotFound, item.MenuID)
	}
	for _, existing := range s.menuItems {
		if existing.MenuID == item.MenuID && existing.ProductID == item.ProductID {
			return models.MenuItem{}, fmt.Errorf("%w: menu %d already lists product %d", ErrDuplicateKey, item.MenuID, item.ProductID)
		}
	}
	item.ID = s.id()
	if err := s.ledger.Track(item.ID, item.DefaultStock, item.CurrentStock); err != nil {
		return models.MenuItem{}, err
	}
	s.menuItems[item.ID] = item
	return item, nil
}

// Stock returns the current stock of a menu item.
func (s *MemoryStore) Stock(menuItemID int64) (int, bool) {
	return s.ledger.Current(menuItemID)
}

// OrderCount returns the number of committed orders.
func (s *MemoryStore) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// OrderItemCount returns the number of committed order items.
func (s *MemoryStore) OrderItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, items := range s.orderItems {
		n += len(items)
	}
	return n
}

// Movements returns the committed stock movements of an order.
func (s *MemoryStore) Movements(orderSlug string) []models.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StockMovement
	for _, m := range s.movements {
		if m.OrderSlug != nil && *m.OrderSlug == orderSlug {
			out = append(out, m)
		}
	}
	return out
}

// --- CatalogRepository ---

func (s *MemoryStore) GetBranchBySlug(ctx context.Context, slug string) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) GetTableBySlugInBranch(ctx context.Context, slug string, branchID int64) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[slug]
	if !ok || t.BranchID != branchID {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) GetUserBySlug(ctx context.Context, slug string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetVariantBySlug(ctx context.Context, slug string) (*models.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) GetMenuItemForProduct(ctx context.Context, branchID, productID int64, day string) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.menuItems {
		menu, ok := s.menus[item.MenuID]
		if !ok || menu.BranchID != branchID || menu.Day != day || item.ProductID != productID {
			continue
		}
		if current, ok := s.ledger.Current(item.ID); ok {
			item.CurrentStock = current
		}
		return &item, nil
	}
	return nil, ErrNotFound
}

// --- OrderStore ---

type memoryReservation struct {
	menuItemID int64
	quantity   int
}

type memoryOrderTx struct {
	store     *MemoryStore
	reserved  []memoryReservation
	order     *models.Order
	items     []models.OrderItem
	movements []models.StockMovement
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error {
	tx := &memoryOrderTx{store: s}
	err := fn(ctx, tx)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = s.commit(tx)
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// rollback releases every reservation of the unit exactly once, newest first.
func (t *memoryOrderTx) rollback() {
	for i := len(t.reserved) - 1; i >= 0; i-- {
		r := t.reserved[i]
		if _, err := t.store.ledger.Release(r.menuItemID, r.quantity); err != nil {
			utils.LogError(err, fmt.Sprintf("Failed to release %d units of menu item %d", r.quantity, r.menuItemID))
		}
	}
	t.reserved = nil
}

func (s *MemoryStore) commit(tx *memoryOrderTx) error {
	if tx.order == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[tx.order.Slug]; exists {
		return fmt.Errorf("%w: order slug %s", ErrDuplicateKey, tx.order.Slug)
	}
	order := *tx.order
	order.ID = s.id()
	tx.order.ID = order.ID
	items := make([]models.OrderItem, len(tx.items))
	for i, item := range tx.items {
		item.ID = s.id()
		item.OrderID = order.ID
		items[i] = item
		tx.items[i].ID = item.ID
		tx.items[i].OrderID = order.ID
	}
	order.OrderItems = nil
	s.orders[order.Slug] = order
	s.orderItems[order.ID] = items
	for _, m := range tx.movements {
		m.ID = s.id()
		s.movements = append(s.movements, m)
	}
	return nil
}

func (t *memoryOrderTx) ReserveStock(ctx context.Context, menuItemID int64, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.store.ledger.Reserve(menuItemID, quantity); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: menu item %d no longer exists", ErrInsufficientStock, menuItemID)
		}
		return err
	}
	t.reserved = append(t.reserved, memoryReservation{menuItemID: menuItemID, quantity: quantity})
	return nil
}

func (t *memoryOrderTx) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	t.movements = append(t.movements, *movement)
	return nil
}

func (t *memoryOrderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	t.order = order
	return nil
}

func (t *memoryOrderTx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.order == nil {
		return fmt.Errorf("%w: order items inserted before their order", ErrDatabaseError)
	}
	t.items = items
	return nil
}

func (s *MemoryStore) GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[slug]
	if !ok {
		return nil, ErrNotFound
	}
	order.OrderItems = append([]models.OrderItem(nil), s.orderItems[order.ID]...)
	s.attachReferences(&order)
	return &order, nil
}

// attachReferences fills in the branch, table and users of order. Callers hold s.mu.
func (s *MemoryStore) attachReferences(order *models.Order) {
	for _, b := range s.branches {
		if b.ID == order.BranchID {
			b := b
			order.Branch = &b
		}
	}
	if order.TableID != nil {
		for _, t := range s.tables {
			if t.ID == *order.TableID {
				t := t
				order.Table = &t
			}
		}
	}
	for _, u := range s.users {
		u := u
		if u.ID == order.OwnerID {
			order.Owner = &u
		}
		if order.ApproverID != nil && u.ID == *order.ApproverID {
			order.ApprovalBy = &u
		}
	}
}
