package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/repositories"
	"restaurant_order_backend/pkg/utils"
)

// Order creation errors. Every failure of CreateOrder wraps exactly one of these.
var (
	ErrBranchNotFound     = errors.New("branch not found")
	ErrTableNotFound      = errors.New("table not found in branch")
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrApproverNotFound   = errors.New("approver not found")
	ErrVariantNotFound    = errors.New("variant not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyOrderRequest  = errors.New("order has no items")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidQuantity    = errors.New("invalid item quantity")
	ErrTransactionAborted = errors.New("order transaction aborted") // Retriable, nothing was persisted
	ErrOrderNotFound      = errors.New("order not found")
)

// DefaultUnitOfWorkTimeout bounds the storage work of one order creation.
const DefaultUnitOfWorkTimeout = 5 * time.Second

// MaxItemQuantity caps the quantity of a single order line. Keep it in sync with the binding tag below.
const MaxItemQuantity = 1000

// --- Data Transfer Objects (DTOs) ---

// CreateOrderItemRequest is used for creating individual order items.
type CreateOrderItemRequest struct {
	Variant  string `json:"variant" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0,max=1000"`
	Note     string `json:"note"`
}

// CreateOrderRequest is used for creating a new order.
// Owner may be left empty by the handler, which then fills in the caller.
type CreateOrderRequest struct {
	Type       string                   `json:"type" binding:"required"`
	Branch     string                   `json:"branch" binding:"required"`
	Table      string                   `json:"table"`
	Owner      string                   `json:"owner"`
	ApprovalBy string                   `json:"approvalBy"`
	OrderItems []CreateOrderItemRequest `json:"orderItems" binding:"dive"`
}

// --- End of DTOs ---

// OrderService creates orders atomically and serves them back by slug.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error)
}

type orderService struct {
	catalog          repositories.CatalogRepository
	store            repositories.OrderStore
	contextValidator OrderContextValidator
	itemValidator    OrderItemValidator
	publisher        OrderEventPublisher
	unitTimeout      time.Duration
	now              func() time.Time
}

// NewOrderService creates a new instance of OrderService. publisher may be nil.
func NewOrderService(
	catalog repositories.CatalogRepository,
	store repositories.OrderStore,
	publisher OrderEventPublisher,
	unitTimeout time.Duration,
) OrderService {
	if unitTimeout <= 0 {
		unitTimeout = DefaultUnitOfWorkTimeout
	}
	return &orderService{
		catalog:          catalog,
		store:            store,
		contextValidator: NewOrderContextValidator(catalog),
		itemValidator:    NewOrderItemValidator(catalog),
		publisher:        publisher,
		unitTimeout:      unitTimeout,
		now:              time.Now,
	}
}

// stockReservation is the total quantity one attempt takes from one menu item.
type stockReservation struct {
	menuItemID int64
	quantity   int
	available  int // Stock seen while planning; the reservation itself is authoritative
	variants   []string
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	attempt := newCreationAttempt(utils.NewSlug())

	order, err := s.createOrder(ctx, attempt, req)
	if err != nil {
		attempt.abort(err)
		return nil, err
	}
	attempt.advance(stateCommitted)
	utils.LogInfo("Order created", map[string]interface{}{
		"order_slug": order.Slug,
		"branch":     order.Branch.Slug,
		"type":       string(order.Type),
		"items":      len(order.OrderItems),
		"subtotal":   order.Subtotal,
	})

	s.publishCreated(ctx, order)
	return order, nil
}

func (s *orderService) createOrder(ctx context.Context, attempt *creationAttempt, req CreateOrderRequest) (*models.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, ErrEmptyOrderRequest
	}
	if !models.IsValidOrderType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderType, req.Type)
	}
	orderType := models.OrderType(req.Type)

	attempt.advance(stateValidating)
	orderCtx, err := s.contextValidator.ValidateContext(ctx, OrderContextRequest{
		Type:         orderType,
		BranchSlug:   req.Branch,
		TableSlug:    req.Table,
		OwnerSlug:    req.Owner,
		ApproverSlug: req.ApprovalBy,
	})
	if err != nil {
		return nil, err
	}

	itemReqs := make([]OrderItemRequest, len(req.OrderItems))
	for i, item := range req.OrderItems {
		itemReqs[i] = OrderItemRequest{VariantSlug: item.Variant, Quantity: item.Quantity, Note: item.Note}
	}
	validated, err := s.itemValidator.ValidateItems(ctx, itemReqs)
	if err != nil {
		return nil, err
	}

	reservations, err := s.planReservations(ctx, orderCtx.Branch.ID, validated.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Slug:     attempt.orderSlug,
		Type:     orderType,
		Status:   models.OrderStatusPending,
		Subtotal: validated.Subtotal,
		BranchID: orderCtx.Branch.ID,
		OwnerID:  orderCtx.Owner.ID,
	}
	if orderCtx.Table != nil {
		order.TableID = &orderCtx.Table.ID
	}
	if orderCtx.Approver != nil {
		order.ApproverID = &orderCtx.Approver.ID
	}
	items := validated.Items

	// The unit of work outlives a cancelled caller; only its own timeout can abort it.
	unitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.unitTimeout)
	defer cancel()

	err = s.store.WithinTx(unitCtx, func(ctx context.Context, tx repositories.OrderTx) error {
		attempt.advance(stateReserving)
		for _, r := range reservations {
			if err := tx.ReserveStock(ctx, r.menuItemID, r.quantity); err != nil {
				if errors.Is(err, repositories.ErrInsufficientStock) {
					return fmt.Errorf("%w: %s (requested %d)", ErrInsufficientStock, strings.Join(r.variants, ", "), r.quantity)
				}
				return err
			}
			if err := tx.RecordMovement(ctx, &models.StockMovement{
				MenuItemID:      r.menuItemID,
				MovementType:    models.MovementTypeSale,
				QuantityChanged: -r.quantity,
				OrderSlug:       &order.Slug,
			}); err != nil {
				return err
			}
		}

		attempt.advance(statePersisting)
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.InsertOrderItems(ctx, items)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}

	order.Branch = orderCtx.Branch
	order.Table = orderCtx.Table
	order.Owner = orderCtx.Owner
	order.ApprovalBy = orderCtx.Approver
	order.OrderItems = items
	return order, nil
}

// planReservations sums the requested quantities per menu item of today's branch menu.
// The result is sorted by menu item ID so that concurrent units always lock rows in the same order.
func (s *orderService) planReservations(ctx context.Context, branchID int64, items []models.OrderItem) ([]stockReservation, error) {
	day := s.now().Format(models.MenuDayLayout)
	menuItems := make(map[int64]*models.MenuItem) // by product ID
	byMenuItem := make(map[int64]*stockReservation)

	for _, item := range items {
		menuItem, ok := menuItems[item.ProductID]
		if !ok {
			found, err := s.catalog.GetMenuItemForProduct(ctx, branchID, item.ProductID, day)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s is not on the menu of %s", ErrInsufficientStock, item.VariantSlug, day)
				}
				return nil, fmt.Errorf("%w: looking up menu item of %s: %v", ErrTransactionAborted, item.VariantSlug, err)
			}
			menuItem = found
			menuItems[item.ProductID] = menuItem
		}

		r, ok := byMenuItem[menuItem.ID]
		if !ok {
			r = &stockReservation{menuItemID: menuItem.ID, available: menuItem.CurrentStock}
			byMenuItem[menuItem.ID] = r
		}
		// Stock columns are INTEGER; a wrapped sum would pass the stock check below.
		if r.quantity > math.MaxInt32-item.Quantity {
			return nil, fmt.Errorf("%w: total quantity of %s exceeds %d", ErrInvalidQuantity, strings.Join(appendUnique(r.variants, item.VariantSlug), ", "), math.MaxInt32)
		}
		r.quantity += item.Quantity
		r.variants = appendUnique(r.variants, item.VariantSlug)
	}

	reservations := make([]stockReservation, 0, len(byMenuItem))
	for _, r := range byMenuItem {
		// Fail before opening the unit when the stock is already known to be short.
		if r.available < r.quantity {
			return nil, fmt.Errorf("%w: %s (requested %d, available %d)", ErrInsufficientStock, strings.Join(r.variants, ", "), r.quantity, r.available)
		}
		reservations = append(reservations, *r)
	}
	sort.Slice(reservations, func(i, j int) bool { return reservations[i].menuItemID < reservations[j].menuItemID })
	return reservations, nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func (s *orderService) publishCreated(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.unitTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderCreated(pubCtx, order); err != nil {
		// The order is committed; subscribers can still fetch it by slug.
		utils.LogError(err, "Failed to publish order created event for "+order.Slug)
	}
}

func (s *orderService) GetOrderBySlug(ctx context.Context, slug string) (*models.Order, error) {
	order, err := s.store.GetOrderBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, slug)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", slug, err)
	}
	return order, nil
}
