package repositories

import (
	"fmt"
	"sync"
)

// MemoryStockLedger is the in-process stock ledger. Every menu item has its own mutex,
// so reservations of the same item serialize while unrelated items never contend.
type MemoryStockLedger struct {
	mu       sync.RWMutex
	counters map[int64]*stockCounter
}

type stockCounter struct {
	mu           sync.Mutex
	defaultStock int
	current      int
}

// NewMemoryStockLedger creates an empty ledger.
func NewMemoryStockLedger() *MemoryStockLedger {
	return &MemoryStockLedger{counters: make(map[int64]*stockCounter)}
}

// Track starts tracking a menu item. current must be within [0, defaultStock].
func (l *MemoryStockLedger) Track(menuItemID int64, defaultStock, current int) error {
	if defaultStock < 0 || current < 0 || current > defaultStock {
		return fmt.Errorf("%w: stock %d/%d out of range for menu item %d", ErrDatabaseError, current, defaultStock, menuItemID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters[menuItemID] = &stockCounter{defaultStock: defaultStock, current: current}
	return nil
}

func (l *MemoryStockLedger) counter(menuItemID int64) (*stockCounter, error) {
	l.mu.RLock()
	c, ok := l.counters[menuItemID]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Reserve decrements the counter by quantity only if the result stays >= 0.
func (l *MemoryStockLedger) Reserve(menuItemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: reserve quantity must be positive, got %d", ErrDatabaseError, quantity)
	}
	c, err := l.counter(menuItemID)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < quantity {
		return c.current, fmt.Errorf("%w: menu item %d has %d, requested %d", ErrInsufficientStock, menuItemID, c.current, quantity)
	}
	c.current -= quantity
	return c.current, nil
}

// Release gives back a previous reservation. The counter is capped at its default stock.
func (l *MemoryStockLedger) Release(menuItemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: release quantity must be positive, got %d", ErrDatabaseError, quantity)
	}
	c, err := l.counter(menuItemID)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current += quantity
	if c.current > c.defaultStock {
		c.current = c.defaultStock
	}
	return c.current, nil
}

// Current returns the remaining stock of a menu item.
func (l *MemoryStockLedger) Current(menuItemID int64) (int, bool) {
	c, err := l.counter(menuItemID)
	if err != nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, true
}
