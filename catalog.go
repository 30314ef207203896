package deliblade

import "context"

// Catalog is the authoritative item/stock/price store. It is owned
// externally; this core only reads it, except for stock decrements
// performed by the order manager under item locks.
type Catalog interface {

	// Item returns a single item by ID, or ErrItemNotFound.
	Item(ctx context.Context, id string) (*Item, error)

	// ActiveItems returns every active, public item.
	ActiveItems(ctx context.Context) ([]*Item, error)

	// Stock returns the current on-hand quantity for an item.
	Stock(ctx context.Context, id string) (int, error)

	// DecrementStock reduces the on-hand quantity. Callers must hold
	// the item lock; the quantity never goes below zero.
	DecrementStock(ctx context.Context, id string, qty int) error

	// LockItems acquires exclusive per-item locks in ascending ID
	// order regardless of input order, so two concurrent callers
	// sharing items cannot deadlock. The returned release function
	// must be called exactly once.
	LockItems(ids []string) (release func())
}

// OrderStore persists orders across their lifecycle.
type OrderStore interface {

	// SaveOrder inserts a new order.
	SaveOrder(ctx context.Context, order *Order) error

	// Order returns an order by ID, or ErrOrderNotFound.
	Order(ctx context.Context, id string) (*Order, error)

	// Orders returns all orders, newest first.
	Orders(ctx context.Context) ([]*Order, error)

	// UpdateOrder applies fn to the stored order under the store's
	// write lock and persists the result. If fn returns an error the
	// order is left unchanged.
	UpdateOrder(ctx context.Context, id string, fn func(*Order) error) (*Order, error)
}
