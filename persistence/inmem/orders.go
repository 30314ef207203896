package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/flarexio/deliblade"
)

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*deliblade.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*deliblade.Order),
	}
}

func (s *OrderStore) SaveOrder(ctx context.Context, order *deliblade.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *OrderStore) Order(ctx context.Context, id string) (*deliblade.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, deliblade.ErrOrderNotFound
	}

	return order.Clone(), nil
}

func (s *OrderStore) Orders(ctx context.Context) ([]*deliblade.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*deliblade.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order.Clone())
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *OrderStore) UpdateOrder(ctx context.Context, id string, fn func(*deliblade.Order) error) (*deliblade.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, deliblade.ErrOrderNotFound
	}

	updated := order.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}

	s.orders[id] = updated
	return updated.Clone(), nil
}
