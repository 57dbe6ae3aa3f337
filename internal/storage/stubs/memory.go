// Package stubs provides an in-memory storage implementation for tests and
// local development without a database.
package stubs

import (
	"context"
	"sort"
	"sync"

	"mallbot/internal/models"
	"mallbot/internal/storage"
)

// Memory implements the storage contracts with in-process maps.
type Memory struct {
	mu       sync.RWMutex
	stores   map[string]models.Store
	products map[string]models.Product
	orders   []models.Order
	items    map[string][]models.OrderItem

	// FailCreateOrder forces CreateOrder to return this error when set.
	FailCreateOrder error
}

// NewMemory constructs an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{
		stores:   make(map[string]models.Store),
		products: make(map[string]models.Product),
		items:    make(map[string][]models.OrderItem),
	}
}

// AddStore seeds a store.
func (m *Memory) AddStore(store models.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[store.ID] = store
}

// AddProduct seeds a product.
func (m *Memory) AddProduct(product models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
}

func visibleStore(s models.Store) bool {
	return s.IsActive && s.ApprovalStatus == "approved"
}

// ListStores returns one page of visible stores plus the total count.
func (m *Memory) ListStores(_ context.Context, offset, limit int) ([]models.Store, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.Store
	for _, s := range m.stores {
		if visibleStore(s) {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		di, dj := all[i].DisplayOrder, all[j].DisplayOrder
		switch {
		case di != nil && dj != nil && *di != *dj:
			return *di < *dj
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return all[i].Name < all[j].Name
	})

	total := len(all)
	if offset >= total {
		return []models.Store{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]models.Store{}, all[offset:end]...), total, nil
}

// GetStore returns a visible store by id.
func (m *Memory) GetStore(_ context.Context, id string) (models.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	store, ok := m.stores[id]
	if !ok || !visibleStore(store) {
		return models.Store{}, storage.ErrNotFound
	}
	return store, nil
}

// ListProducts returns the visible products of a store ordered by name.
func (m *Memory) ListProducts(_ context.Context, storeID string) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Product
	for _, p := range m.products {
		if p.StoreID == storeID && p.InStock && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetProduct returns a visible product by id.
func (m *Memory) GetProduct(_ context.Context, id string) (models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, ok := m.products[id]
	if !ok || !product.InStock || !product.IsActive {
		return models.Product{}, storage.ErrNotFound
	}
	return product, nil
}

// CreateOrder stores the order header and its items.
func (m *Memory) CreateOrder(_ context.Context, order models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateOrder != nil {
		return m.FailCreateOrder
	}
	m.orders = append(m.orders, order)
	lines := make([]models.OrderItem, len(items))
	copy(lines, items)
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	m.items[order.ID] = lines
	return nil
}

// ListRecent returns the newest orders, newest first.
func (m *Memory) ListRecent(_ context.Context, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]models.Order{}, m.orders...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OrderItems returns the stored lines of an order, for assertions in tests.
func (m *Memory) OrderItems(orderID string) []models.OrderItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OrderItem{}, m.items[orderID]...)
}

var (
	_ storage.Catalog = (*Memory)(nil)
	_ storage.Orders  = (*Memory)(nil)
)
