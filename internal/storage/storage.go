// Package storage defines the catalog and order persistence contracts backed
// by the relational store, plus an in-memory stub for tests and development.
package storage

import (
	"context"
	"errors"

	"mallbot/internal/models"
)

// ErrNotFound is returned when a requested row does not exist or is not visible.
var ErrNotFound = errors.New("storage: not found")

// Catalog reads stores and products. Only active, approved stores and active,
// in-stock products are visible through this interface.
type Catalog interface {
	// ListStores returns one page of visible stores plus the total count.
	ListStores(ctx context.Context, offset, limit int) ([]models.Store, int, error)
	// GetStore returns a visible store by id.
	GetStore(ctx context.Context, id string) (models.Store, error)
	// ListProducts returns the visible products of a store ordered by name.
	ListProducts(ctx context.Context, storeID string) ([]models.Product, error)
	// GetProduct returns a visible product by id.
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

// Orders persists completed checkouts.
type Orders interface {
	// CreateOrder inserts the order header and its items in one transaction.
	CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error
	// ListRecent returns the newest orders, newest first.
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
}
