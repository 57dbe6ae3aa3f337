// Package pg implements the storage contracts on PostgreSQL via sqlx.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mallbot/core/logger"
	"mallbot/internal/models"
	"mallbot/internal/storage"
	"log/slog"
)

// Storage bundles the catalog and order repositories over one connection pool.
type Storage struct {
	db *sqlx.DB
}

// New wraps an established sqlx connection pool.
func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

const storeColumns = `id, name, description, address, phone_number, channel_link,
	accepts_kpay, accepts_usdt, accepts_cod, is_active, approval_status, display_order`

// ListStores returns one page of visible stores plus the total count.
func (s *Storage) ListStores(ctx context.Context, offset, limit int) ([]models.Store, int, error) {
	start := time.Now()

	var total int
	err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM stores WHERE is_active AND approval_status = 'approved'`)
	if err != nil {
		return nil, 0, fmt.Errorf("count stores: %w", err)
	}

	stores := []models.Store{}
	err = s.db.SelectContext(ctx, &stores,
		`SELECT `+storeColumns+`
		 FROM stores
		 WHERE is_active AND approval_status = 'approved'
		 ORDER BY display_order NULLS LAST, name
		 OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list stores: %w", err)
	}

	logger.SVCCatalog.LogAttrs(ctx, slog.LevelDebug, "stores listed",
		slog.String("event", "stores.list"),
		slog.Int("count", len(stores)),
		slog.Duration("duration", logger.Took(start)),
	)
	return stores, total, nil
}

// GetStore returns a visible store by id.
func (s *Storage) GetStore(ctx context.Context, id string) (models.Store, error) {
	var store models.Store
	err := s.db.GetContext(ctx, &store,
		`SELECT `+storeColumns+`
		 FROM stores
		 WHERE id = $1 AND is_active AND approval_status = 'approved'`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Store{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Store{}, fmt.Errorf("get store %s: %w", id, err)
	}
	return store, nil
}

const productColumns = `id, store_id, name, description, price, stock_quantity,
	in_stock, is_active, image_url`

// ListProducts returns the visible products of a store ordered by name.
func (s *Storage) ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE store_id = $1 AND in_stock AND is_active
		 ORDER BY name`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list products of %s: %w", storeID, err)
	}
	return products, nil
}

// GetProduct returns a visible product by id.
func (s *Storage) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE id = $1 AND in_stock AND is_active`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return product, nil
}

// CreateOrder inserts the order header and its items in one transaction.
func (s *Storage) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) error {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO orders (id, user_id, display_name, shipping_address, phone_number,
		                     payment_method, transaction_ref, remark, total, status, created_at)
		 VALUES (:id, :user_id, :display_name, :shipping_address, :phone_number,
		         :payment_method, :transaction_ref, :remark, :total, :status, :created_at)`,
		order)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		item.OrderID = order.ID
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, unit_price,
			                          quantity, store_id, store_name)
			 VALUES (:order_id, :product_id, :product_name, :unit_price,
			         :quantity, :store_id, :store_name)`,
			item)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	logger.SVCOrders.LogAttrs(ctx, slog.LevelInfo, "order stored",
		slog.String("event", "order.insert"),
		slog.String("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.Int("items", len(items)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ListRecent returns the newest orders, newest first.
func (s *Storage) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		`SELECT id, user_id, display_name, shipping_address, phone_number,
		        payment_method, transaction_ref, remark, total, status, created_at
		 FROM orders
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return orders, nil
}

var (
	_ storage.Catalog = (*Storage)(nil)
	_ storage.Orders  = (*Storage)(nil)
)
