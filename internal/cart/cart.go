// Package cart keeps per-user shopping carts in process memory. The store is
// an injected instance so tests get isolation and the backing store can be
// swapped without touching callers.
package cart

import (
	"fmt"
	"strings"
	"sync"

	"mallbot/core/telegram/format"
	"mallbot/internal/models"
)

// Store maps user IDs to their cart line items.
type Store struct {
	mu    sync.RWMutex
	carts map[int64][]models.CartItem
}

// NewStore constructs an empty cart store.
func NewStore() *Store {
	return &Store{carts: make(map[int64][]models.CartItem)}
}

// Add puts quantity units of a product into the user's cart. Lines with the
// same product ID are merged by summing quantities, never duplicated.
func (s *Store) Add(userID int64, product models.Product, storeName string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("cart: quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].ProductID == product.ID {
			items[i].Quantity += quantity
			return nil
		}
	}
	s.carts[userID] = append(items, models.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		StoreID:     product.StoreID,
		StoreName:   storeName,
	})
	return nil
}

// Remove deletes the line for a product from the user's cart, if present.
func (s *Store) Remove(userID int64, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			s.carts[userID] = append(items[:i], items[i+1:]...)
			return
		}
	}
}

// Clear removes the entire cart for a user.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
}

// Items returns a copy of the user's cart lines in insertion order.
func (s *Store) Items(userID int64) []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.carts[userID]
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

// Total returns the sum of unit price times quantity over all lines.
func (s *Store) Total(userID int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, item := range s.carts[userID] {
		total += item.Subtotal()
	}
	return total
}

// Summary renders the cart as multi-line Markdown: one line per item with
// quantity and subtotal, grouped under the store name.
func (s *Store) Summary(userID int64) string {
	items := s.Items(userID)
	if len(items) == 0 {
		return "Your cart is empty."
	}

	var b strings.Builder
	lastStore := ""
	for _, item := range items {
		if item.StoreName != lastStore {
			fmt.Fprintf(&b, "🏪 *%s*\n", format.EscapeMD(item.StoreName))
			lastStore = item.StoreName
		}
		fmt.Fprintf(&b, "• %s × %d — %s\n",
			format.EscapeMD(item.ProductName),
			item.Quantity,
			format.FormatCurrency(item.Subtotal()),
		)
	}
	fmt.Fprintf(&b, "\n*Subtotal:* %s", format.FormatCurrency(s.Total(userID)))
	return b.String()
}
