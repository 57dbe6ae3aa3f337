package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mallbot/internal/models"
)

func product(id, name string, price float64) models.Product {
	return models.Product{ID: id, StoreID: "store-1", Name: name, Price: price}
}

func TestAddMergesDuplicateProducts(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 2))
	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 3))

	items := s.Items(1)
	require.Len(t, items, 1, "duplicate product ids must merge, not duplicate")
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 0))
	assert.Error(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", -1))
	assert.Empty(t, s.Items(1))
}

func TestTotal(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 2))
	require.NoError(t, s.Add(1, product("p2", "Coffee", 250), "Corner Shop", 1))

	assert.InDelta(t, 450, s.Total(1), 1e-9)
	assert.Zero(t, s.Total(2), "unknown user has an empty cart")
}

func TestRemoveAndClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 1))
	require.NoError(t, s.Add(1, product("p2", "Coffee", 250), "Corner Shop", 1))

	s.Remove(1, "p1")
	items := s.Items(1)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)

	s.Clear(1)
	assert.Empty(t, s.Items(1))
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 1))

	items := s.Items(1)
	items[0].Quantity = 99

	assert.Equal(t, 1, s.Items(1)[0].Quantity)
}

func TestSummaryListsItemsAndSubtotal(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(1, product("p1", "Tea", 100), "Corner Shop", 2))

	summary := s.Summary(1)
	assert.Contains(t, summary, "Corner Shop")
	assert.Contains(t, summary, "Tea × 2")
	assert.Contains(t, summary, "200 Ks")

	assert.Equal(t, "Your cart is empty.", s.Summary(42))
}
