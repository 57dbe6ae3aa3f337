package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mallbot/internal/models"
	"mallbot/internal/storage/stubs"
)

func testService(store *stubs.Memory) *Service {
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "order-fixed" }
	return svc
}

func TestCreateOrderPersistsHeaderAndLines(t *testing.T) {
	store := stubs.NewMemory()
	svc := testService(store)

	items := []models.CartItem{
		{ProductID: "p1", ProductName: "Tea", UnitPrice: 100, Quantity: 2, StoreID: "s1", StoreName: "Corner Shop"},
		{ProductID: "p2", ProductName: "Coffee", UnitPrice: 250, Quantity: 1, StoreID: "s1", StoreName: "Corner Shop"},
	}
	res := svc.CreateOrder(context.Background(), 42, models.CheckoutData{
		DisplayName:     "Alice",
		ShippingAddress: "123 Main Street Bangkok",
		PhoneNumber:     "+66812345678",
		PaymentMethod:   models.PaymentKPay,
		TransactionRef:  "123456",
	}, items)

	require.True(t, res.Success)
	assert.Equal(t, "order-fixed", res.OrderID)

	stored, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(42), stored[0].UserID)
	assert.InDelta(t, 450, stored[0].Total, 1e-9)
	require.NotNil(t, stored[0].TransactionRef)
	assert.Equal(t, "123456", *stored[0].TransactionRef)
	assert.Len(t, store.OrderItems("order-fixed"), 2)
}

func TestCreateOrderCashOnDeliveryHasNoRef(t *testing.T) {
	store := stubs.NewMemory()
	svc := testService(store)

	res := svc.CreateOrder(context.Background(), 42, models.CheckoutData{
		DisplayName:     "Alice",
		ShippingAddress: "123 Main Street Bangkok",
		PhoneNumber:     "+66812345678",
		PaymentMethod:   models.PaymentCOD,
	}, []models.CartItem{
		{ProductID: "p1", ProductName: "A", UnitPrice: 100, Quantity: 2, StoreID: "s1", StoreName: "Shop"},
	})

	require.True(t, res.Success)
	stored, _ := store.ListRecent(context.Background(), 1)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].TransactionRef)
	assert.InDelta(t, 200, stored[0].Total, 1e-9)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc := testService(stubs.NewMemory())
	res := svc.CreateOrder(context.Background(), 1, models.CheckoutData{}, nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestCreateOrderStoreFailure(t *testing.T) {
	store := stubs.NewMemory()
	store.FailCreateOrder = errors.New("db down")
	svc := testService(store)

	res := svc.CreateOrder(context.Background(), 1, models.CheckoutData{PaymentMethod: models.PaymentCOD},
		[]models.CartItem{{ProductID: "p1", ProductName: "A", UnitPrice: 10, Quantity: 1}})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}
