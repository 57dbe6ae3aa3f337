// Package orders turns assembled checkout data into persisted orders.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mallbot/core/logger"
	"mallbot/internal/models"
	"mallbot/internal/storage"
	"log/slog"
)

// Result reports the outcome of one order creation attempt.
type Result struct {
	Success bool
	OrderID string
	Message string
}

// Service creates orders in the backing store. It is called at most once per
// completed checkout; failures are terminal for that attempt.
type Service struct {
	store storage.Orders
	now   func() time.Time
	newID func() string
}

// NewService constructs the order service.
func NewService(store storage.Orders) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// CreateOrder persists the checkout as an order with its cart lines.
func (s *Service) CreateOrder(ctx context.Context, userID int64, data models.CheckoutData, items []models.CartItem) Result {
	if len(items) == 0 {
		return Result{Message: "Your cart is empty."}
	}

	order := models.Order{
		ID:              s.newID(),
		UserID:          userID,
		DisplayName:     data.DisplayName,
		ShippingAddress: data.ShippingAddress,
		PhoneNumber:     data.PhoneNumber,
		PaymentMethod:   data.PaymentMethod,
		Status:          "pending",
		CreatedAt:       s.now().UTC(),
	}
	if data.TransactionRef != "" {
		ref := data.TransactionRef
		order.TransactionRef = &ref
	}
	if data.Remark != "" {
		remark := data.Remark
		order.Remark = &remark
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		order.Total += item.Subtotal()
		lines = append(lines, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			StoreID:     item.StoreID,
			StoreName:   item.StoreName,
		})
	}

	if err := s.store.CreateOrder(ctx, order, lines); err != nil {
		logger.Error(ctx, "service.orders", "order.create",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Result{Message: "Could not save your order. Please try again later."}
	}

	logger.Info(ctx, "service.orders", "order.create",
		slog.String("status", "ok"),
		slog.String("order_id", order.ID),
		slog.Int64("user_id", userID),
		slog.String("payment_method", string(order.PaymentMethod)),
		slog.Int("items", len(lines)),
	)
	return Result{Success: true, OrderID: order.ID}
}
