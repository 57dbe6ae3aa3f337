package models

import "time"

// PaymentMethod is one of the closed set of payment options a store accepts.
type PaymentMethod string

const (
	// PaymentKPay is an electronic wallet payment.
	PaymentKPay PaymentMethod = "kpay"
	// PaymentUSDT is an electronic stablecoin payment.
	PaymentUSDT PaymentMethod = "usdt"
	// PaymentCOD is cash on delivery.
	PaymentCOD PaymentMethod = "cod"
)

// ParsePaymentMethod maps a raw string to a known payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(raw) {
	case PaymentKPay, PaymentUSDT, PaymentCOD:
		return PaymentMethod(raw), true
	}
	return "", false
}

// Electronic reports whether the method requires a transaction reference.
func (p PaymentMethod) Electronic() bool {
	return p == PaymentKPay || p == PaymentUSDT
}

// Label returns a human-readable name for the method.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentKPay:
		return "KPay"
	case PaymentUSDT:
		return "USDT"
	case PaymentCOD:
		return "Cash on Delivery"
	}
	return string(p)
}

// Store is a shop listed in the mall.
type Store struct {
	ID             string  `db:"id"`
	Name           string  `db:"name"`
	Description    *string `db:"description"`
	Address        *string `db:"address"`
	PhoneNumber    *string `db:"phone_number"`
	ChannelLink    *string `db:"channel_link"`
	AcceptsKPay    bool    `db:"accepts_kpay"`
	AcceptsUSDT    bool    `db:"accepts_usdt"`
	AcceptsCOD     bool    `db:"accepts_cod"`
	IsActive       bool    `db:"is_active"`
	ApprovalStatus string  `db:"approval_status"`
	DisplayOrder   *int    `db:"display_order"`
}

// PaymentMethods lists the methods this store accepts, in menu order.
func (s Store) PaymentMethods() []PaymentMethod {
	var methods []PaymentMethod
	if s.AcceptsKPay {
		methods = append(methods, PaymentKPay)
	}
	if s.AcceptsUSDT {
		methods = append(methods, PaymentUSDT)
	}
	if s.AcceptsCOD {
		methods = append(methods, PaymentCOD)
	}
	return methods
}

// Product is a single item sold by a store.
type Product struct {
	ID            string  `db:"id"`
	StoreID       string  `db:"store_id"`
	Name          string  `db:"name"`
	Description   *string `db:"description"`
	Price         float64 `db:"price"`
	StockQuantity int     `db:"stock_quantity"`
	InStock       bool    `db:"in_stock"`
	IsActive      bool    `db:"is_active"`
	ImageURL      *string `db:"image_url"`
}

// CartItem is one line of a user's cart.
type CartItem struct {
	ProductID   string
	ProductName string
	UnitPrice   float64
	Quantity    int
	StoreID     string
	StoreName   string
}

// Subtotal returns unit price times quantity for the line.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// CheckoutData is the payload assembled from a checkout session and handed
// to order creation. TransactionRef is empty for cash on delivery.
type CheckoutData struct {
	DisplayName     string
	Username        string
	ShippingAddress string
	PhoneNumber     string
	PaymentMethod   PaymentMethod
	TransactionRef  string
	Remark          string
}

// Order is a persisted order header.
type Order struct {
	ID              string        `db:"id"`
	UserID          int64         `db:"user_id"`
	DisplayName     string        `db:"display_name"`
	ShippingAddress string        `db:"shipping_address"`
	PhoneNumber     string        `db:"phone_number"`
	PaymentMethod   PaymentMethod `db:"payment_method"`
	TransactionRef  *string       `db:"transaction_ref"`
	Remark          *string       `db:"remark"`
	Total           float64       `db:"total"`
	Status          string        `db:"status"`
	CreatedAt       time.Time     `db:"created_at"`
}

// OrderItem is a persisted order line.
type OrderItem struct {
	OrderID     string  `db:"order_id"`
	ProductID   string  `db:"product_id"`
	ProductName string  `db:"product_name"`
	UnitPrice   float64 `db:"unit_price"`
	Quantity    int     `db:"quantity"`
	StoreID     string  `db:"store_id"`
	StoreName   string  `db:"store_name"`
}
