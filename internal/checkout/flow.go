// Package checkout drives the conversational checkout flow: a linear state
// machine collecting shipping address, phone number, payment method and, for
// electronic payments, a transaction reference, before submitting the order.
//
// The flow only consumes text input and payment/cancel selections. Any other
// event, and any input arriving in a state that does not expect it, is
// ignored rather than treated as an error.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mallbot/core/logger"
	"mallbot/core/telegram/format"
	"mallbot/core/telegram/state"
	"mallbot/internal/models"
	"mallbot/internal/orders"
	"log/slog"
)

// Conversation states. Absence of a session (or an idle one) means the user
// is not in checkout.
const (
	StateCollectingAddress state.State = "collecting_shipping_address"
	StateCollectingPhone   state.State = "collecting_phone_number"
	StateConfirming        state.State = "confirming_order"
	StateCollectingTxRef   state.State = "collecting_transaction_number"
)

// Session data keys accumulated across steps.
const (
	keyDisplayName = "display_name"
	keyUsername    = "username"
	keyAddress     = "shipping_address"
	keyPhone       = "phone_number"
	keyPayment     = "payment_method"
	keyRemark      = "remark"
)

// Length guards. Plain thresholds, not format validation.
const (
	minAddressLen = 10
	minPhoneLen   = 8
	minTxRefLen   = 6
)

const orderTimeout = 15 * time.Second

// Button is one inline action offered alongside a prompt.
type Button struct {
	Label   string
	Action  string
	Payload string
}

// Presenter renders checkout prompts to the user. Implementations must treat
// transport errors as their own concern: log and continue, never fail the flow.
type Presenter interface {
	Prompt(ctx context.Context, userID int64, text string, buttons ...[]Button)
}

// Cart is the read view of the cart store the flow needs. The flow never
// mutates the cart except to clear it after a successful order.
type Cart interface {
	Items(userID int64) []models.CartItem
	Total(userID int64) float64
	Summary(userID int64) string
	Clear(userID int64)
}

// OrderCreator submits a completed checkout exactly once per attempt.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID int64, data models.CheckoutData, items []models.CartItem) orders.Result
}

// Profile carries the invoking user's Telegram identity used to seed a session.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
}

func (p Profile) displayName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Callback actions the flow offers on its keyboards.
const (
	ActionCancel  = "cancel_checkout"
	ActionPayment = "payment"
)

// Flow is the checkout state machine. All dependencies are injected; the flow
// holds no per-user data itself.
type Flow struct {
	sessions state.Manager
	cart     Cart
	orders   OrderCreator
	present  Presenter
}

// NewFlow wires the checkout flow.
func NewFlow(sessions state.Manager, cart Cart, creator OrderCreator, present Presenter) *Flow {
	return &Flow{
		sessions: sessions,
		cart:     cart,
		orders:   creator,
		present:  present,
	}
}

// Start begins checkout for a user. An empty cart refuses to start; otherwise
// the session is seeded with the user's profile and the address prompt is
// shown together with the current cart total.
func (f *Flow) Start(ctx context.Context, userID int64, profile Profile) {
	if len(f.cart.Items(userID)) == 0 {
		f.present.Prompt(ctx, userID, "Your cart is empty! Please add some items before checkout.")
		return
	}

	f.sessions.Apply(userID, state.To(StateCollectingAddress, map[string]string{
		keyDisplayName: profile.displayName(),
		keyUsername:    profile.Username,
	}))

	text := fmt.Sprintf(
		"🛒 *Checkout Process Started*\n\n"+
			"Total Amount: %s\n\n"+
			"📍 Please provide your shipping address:\n\n"+
			"*Example:*\n123 Main Street\nApartment 4B\nBangkok 10110\nThailand",
		format.FormatCurrency(f.cart.Total(userID)),
	)
	f.present.Prompt(ctx, userID, text, cancelRow())

	logger.Info(ctx, "checkout", "flow.start",
		slog.Int64("user_id", userID),
		slog.String("state", string(StateCollectingAddress)),
	)
}

// HandleText feeds a text message into the state machine. Messages for users
// without an active session, and states that expect no text, are ignored.
func (f *Flow) HandleText(ctx context.Context, userID int64, text string) {
	session, ok := f.sessions.Get(userID)
	if !ok || session.State == state.StateIdle {
		return
	}

	input := strings.TrimSpace(text)
	switch session.State {
	case StateCollectingAddress:
		f.handleAddress(ctx, userID, input)
	case StateCollectingPhone:
		f.handlePhone(ctx, userID, input)
	case StateCollectingTxRef:
		f.handleTxRef(ctx, userID, input)
	case StateConfirming:
		// Payment method is chosen via buttons; free text is ignored here.
	default:
		// Unknown state: ignore rather than error.
	}
}

func (f *Flow) handleAddress(ctx context.Context, userID int64, address string) {
	if len(address) < minAddressLen {
		f.present.Prompt(ctx, userID,
			"Please provide a more detailed shipping address (at least 10 characters).")
		return
	}

	f.sessions.Apply(userID, state.To(StateCollectingPhone, map[string]string{
		keyAddress: address,
	}))
	f.present.Prompt(ctx, userID,
		"✅ Shipping address saved!\n\n"+
			"📱 Please provide your phone number for delivery coordination:\n\n"+
			"*Example:* +66 81 234 5678",
		cancelRow())
}

func (f *Flow) handlePhone(ctx context.Context, userID int64, phone string) {
	if len(phone) < minPhoneLen {
		f.present.Prompt(ctx, userID, "Please provide a valid phone number.")
		return
	}

	session := f.sessions.Apply(userID, state.To(StateConfirming, map[string]string{
		keyPhone: phone,
	}))

	text := fmt.Sprintf(
		"📋 *Order Summary*\n\n"+
			"👤 Name: %s\n"+
			"📍 Address: %s\n"+
			"📱 Phone: %s\n\n"+
			"%s\n\n"+
			"💰 *Total: %s*\n\n"+
			"Please select your payment method:",
		format.EscapeMD(session.Value(keyDisplayName)),
		format.EscapeMD(session.Value(keyAddress)),
		format.EscapeMD(phone),
		f.cart.Summary(userID),
		format.FormatCurrency(f.cart.Total(userID)),
	)
	f.present.Prompt(ctx, userID, text,
		[]Button{{Label: "💳 KPay", Action: ActionPayment, Payload: string(models.PaymentKPay)}},
		[]Button{{Label: "💰 USDT", Action: ActionPayment, Payload: string(models.PaymentUSDT)}},
		[]Button{{Label: "💵 Cash on Delivery", Action: ActionPayment, Payload: string(models.PaymentCOD)}},
		cancelRow(),
	)
}

func (f *Flow) handleTxRef(ctx context.Context, userID int64, ref string) {
	if len(ref) < minTxRefLen {
		f.present.Prompt(ctx, userID,
			"Please provide the last 6 digits of your transaction number.")
		return
	}
	f.complete(ctx, userID, ref)
}

// SelectPayment records the chosen payment method. Cash on delivery completes
// the order immediately; electronic methods move on to collecting the
// transaction reference. Selections outside ConfirmingOrder are ignored.
func (f *Flow) SelectPayment(ctx context.Context, userID int64, method models.PaymentMethod) {
	if f.sessions.GetState(userID) != StateConfirming {
		return
	}

	// Only the payment method changes here; the state stays put until the
	// branch below decides where to go.
	f.sessions.Apply(userID, state.Merge(map[string]string{
		keyPayment: string(method),
	}))

	if !method.Electronic() {
		f.complete(ctx, userID, "")
		return
	}

	f.sessions.Apply(userID, state.To(StateCollectingTxRef, nil))
	text := fmt.Sprintf(
		"💳 *%s Payment Selected*\n\n"+
			"Please make the payment and provide the last 6 digits of your transaction number.\n\n"+
			"*Note:* Your order will be processed once payment is confirmed.",
		method.Label(),
	)
	f.present.Prompt(ctx, userID, text, cancelRow())
}

// Cancel aborts the checkout from any state, deleting the session and leaving
// the cart untouched.
func (f *Flow) Cancel(ctx context.Context, userID int64) {
	f.sessions.Clear(userID)
	f.present.Prompt(ctx, userID, "❌ Checkout cancelled. Your cart items are still saved.")

	logger.Info(ctx, "checkout", "flow.cancel", slog.Int64("user_id", userID))
}

// InCheckout reports whether the user has an active checkout session.
func (f *Flow) InCheckout(userID int64) bool {
	return f.sessions.InProgress(userID)
}

// complete assembles CheckoutData from the session, submits the order, and
// clears the session whatever the outcome. There is no retry; a failed
// attempt requires restarting checkout. The cart is cleared only on success.
func (f *Flow) complete(ctx context.Context, userID int64, txRef string) {
	session, ok := f.sessions.Get(userID)
	if !ok {
		f.present.Prompt(ctx, userID, "Session expired. Please start checkout again.")
		return
	}

	method, _ := models.ParsePaymentMethod(session.Value(keyPayment))
	data := models.CheckoutData{
		DisplayName:     session.Value(keyDisplayName),
		Username:        session.Value(keyUsername),
		ShippingAddress: session.Value(keyAddress),
		PhoneNumber:     session.Value(keyPhone),
		PaymentMethod:   method,
		TransactionRef:  txRef,
		Remark:          session.Value(keyRemark),
	}

	orderCtx, cancel := context.WithTimeout(ctx, orderTimeout)
	defer cancel()
	result := f.orders.CreateOrder(orderCtx, userID, data, f.cart.Items(userID))

	if result.Success {
		f.cart.Clear(userID)
		f.present.Prompt(ctx, userID, fmt.Sprintf(
			"✅ *Order Placed Successfully!*\n\n"+
				"Order ID: %s\n\n"+
				"Thank you for your order! You will receive updates on your order status.",
			result.OrderID,
		))
	} else {
		f.present.Prompt(ctx, userID, "❌ Order failed: "+result.Message)
	}

	f.sessions.Clear(userID)

	status := "fail"
	if result.Success {
		status = "ok"
	}
	logger.Info(ctx, "checkout", "flow.complete",
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("order_id", result.OrderID),
		slog.String("payment_method", string(method)),
	)
}

func cancelRow() []Button {
	return []Button{{Label: "❌ Cancel Checkout", Action: ActionCancel}}
}
