package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mallbot/core/telegram/state"
	"mallbot/internal/cart"
	"mallbot/internal/models"
	"mallbot/internal/orders"
	"mallbot/internal/storage/stubs"
)

type prompt struct {
	userID  int64
	text    string
	buttons [][]Button
}

type fakePresenter struct {
	prompts []prompt
}

func (p *fakePresenter) Prompt(_ context.Context, userID int64, text string, buttons ...[]Button) {
	p.prompts = append(p.prompts, prompt{userID: userID, text: text, buttons: buttons})
}

func (p *fakePresenter) last(t *testing.T) prompt {
	t.Helper()
	require.NotEmpty(t, p.prompts)
	return p.prompts[len(p.prompts)-1]
}

type fixture struct {
	flow     *Flow
	sessions state.Manager
	cart     *cart.Store
	store    *stubs.Memory
	present  *fakePresenter
}

func newFixture() *fixture {
	sessions := state.NewMemoryManager()
	carts := cart.NewStore()
	store := stubs.NewMemory()
	present := &fakePresenter{}
	flow := NewFlow(sessions, carts, orders.NewService(store), present)
	return &fixture{flow: flow, sessions: sessions, cart: carts, store: store, present: present}
}

func (f *fixture) fillCart(t *testing.T, userID int64, price float64, qty int) {
	t.Helper()
	err := f.cart.Add(userID, models.Product{
		ID: "p1", StoreID: "s1", Name: "Product A", Price: price,
	}, "Corner Shop", qty)
	require.NoError(t, err)
}

const (
	testUser    = int64(42)
	goodAddress = "123 Main Street Bangkok"
	goodPhone   = "+66812345678"
)

var testProfile = Profile{FirstName: "Alice", LastName: "Lee", Username: "alice"}

func TestStartWithEmptyCart(t *testing.T) {
	f := newFixture()

	f.flow.Start(context.Background(), testUser, testProfile)

	assert.False(t, f.sessions.InProgress(testUser))
	assert.Contains(t, f.present.last(t).text, "cart is empty")
}

func TestStartSeedsSession(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 2)

	f.flow.Start(context.Background(), testUser, testProfile)

	session, ok := f.sessions.Get(testUser)
	require.True(t, ok)
	assert.Equal(t, StateCollectingAddress, session.State)
	assert.Equal(t, "Alice Lee", session.Value("display_name"))
	assert.Equal(t, "alice", session.Value("username"))
	assert.Contains(t, f.present.last(t).text, "200")
}

func TestAddressTooShortStaysPut(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)

	f.flow.HandleText(context.Background(), testUser, "short")

	assert.Equal(t, StateCollectingAddress, f.sessions.GetState(testUser))
	session, _ := f.sessions.Get(testUser)
	assert.Empty(t, session.Value("shipping_address"))
	assert.Contains(t, f.present.last(t).text, "detailed shipping address")
}

func TestAddressAdvancesToPhone(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)

	f.flow.HandleText(context.Background(), testUser, "  "+goodAddress+"  ")

	session, _ := f.sessions.Get(testUser)
	assert.Equal(t, StateCollectingPhone, session.State)
	assert.Equal(t, goodAddress, session.Value("shipping_address"))
	// earlier data survives the transition
	assert.Equal(t, "Alice Lee", session.Value("display_name"))
}

func TestPhoneTooShortStaysPut(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)

	f.flow.HandleText(context.Background(), testUser, "123")

	assert.Equal(t, StateCollectingPhone, f.sessions.GetState(testUser))
}

func TestPhoneAdvancesToConfirmation(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 2)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)

	f.flow.HandleText(context.Background(), testUser, goodPhone)

	session, _ := f.sessions.Get(testUser)
	assert.Equal(t, StateConfirming, session.State)
	assert.Equal(t, goodPhone, session.Value("phone_number"))

	summary := f.present.last(t)
	assert.Contains(t, summary.text, "Order Summary")
	assert.Contains(t, summary.text, "200")
	require.Len(t, summary.buttons, 4)
	assert.Equal(t, string(models.PaymentKPay), summary.buttons[0][0].Payload)
	assert.Equal(t, ActionCancel, summary.buttons[3][0].Action)
}

func TestTextDuringConfirmationIgnored(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)
	f.flow.HandleText(context.Background(), testUser, goodPhone)
	sent := len(f.present.prompts)

	f.flow.HandleText(context.Background(), testUser, "kpay please")

	assert.Equal(t, StateConfirming, f.sessions.GetState(testUser))
	assert.Len(t, f.present.prompts, sent)
}

func TestTextWithoutSessionIgnored(t *testing.T) {
	f := newFixture()

	f.flow.HandleText(context.Background(), testUser, "hello")

	assert.Empty(t, f.present.prompts)
	assert.False(t, f.sessions.InProgress(testUser))
}

func TestCashOnDeliveryCompletesImmediately(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 2)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)
	f.flow.HandleText(context.Background(), testUser, goodPhone)

	f.flow.SelectPayment(context.Background(), testUser, models.PaymentCOD)

	stored, err := f.store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.PaymentCOD, stored[0].PaymentMethod)
	assert.Nil(t, stored[0].TransactionRef)
	assert.InDelta(t, 200, stored[0].Total, 1e-9)
	assert.Equal(t, goodAddress, stored[0].ShippingAddress)
	assert.Equal(t, goodPhone, stored[0].PhoneNumber)

	assert.False(t, f.sessions.InProgress(testUser), "session must be gone")
	assert.Empty(t, f.cart.Items(testUser), "cart cleared after success")
	assert.Contains(t, f.present.last(t).text, "Order Placed Successfully")
	assert.Contains(t, f.present.last(t).text, stored[0].ID)
}

func TestElectronicPaymentCollectsReference(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)
	f.flow.HandleText(context.Background(), testUser, goodPhone)

	f.flow.SelectPayment(context.Background(), testUser, models.PaymentKPay)

	assert.Equal(t, StateCollectingTxRef, f.sessions.GetState(testUser))
	assert.Contains(t, f.present.last(t).text, "KPay")

	// too short, stays collecting
	f.flow.HandleText(context.Background(), testUser, "123")
	assert.Equal(t, StateCollectingTxRef, f.sessions.GetState(testUser))

	f.flow.HandleText(context.Background(), testUser, "987654")

	stored, err := f.store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.PaymentKPay, stored[0].PaymentMethod)
	require.NotNil(t, stored[0].TransactionRef)
	assert.Equal(t, "987654", *stored[0].TransactionRef)
	assert.False(t, f.sessions.InProgress(testUser))
}

func TestSelectPaymentOutsideConfirmationIgnored(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)

	f.flow.SelectPayment(context.Background(), testUser, models.PaymentCOD)

	assert.Equal(t, StateCollectingAddress, f.sessions.GetState(testUser))
	stored, err := f.store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCancelPreservesCart(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 3)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)

	f.flow.Cancel(context.Background(), testUser)

	assert.False(t, f.sessions.InProgress(testUser))
	require.Len(t, f.cart.Items(testUser), 1)
	assert.Equal(t, 3, f.cart.Items(testUser)[0].Quantity)
	assert.Contains(t, f.present.last(t).text, "cancelled")
}

func TestOrderFailureClearsSessionKeepsCart(t *testing.T) {
	f := newFixture()
	f.store.FailCreateOrder = errors.New("db down")
	f.fillCart(t, testUser, 100, 1)
	f.flow.Start(context.Background(), testUser, testProfile)
	f.flow.HandleText(context.Background(), testUser, goodAddress)
	f.flow.HandleText(context.Background(), testUser, goodPhone)

	f.flow.SelectPayment(context.Background(), testUser, models.PaymentCOD)

	assert.False(t, f.sessions.InProgress(testUser), "no retry: session cleared on failure too")
	assert.NotEmpty(t, f.cart.Items(testUser), "cart kept so the user can try again")
	assert.Contains(t, f.present.last(t).text, "Order failed")
}

func TestFlowsAreIndependentPerUser(t *testing.T) {
	f := newFixture()
	f.fillCart(t, 1, 100, 1)
	f.fillCart(t, 2, 50, 1)
	f.flow.Start(context.Background(), 1, Profile{FirstName: "A"})
	f.flow.Start(context.Background(), 2, Profile{FirstName: "B"})

	f.flow.HandleText(context.Background(), 1, goodAddress)

	assert.Equal(t, StateCollectingPhone, f.sessions.GetState(1))
	assert.Equal(t, StateCollectingAddress, f.sessions.GetState(2))
}

func TestPromptsTargetTheRightUser(t *testing.T) {
	f := newFixture()
	f.fillCart(t, testUser, 100, 1)

	f.flow.Start(context.Background(), testUser, testProfile)

	for _, p := range f.present.prompts {
		assert.Equal(t, testUser, p.userID)
	}
	assert.True(t, strings.Contains(f.present.last(t).text, "shipping address"))
}
