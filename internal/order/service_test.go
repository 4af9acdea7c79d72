package order

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelskoog/storefront/internal/payment"
	"github.com/avelskoog/storefront/internal/pricing"
	"github.com/avelskoog/storefront/internal/types/order"
	"github.com/avelskoog/storefront/internal/types/user"
)

type mockOrderRepo struct {
	createOrderFn      func(ctx context.Context, o *order.Order) error
	findOrderByUUIDFn  func(ctx context.Context, uuid string) (*order.Order, error)
	updateOrderFn      func(ctx context.Context, o *order.Order) error
	removeOrderFn      func(ctx context.Context, uuid string) error
	listOrdersFn       func(ctx context.Context, limit, skip int) ([]order.Order, error)
	listOrdersByUserFn func(ctx context.Context, userID int64, limit, skip int) ([]order.Order, error)
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createOrderFn(ctx, o)
}
func (m *mockOrderRepo) FindOrderByUUID(ctx context.Context, uuid string) (*order.Order, error) {
	return m.findOrderByUUIDFn(ctx, uuid)
}
func (m *mockOrderRepo) UpdateOrder(ctx context.Context, o *order.Order) error {
	return m.updateOrderFn(ctx, o)
}
func (m *mockOrderRepo) RemoveOrder(ctx context.Context, uuid string) error {
	return m.removeOrderFn(ctx, uuid)
}
func (m *mockOrderRepo) ListOrders(ctx context.Context, limit, skip int) ([]order.Order, error) {
	return m.listOrdersFn(ctx, limit, skip)
}
func (m *mockOrderRepo) ListOrdersByUser(ctx context.Context, userID int64, limit, skip int) ([]order.Order, error) {
	return m.listOrdersByUserFn(ctx, userID, limit, skip)
}

type mockIntentRepo struct {
	created []order.PaymentIntent
	settled map[string]string
}

func newMockIntentRepo() *mockIntentRepo {
	return &mockIntentRepo{settled: make(map[string]string)}
}

func (m *mockIntentRepo) CreateIntent(ctx context.Context, in *order.PaymentIntent) error {
	m.created = append(m.created, *in)
	return nil
}
func (m *mockIntentRepo) SettleIntent(ctx context.Context, id, state string, settledAt time.Time) error {
	m.settled[id] = state
	return nil
}
func (m *mockIntentRepo) ListPendingIntentsBefore(ctx context.Context, cutoff time.Time) ([]order.PaymentIntent, error) {
	return nil, nil
}
func (m *mockIntentRepo) MarkIntentStale(ctx context.Context, id string) error {
	return nil
}

type mockGateway struct {
	calls           []string
	authorizeFn     func(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error)
	finalizeFn      func(ctx context.Context, amount float64, paymentToken, authCode string) (*payment.Result, error)
	refundPartialFn func(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error)
	refundFullFn    func(ctx context.Context, gatewayID string) (int, error)
}

func (m *mockGateway) Authorize(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error) {
	m.calls = append(m.calls, "authorize")
	return m.authorizeFn(ctx, amount, tax, card)
}
func (m *mockGateway) Finalize(ctx context.Context, amount float64, paymentToken, authCode string) (*payment.Result, error) {
	m.calls = append(m.calls, "finalize")
	return m.finalizeFn(ctx, amount, paymentToken, authCode)
}
func (m *mockGateway) RefundPartial(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error) {
	m.calls = append(m.calls, "refundPartial")
	return m.refundPartialFn(ctx, amount, tax, paymentToken)
}
func (m *mockGateway) RefundFull(ctx context.Context, gatewayID string) (int, error) {
	m.calls = append(m.calls, "refundFull")
	return m.refundFullFn(ctx, gatewayID)
}

// fakePricer prices carts from a flat price map, tax-free, so deltas in
// tests stay easy to read.
type fakePricer struct {
	prices map[int64]float64
}

func (f *fakePricer) Price(ctx context.Context, lines []order.CartLine) (*pricing.Quote, error) {
	if len(lines) == 0 {
		return nil, pricing.ErrEmptyCart
	}
	var sub float64
	for _, l := range lines {
		p, ok := f.prices[l.Product]
		if !ok {
			return nil, pricing.ErrProductNotFound
		}
		sub += p * float64(l.Quantity)
	}
	sub = pricing.Round2(sub)
	return &pricing.Quote{Subtotal: sub, Tax: 0, Total: sub}, nil
}

func approved(amount float64) *payment.Result {
	return &payment.Result{
		Status:       payment.StatusApproved,
		Created:      time.Now().UTC(),
		PaymentToken: "tok-1",
		GatewayID:    "gw-1",
		Amount:       amount,
		AuthCode:     "A1B2",
	}
}

var (
	owner = user.Principal{ID: 1}
	admin = user.Principal{ID: 9, IsAdmin: true}
)

func placedLedger() []order.PaymentHistoryEntry {
	return []order.PaymentHistoryEntry{{
		Status: order.StatusPlaced,
		Ref: order.PaymentRef{
			PaymentToken: "tok-1",
			GatewayID:    "gw-1",
			Amount:       20.00,
			AuthCode:     "A1B2",
			PayOption:    order.PayOptionCard,
		},
	}}
}

func paidLedger() []order.PaymentHistoryEntry {
	return append(placedLedger(), order.PaymentHistoryEntry{
		Status: order.StatusCompleted,
		Ref: order.PaymentRef{
			PaymentToken: "tok-1",
			GatewayID:    "gw-2",
			Amount:       20.00,
			AuthCode:     "A1B2",
		},
	})
}

func TestCreateCardOrder(t *testing.T) {
	var saved *order.Order
	repo := &mockOrderRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			saved = o
			return nil
		},
	}
	intents := newMockIntentRepo()
	gw := &mockGateway{
		authorizeFn: func(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error) {
			assert.Equal(t, 20.00, amount)
			return approved(amount), nil
		},
	}
	svc := NewService(repo, intents, &fakePricer{prices: map[int64]float64{100: 10.00}}, gw)

	o, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail:  []order.CartLine{{Product: 100, Quantity: 2}},
		PayOption:   order.PayOptionCard,
		PaymentInfo: &payment.CardDetails{Number: "4111111111111111"},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.NotEmpty(t, o.UUID)
	assert.Equal(t, []string{"authorize"}, gw.calls)
	require.Len(t, o.PayHistory, 1)
	assert.Equal(t, order.StatusPlaced, o.PayHistory[0].Status)
	assert.Equal(t, "tok-1", o.PayHistory[0].Ref.PaymentToken)

	require.Len(t, intents.created, 1)
	assert.Equal(t, order.OpAuthorize, intents.created[0].Op)
	assert.Equal(t, order.IntentSettled, intents.settled[intents.created[0].ID])

	st := order.Summarize(o.PayHistory)
	assert.True(t, st.Authorized)
	assert.False(t, st.Paid)
}

func TestCreateUnknownProduct(t *testing.T) {
	created := false
	repo := &mockOrderRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			created = true
			return nil
		},
	}
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{}}, gw)

	_, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail: []order.CartLine{{Product: 42, Quantity: 1}},
		PayOption:  order.PayOptionCard,
	})
	assert.ErrorIs(t, err, ErrBadCart)
	assert.False(t, created)
	assert.Empty(t, gw.calls)
}

func TestCreateUnknownPayOption(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 5}}, &mockGateway{})

	_, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 1}},
		PayOption:  "Barter",
	})
	assert.ErrorIs(t, err, ErrUnknownPayOption)
}

func TestCreateInStoreOrder(t *testing.T) {
	var saved *order.Order
	repo := &mockOrderRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			saved = o
			return nil
		},
	}
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 5}}, gw)

	o, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 3}},
		PayOption:  order.PayOptionInStore,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Empty(t, gw.calls)
	require.Len(t, o.PayHistory, 1)
	assert.Equal(t, order.StatusPlaced, o.PayHistory[0].Status)
	assert.Equal(t, order.PayOptionInStore, o.PayHistory[0].Ref.PayOption)
	assert.Empty(t, o.PayHistory[0].Ref.PaymentToken)
}

func TestCreateGatewayUnreachable(t *testing.T) {
	created := false
	repo := &mockOrderRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			created = true
			return nil
		},
	}
	intents := newMockIntentRepo()
	gw := &mockGateway{
		authorizeFn: func(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error) {
			return nil, &payment.GatewayError{Message: "connection refused"}
		},
	}
	svc := NewService(repo, intents, &fakePricer{prices: map[int64]float64{1: 5}}, gw)

	_, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail:  []order.CartLine{{Product: 1, Quantity: 1}},
		PayOption:   order.PayOptionCard,
		PaymentInfo: &payment.CardDetails{},
	})
	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.False(t, created)
	require.Len(t, intents.created, 1)
	assert.Equal(t, order.IntentFailed, intents.settled[intents.created[0].ID])
}

func TestCreateDeclinedIsRecorded(t *testing.T) {
	var saved *order.Order
	repo := &mockOrderRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			saved = o
			return nil
		},
	}
	gw := &mockGateway{
		authorizeFn: func(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error) {
			return &payment.Result{Status: "Declined"}, nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 5}}, gw)

	o, err := svc.Create(context.Background(), owner, &CreateRequest{
		CartDetail:  []order.CartLine{{Product: 1, Quantity: 1}},
		PayOption:   order.PayOptionCard,
		PaymentInfo: &payment.CardDetails{},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	require.Len(t, o.PayHistory, 1)
	assert.Equal(t, "Declined", o.PayHistory[0].Status)
	assert.False(t, order.Summarize(o.PayHistory).Authorized)
}

func updateFixture(history []order.PaymentHistoryEntry) (*mockOrderRepo, **order.Order) {
	stored := &order.Order{
		UUID:       "u-1",
		UserID:     1,
		CartDetail: []order.CartLine{{Product: 1, Quantity: 2}},
		PayHistory: history,
	}
	var updated *order.Order
	repo := &mockOrderRepo{
		findOrderByUUIDFn: func(ctx context.Context, uuid string) (*order.Order, error) {
			return stored, nil
		},
		updateOrderFn: func(ctx context.Context, o *order.Order) error {
			updated = o
			return nil
		},
	}
	return repo, &updated
}

func TestUpdateCancelledOrder(t *testing.T) {
	history := append(placedLedger(), order.PaymentHistoryEntry{Status: order.StatusCancelled})
	repo, updated := updateFixture(history)
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	_, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, gw.calls)
	assert.Nil(t, *updated)
}

func TestUpdateUnauthorizedOrder(t *testing.T) {
	history := []order.PaymentHistoryEntry{{Status: "Declined"}}
	repo, updated := updateFixture(history)
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, &mockGateway{})

	_, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Nil(t, *updated)
}

func TestUpdateFinalizePaidOrder(t *testing.T) {
	repo, updated := updateFixture(paidLedger())
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, &mockGateway{})

	_, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 2}},
		Finalize:   true,
	})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Nil(t, *updated)
}

func TestUpdatePlainEdit(t *testing.T) {
	repo, updated := updateFixture(placedLedger())
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	o, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Empty(t, gw.calls)
	require.Len(t, o.PayHistory, 2)
	last := o.PayHistory[len(o.PayHistory)-1]
	assert.Equal(t, order.StatusEdited, last.Status)
	assert.Equal(t, 30.00, last.Ref.Amount)
	assert.Equal(t, 30.00, o.Subtotal)
	assert.Equal(t, []order.CartLine{{Product: 1, Quantity: 3}}, o.CartDetail)
}

func TestUpdatePaidOrderRefundsDelta(t *testing.T) {
	repo, updated := updateFixture(paidLedger())
	intents := newMockIntentRepo()
	gw := &mockGateway{
		refundPartialFn: func(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error) {
			assert.Equal(t, -10.00, amount)
			assert.Equal(t, "tok-1", paymentToken)
			return approved(amount), nil
		},
	}
	svc := NewService(repo, intents, &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	// Stored cart is qty 2 (20.00); the new cart is 10.00 cheaper.
	o, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Equal(t, []string{"refundPartial"}, gw.calls)
	last := o.PayHistory[len(o.PayHistory)-1]
	assert.Equal(t, order.StatusPartialRefund, last.Status)
	assert.Equal(t, -10.00, last.Ref.Amount)
	require.Len(t, intents.created, 1)
	assert.Equal(t, order.OpRefundPartial, intents.created[0].Op)
}

func TestUpdatePaidOrderChargesIncrease(t *testing.T) {
	repo, updated := updateFixture(paidLedger())
	gw := &mockGateway{
		refundPartialFn: func(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error) {
			assert.Equal(t, 10.00, amount)
			assert.Equal(t, "tok-1", paymentToken)
			return approved(amount), nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	// Stored cart is qty 2 (20.00); the new cart costs 10.00 more, so
	// the signed delta charges the customer rather than refunding.
	o, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Equal(t, []string{"refundPartial"}, gw.calls)
	last := o.PayHistory[len(o.PayHistory)-1]
	assert.Equal(t, order.StatusPartialRefund, last.Status)
	assert.Equal(t, 10.00, last.Ref.Amount)

	// The ledger now accounts for the full 30.00 held at the gateway.
	net, _, _ := refundQuote(o.PayHistory)
	assert.Equal(t, 30.00, net)
}

func TestUpdateFinalizeCapturesHold(t *testing.T) {
	repo, updated := updateFixture(placedLedger())
	gw := &mockGateway{
		finalizeFn: func(ctx context.Context, amount float64, paymentToken, authCode string) (*payment.Result, error) {
			assert.Equal(t, 20.00, amount)
			assert.Equal(t, "tok-1", paymentToken)
			assert.Equal(t, "A1B2", authCode)
			return approved(amount), nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	o, err := svc.Update(context.Background(), owner, "u-1", &UpdateRequest{
		CartDetail: []order.CartLine{{Product: 1, Quantity: 2}},
		Finalize:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Equal(t, []string{"finalize"}, gw.calls)
	last := o.PayHistory[len(o.PayHistory)-1]
	assert.Equal(t, order.StatusCompleted, last.Status)
	assert.True(t, order.Summarize(o.PayHistory).Paid)
}

func TestDeleteCancelledOrderIsBlocked(t *testing.T) {
	history := append(placedLedger(), order.PaymentHistoryEntry{Status: order.StatusCancelled})
	repo, updated := updateFixture(history)
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	outcome, err := svc.Delete(context.Background(), owner, "u-1", false)
	require.NoError(t, err)

	assert.False(t, outcome.Deleted)
	assert.NotEmpty(t, outcome.Reason)
	assert.Empty(t, gw.calls)
	assert.Nil(t, *updated)
}

func TestDeleteUncapturedOrderSkipsRefund(t *testing.T) {
	repo, updated := updateFixture(placedLedger())
	gw := &mockGateway{}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	outcome, err := svc.Delete(context.Background(), owner, "u-1", false)
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Empty(t, gw.calls)
	assert.False(t, outcome.Deleted)
	last := outcome.Order.PayHistory[len(outcome.Order.PayHistory)-1]
	assert.Equal(t, order.StatusCancelled, last.Status)
}

func TestDeletePaidOrderRefundsNet(t *testing.T) {
	repo, updated := updateFixture(paidLedger())
	gw := &mockGateway{
		refundPartialFn: func(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error) {
			assert.Equal(t, -20.00, amount)
			assert.Equal(t, "tok-1", paymentToken)
			return approved(amount), nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	outcome, err := svc.Delete(context.Background(), owner, "u-1", false)
	require.NoError(t, err)
	require.NotNil(t, *updated)

	assert.Equal(t, []string{"refundPartial"}, gw.calls)
	assert.False(t, outcome.Deleted)
	st := order.Summarize(outcome.Order.PayHistory)
	assert.True(t, st.Cancelled)
}

func TestDeleteTotalByAdminRemovesRecord(t *testing.T) {
	removed := ""
	stored := &order.Order{
		UUID:       "u-1",
		UserID:     1,
		CartDetail: []order.CartLine{{Product: 1, Quantity: 2}},
		PayHistory: paidLedger(),
	}
	repo := &mockOrderRepo{
		findOrderByUUIDFn: func(ctx context.Context, uuid string) (*order.Order, error) {
			return stored, nil
		},
		removeOrderFn: func(ctx context.Context, uuid string) error {
			removed = uuid
			return nil
		},
	}
	gw := &mockGateway{
		refundPartialFn: func(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error) {
			return approved(amount), nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, gw)

	outcome, err := svc.Delete(context.Background(), admin, "u-1", true)
	require.NoError(t, err)

	assert.True(t, outcome.Deleted)
	assert.Equal(t, "u-1", removed)
	assert.NotNil(t, outcome.Order)
}

func TestDeleteTotalByOwnerIsSoft(t *testing.T) {
	repo, updated := updateFixture(placedLedger())
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{prices: map[int64]float64{1: 10}}, &mockGateway{})

	outcome, err := svc.Delete(context.Background(), owner, "u-1", true)
	require.NoError(t, err)

	assert.False(t, outcome.Deleted)
	assert.NotNil(t, *updated)
}

func TestGetEnforcesOwnership(t *testing.T) {
	stored := &order.Order{UUID: "u-1", UserID: 2, PayHistory: placedLedger(), Comments: "internal note"}
	repo := &mockOrderRepo{
		findOrderByUUIDFn: func(ctx context.Context, uuid string) (*order.Order, error) {
			return stored, nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{}, &mockGateway{})

	_, err := svc.Get(context.Background(), owner, "u-1")
	assert.ErrorIs(t, err, ErrForbidden)

	o, err := svc.Get(context.Background(), admin, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "internal note", o.Comments)
}

func TestGetStripsAdminComments(t *testing.T) {
	stored := &order.Order{UUID: "u-1", UserID: 1, PayHistory: placedLedger(), Comments: "internal note"}
	repo := &mockOrderRepo{
		findOrderByUUIDFn: func(ctx context.Context, uuid string) (*order.Order, error) {
			return stored, nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{}, &mockGateway{})

	o, err := svc.Get(context.Background(), owner, "u-1")
	require.NoError(t, err)
	assert.Empty(t, o.Comments)
}

func TestGetMissingOrder(t *testing.T) {
	repo := &mockOrderRepo{
		findOrderByUUIDFn: func(ctx context.Context, uuid string) (*order.Order, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{}, &mockGateway{})

	_, err := svc.Get(context.Background(), owner, "nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListScopesByRole(t *testing.T) {
	all := []order.Order{{UUID: "a", Comments: "note"}, {UUID: "b"}}
	repo := &mockOrderRepo{
		listOrdersFn: func(ctx context.Context, limit, skip int) ([]order.Order, error) {
			assert.Equal(t, 50, limit)
			return all, nil
		},
		listOrdersByUserFn: func(ctx context.Context, userID int64, limit, skip int) ([]order.Order, error) {
			assert.Equal(t, int64(1), userID)
			return []order.Order{{UUID: "a", UserID: 1, Comments: "note"}}, nil
		},
	}
	svc := NewService(repo, newMockIntentRepo(), &fakePricer{}, &mockGateway{})

	mine, err := svc.List(context.Background(), owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Empty(t, mine[0].Comments)

	everything, err := svc.List(context.Background(), admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, everything, 2)
	assert.Equal(t, "note", everything[0].Comments)
}

func TestRefundQuoteNetsPartialRefunds(t *testing.T) {
	history := []order.PaymentHistoryEntry{
		{Status: order.StatusPlaced, Ref: order.PaymentRef{PaymentToken: "tok-1", Amount: 21.65, Tax: 1.65}},
		{Status: order.StatusCompleted, Ref: order.PaymentRef{PaymentToken: "tok-1", Amount: 21.65, Tax: 1.65}},
		{Status: order.StatusEdited, Ref: order.PaymentRef{Amount: 16.24, Tax: 1.24}},
		{Status: order.StatusPartialRefund, Ref: order.PaymentRef{PaymentToken: "tok-1", Amount: -5.41, Tax: -0.41}},
	}
	amount, tax, token := refundQuote(history)
	assert.Equal(t, 16.24, amount)
	assert.Equal(t, 1.24, tax)
	assert.Equal(t, "tok-1", token)
}

func TestDerivedStateIsPureFunctionOfLedger(t *testing.T) {
	history := paidLedger()
	history = append(history, order.PaymentHistoryEntry{Status: order.StatusPartialRefund})
	history = append(history, order.PaymentHistoryEntry{Status: order.StatusCancelled})

	first := order.Summarize(history)
	second := order.Summarize(history)
	assert.Equal(t, first, second)
	assert.True(t, first.Authorized)
	assert.True(t, first.Paid)
	assert.True(t, first.Refunded)
	assert.True(t, first.Cancelled)
}
