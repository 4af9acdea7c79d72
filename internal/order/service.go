package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelskoog/storefront/internal/logger"
	"github.com/avelskoog/storefront/internal/payment"
	"github.com/avelskoog/storefront/internal/pricing"
	"github.com/avelskoog/storefront/internal/types/order"
	"github.com/avelskoog/storefront/internal/types/user"
)

var (
	ErrOrderNotFound    = errors.New("no such order exists")
	ErrBadCart          = errors.New("cart could not be priced")
	ErrMissingCard      = errors.New("card payment requires payment info")
	ErrUnknownPayOption = errors.New("unknown payment option")
	ErrCancelled        = errors.New("order was previously cancelled")
	ErrNotAuthorized    = errors.New("order has not been authorized")
	ErrAlreadyPaid      = errors.New("cannot finalize paid transaction")
	ErrRefundDeclined   = errors.New("gateway declined the refund")
	ErrForbidden        = errors.New("caller may not act on this order")
)

// Gateway is the slice of the payment client the lifecycle needs.
type Gateway interface {
	Authorize(ctx context.Context, amount, tax float64, card payment.CardDetails) (*payment.Result, error)
	Finalize(ctx context.Context, amount float64, paymentToken, authCode string) (*payment.Result, error)
	RefundPartial(ctx context.Context, amount, tax float64, paymentToken string) (*payment.Result, error)
	RefundFull(ctx context.Context, gatewayID string) (int, error)
}

type Pricer interface {
	Price(ctx context.Context, lines []order.CartLine) (*pricing.Quote, error)
}

type Service struct {
	repo    OrderRepository
	intents IntentRepository
	pricer  Pricer
	gateway Gateway
	locks   *keyedLocks
}

func NewService(repo OrderRepository, intents IntentRepository, pricer Pricer, gateway Gateway) *Service {
	return &Service{
		repo:    repo,
		intents: intents,
		pricer:  pricer,
		gateway: gateway,
		locks:   newKeyedLocks(),
	}
}

type CreateRequest struct {
	CartDetail   []order.CartLine     `json:"cartDetail"`
	PayOption    string               `json:"payOption"`
	PaymentInfo  *payment.CardDetails `json:"paymentInfo,omitempty"`
	UserComments string               `json:"userComments"`
	Comments     string               `json:"comments"`
}

type UpdateRequest struct {
	CartDetail   []order.CartLine `json:"cartDetail"`
	Finalize     bool             `json:"finalize"`
	UserComments string           `json:"userComments"`
	Comments     string           `json:"comments"`
}

// DeleteOutcome reports what a delete request actually did. A blocked
// cancel is not an error: Deleted is false and Reason says why.
type DeleteOutcome struct {
	Deleted bool
	Reason  string
	Order   *order.Order
}

// Create prices the submitted cart, authorizes the charge for card
// orders and persists the new order with its first ledger entry.
func (s *Service) Create(ctx context.Context, p user.Principal, req *CreateRequest) (*order.Order, error) {
	quote, err := s.pricer.Price(ctx, req.CartDetail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCart, err)
	}

	now := time.Now().UTC()
	o := &order.Order{
		UUID:         uuid.NewString(),
		UserID:       p.ID,
		CartDetail:   req.CartDetail,
		Subtotal:     quote.Subtotal,
		Tax:          quote.Tax,
		UserComments: req.UserComments,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.IsAdmin {
		o.Comments = req.Comments
	}

	switch req.PayOption {
	case order.PayOptionCard:
		if req.PaymentInfo == nil {
			return nil, ErrMissingCard
		}
		res, err := s.callGateway(ctx, o.UUID, order.OpAuthorize, quote.Total, func(ctx context.Context) (*payment.Result, error) {
			return s.gateway.Authorize(ctx, quote.Total, quote.Tax, *req.PaymentInfo)
		})
		if err != nil {
			return nil, err
		}
		status := order.StatusPlaced
		if !res.Approved() {
			status = res.Status
		}
		o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
			Status: status,
			Ref: order.PaymentRef{
				Created:      res.Created,
				PaymentToken: res.PaymentToken,
				GatewayID:    res.GatewayID,
				Amount:       res.Amount,
				Tax:          quote.Tax,
				AuthCode:     res.AuthCode,
				PayOption:    order.PayOptionCard,
			},
			Timestamp: now,
		})
	case order.PayOptionInStore:
		o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
			Status: order.StatusPlaced,
			Ref: order.PaymentRef{
				Amount:    quote.Total,
				Tax:       quote.Tax,
				PayOption: order.PayOptionInStore,
			},
			Timestamp: now,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayOption, req.PayOption)
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	logger.Log.Info("order created",
		zap.String("uuid", o.UUID),
		zap.String("payOption", req.PayOption),
		zap.Float64("total", quote.Total),
	)
	return o, nil
}

// Update edits the cart of an existing order and, depending on the
// ledger state and the finalize flag, captures the hold or refunds the
// price delta.
func (s *Service) Update(ctx context.Context, p user.Principal, orderUUID string, req *UpdateRequest) (*order.Order, error) {
	unlock := s.locks.lock(orderUUID)
	defer unlock()

	o, err := s.load(ctx, p, orderUUID)
	if err != nil {
		return nil, err
	}

	status := order.Summarize(o.PayHistory)
	logger.Log.Debug("order update",
		zap.String("uuid", orderUUID),
		zap.Bool("finalize", req.Finalize),
		zap.Bool("authorized", status.Authorized),
		zap.Bool("paid", status.Paid),
		zap.Bool("cancelled", status.Cancelled),
	)
	if status.Cancelled {
		return nil, ErrCancelled
	}
	if !status.Authorized {
		return nil, ErrNotAuthorized
	}
	if status.Paid && req.Finalize {
		return nil, ErrAlreadyPaid
	}

	newQuote, err := s.pricer.Price(ctx, req.CartDetail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCart, err)
	}
	oldQuote, err := s.pricer.Price(ctx, o.CartDetail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCart, err)
	}
	diff := *newQuote != *oldQuote
	change := pricing.Round2(newQuote.Total - oldQuote.Total)
	taxChange := pricing.Round2(newQuote.Tax - oldQuote.Tax)

	token, authCode := lastGatewayRef(o.PayHistory)
	now := time.Now().UTC()

	switch {
	case !status.Paid && !req.Finalize:
		// Plain edit of an authorized hold; no money moves.
		o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
			Status: order.StatusEdited,
			Ref: order.PaymentRef{
				Amount: newQuote.Total,
				Tax:    newQuote.Tax,
			},
			Timestamp: now,
		})
	case status.Paid && diff:
		// change is signed: negative refunds the customer, positive
		// charges the increase.
		res, err := s.callGateway(ctx, orderUUID, order.OpRefundPartial, change, func(ctx context.Context) (*payment.Result, error) {
			return s.gateway.RefundPartial(ctx, change, taxChange, token)
		})
		if err != nil {
			return nil, err
		}
		if res.Approved() {
			o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
				Status: order.StatusPartialRefund,
				Ref: order.PaymentRef{
					Created:      res.Created,
					PaymentToken: res.PaymentToken,
					GatewayID:    res.GatewayID,
					Amount:       change,
					Tax:          taxChange,
					AuthCode:     res.AuthCode,
				},
				Timestamp: now,
			})
		} else {
			logger.Log.Warn("partial refund not approved",
				zap.String("uuid", orderUUID),
				zap.String("status", res.Status),
			)
		}
	case !status.Paid && req.Finalize:
		res, err := s.callGateway(ctx, orderUUID, order.OpFinalize, newQuote.Total, func(ctx context.Context) (*payment.Result, error) {
			return s.gateway.Finalize(ctx, newQuote.Total, token, authCode)
		})
		if err != nil {
			return nil, err
		}
		if res.Approved() {
			o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
				Status: order.StatusCompleted,
				Ref: order.PaymentRef{
					Created:      res.Created,
					PaymentToken: res.PaymentToken,
					GatewayID:    res.GatewayID,
					Amount:       res.Amount,
					Tax:          newQuote.Tax,
					AuthCode:     res.AuthCode,
				},
				Timestamp: now,
			})
		} else {
			logger.Log.Warn("finalize not approved",
				zap.String("uuid", orderUUID),
				zap.String("status", res.Status),
			)
		}
	}

	if diff {
		o.CartDetail = req.CartDetail
		o.Subtotal = newQuote.Subtotal
		o.Tax = newQuote.Tax
	}
	o.UserComments = req.UserComments
	if p.IsAdmin {
		o.Comments = req.Comments
	}
	o.UpdatedAt = now

	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete cancels an order, refunding whatever the ledger says has
// moved. Administrators may additionally request true removal of the
// record with total.
func (s *Service) Delete(ctx context.Context, p user.Principal, orderUUID string, total bool) (*DeleteOutcome, error) {
	unlock := s.locks.lock(orderUUID)
	defer unlock()

	o, err := s.load(ctx, p, orderUUID)
	if err != nil {
		return nil, err
	}

	status := order.Summarize(o.PayHistory)
	if status.Cancelled {
		return &DeleteOutcome{Deleted: false, Reason: ErrCancelled.Error(), Order: o}, nil
	}

	netAmount, netTax, token := refundQuote(o.PayHistory)
	now := time.Now().UTC()

	if status.Paid {
		// The gateway takes a signed delta, so returning the captured
		// net means sending its negation.
		res, err := s.callGateway(ctx, orderUUID, order.OpRefundPartial, -netAmount, func(ctx context.Context) (*payment.Result, error) {
			return s.gateway.RefundPartial(ctx, -netAmount, -netTax, token)
		})
		if err != nil {
			return nil, err
		}
		if !res.Approved() {
			return nil, fmt.Errorf("%w: %s", ErrRefundDeclined, res.Status)
		}
		o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
			Status: order.StatusCancelled,
			Ref: order.PaymentRef{
				Created:      res.Created,
				PaymentToken: res.PaymentToken,
				GatewayID:    res.GatewayID,
				Amount:       res.Amount,
				Tax:          res.Tax,
				AuthCode:     res.AuthCode,
			},
			Timestamp: now,
		})
	} else {
		// Hold was never captured (or never approved): nothing to
		// reverse at the gateway.
		o.PayHistory = append(o.PayHistory, order.PaymentHistoryEntry{
			Status:    order.StatusCancelled,
			Timestamp: now,
		})
	}
	o.UpdatedAt = now

	if total && p.IsAdmin {
		if err := s.repo.RemoveOrder(ctx, orderUUID); err != nil {
			return nil, err
		}
		logger.Log.Info("order removed", zap.String("uuid", orderUUID))
		return &DeleteOutcome{Deleted: true, Order: o}, nil
	}

	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	logger.Log.Info("order cancelled",
		zap.String("uuid", orderUUID),
		zap.Float64("refunded", netAmount),
		zap.Bool("gatewayRefund", status.Paid),
	)
	return &DeleteOutcome{Deleted: false, Order: o}, nil
}

func (s *Service) Get(ctx context.Context, p user.Principal, orderUUID string) (*order.Order, error) {
	o, err := s.load(ctx, p, orderUUID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		o.Comments = ""
	}
	return o, nil
}

// List returns orders newest first. Administrators see every order,
// everyone else only their own.
func (s *Service) List(ctx context.Context, p user.Principal, limit, skip int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		orders []order.Order
		err    error
	)
	if p.IsAdmin {
		orders, err = s.repo.ListOrders(ctx, limit, skip)
	} else {
		orders, err = s.repo.ListOrdersByUser(ctx, p.ID, limit, skip)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		for i := range orders {
			orders[i].Comments = ""
		}
	}
	return orders, nil
}

func (s *Service) load(ctx context.Context, p user.Principal, orderUUID string) (*order.Order, error) {
	o, err := s.repo.FindOrderByUUID(ctx, orderUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !p.IsAdmin && o.UserID != p.ID {
		return nil, ErrForbidden
	}
	return o, nil
}

// callGateway wraps one gateway call in a payment intent: pending
// before the call, settled or failed after. An intent left pending is
// what the reconciliation sweep looks for.
func (s *Service) callGateway(ctx context.Context, orderUUID, op string, amount float64, call func(context.Context) (*payment.Result, error)) (*payment.Result, error) {
	intent := &order.PaymentIntent{
		ID:        uuid.NewString(),
		OrderUUID: orderUUID,
		Op:        op,
		Amount:    amount,
		State:     order.IntentPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.intents.CreateIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("record payment intent: %w", err)
	}

	res, err := call(ctx)

	state := order.IntentSettled
	if err != nil {
		state = order.IntentFailed
	}
	if serr := s.intents.SettleIntent(ctx, intent.ID, state, time.Now().UTC()); serr != nil {
		logger.Log.Error("settle payment intent",
			zap.String("intent", intent.ID),
			zap.Error(serr),
		)
	}
	return res, err
}

// lastGatewayRef walks the ledger backwards for the most recent payment
// token and auth code.
func lastGatewayRef(history []order.PaymentHistoryEntry) (token, authCode string) {
	for i := len(history) - 1; i >= 0; i-- {
		if token == "" && history[i].Ref.PaymentToken != "" {
			token = history[i].Ref.PaymentToken
		}
		if authCode == "" && history[i].Ref.AuthCode != "" {
			authCode = history[i].Ref.AuthCode
		}
		if token != "" && authCode != "" {
			break
		}
	}
	return token, authCode
}

// refundQuote derives how much money is currently held or captured: the
// most recent meaningful amount and tax, each net of the signed partial
// refund deltas recorded after it. Edited entries only restate a quote
// and carry no gateway movement, so they are skipped.
func refundQuote(history []order.PaymentHistoryEntry) (amount, tax float64, token string) {
	var base, baseTax, refunds, taxRefunds float64
	for _, e := range history {
		if e.Ref.PaymentToken != "" {
			token = e.Ref.PaymentToken
		}
		switch e.Status {
		case order.StatusPartialRefund:
			refunds += e.Ref.Amount
			taxRefunds += e.Ref.Tax
		case order.StatusEdited:
		default:
			if e.Ref.Amount != 0 {
				base = e.Ref.Amount
				baseTax = e.Ref.Tax
			}
		}
	}
	return pricing.Round2(base + refunds), pricing.Round2(baseTax + taxRefunds), token
}
