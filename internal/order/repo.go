package order

import (
	"context"
	"time"

	"github.com/avelskoog/storefront/internal/types/order"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrderByUUID(ctx context.Context, uuid string) (*order.Order, error)
	UpdateOrder(ctx context.Context, o *order.Order) error
	RemoveOrder(ctx context.Context, uuid string) error
	ListOrders(ctx context.Context, limit, skip int) ([]order.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit, skip int) ([]order.Order, error)
}

// IntentRepository persists payment intents: the record written before
// each gateway call and settled after it, so the sweep can spot calls
// that never came back.
type IntentRepository interface {
	CreateIntent(ctx context.Context, in *order.PaymentIntent) error
	SettleIntent(ctx context.Context, id, state string, settledAt time.Time) error
	ListPendingIntentsBefore(ctx context.Context, cutoff time.Time) ([]order.PaymentIntent, error)
	MarkIntentStale(ctx context.Context, id string) error
}
