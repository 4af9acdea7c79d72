package order

import "time"

// Entry statuses recorded in the payment history ledger. Anything else
// found in the status slot is a raw gateway status (e.g. "Declined")
// recorded verbatim when an authorization was not approved.
const (
	StatusPlaced        = "Placed"
	StatusEdited        = "Edited"
	StatusCompleted     = "Completed"
	StatusPartialRefund = "Partial Refund"
	StatusCancelled     = "Cancelled"
)

// Payment options accepted on order creation.
const (
	PayOptionCard    = "Card"
	PayOptionInStore = "In-Store"
)

type CartLine struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

// PaymentRef carries the gateway-side details of a ledger entry. For
// in-store orders only PayOption is set.
type PaymentRef struct {
	Created      time.Time `json:"created,omitempty"`
	PaymentToken string    `json:"paymentToken,omitempty"`
	GatewayID    string    `json:"gatewayId,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Tax          float64   `json:"tax,omitempty"`
	AuthCode     string    `json:"authCode,omitempty"`
	PayOption    string    `json:"payOption,omitempty"`
}

// PaymentHistoryEntry is one element of the append-only ledger. Entries
// are never mutated or removed once appended; order state is derived by
// scanning the sequence.
type PaymentHistoryEntry struct {
	Status    string     `json:"status"`
	Ref       PaymentRef `json:"ref"`
	Timestamp time.Time  `json:"ts"`
}

type Order struct {
	ID           int64                 `db:"id" json:"-"`
	UUID         string                `db:"uuid" json:"uuid"`
	UserID       int64                 `db:"user_id" json:"-"`
	CartDetail   []CartLine            `db:"cart_detail" json:"cartDetail"`
	PayHistory   []PaymentHistoryEntry `db:"pay_history" json:"payHistory"`
	Subtotal     float64               `db:"subtotal" json:"subtotal"`
	Tax          float64               `db:"tax" json:"tax"`
	UserComments string                `db:"user_comments" json:"userComments,omitempty"`
	Comments     string                `db:"comments" json:"comments,omitempty"`
	CreatedAt    time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updatedAt"`
}

// StatusSummary is the lifecycle state derived from the ledger. It is
// recomputed on every load and never persisted.
type StatusSummary struct {
	Authorized bool
	Paid       bool
	Refunded   bool
	Cancelled  bool
}

// Summarize scans the ledger and reports the aggregate lifecycle state.
func Summarize(history []PaymentHistoryEntry) StatusSummary {
	var s StatusSummary
	for _, e := range history {
		switch e.Status {
		case StatusPlaced:
			s.Authorized = true
		case StatusCompleted:
			s.Paid = true
		case StatusPartialRefund:
			s.Refunded = true
		case StatusCancelled:
			s.Cancelled = true
		}
	}
	return s
}

// Intent states for the two-phase gateway call record.
const (
	IntentPending = "pending"
	IntentSettled = "settled"
	IntentFailed  = "failed"
	IntentStale   = "stale"
)

// Gateway operations an intent can describe.
const (
	OpAuthorize     = "authorize"
	OpFinalize      = "finalize"
	OpRefundPartial = "refund_partial"
	OpRefundFull    = "refund_full"
)

// PaymentIntent records that a gateway call was about to be issued, so
// that a crash between the call and the ledger append leaves a trace
// the reconciliation sweep can surface.
type PaymentIntent struct {
	ID        string     `db:"id" json:"id"`
	OrderUUID string     `db:"order_uuid" json:"orderUuid"`
	Op        string     `db:"op" json:"op"`
	Amount    float64    `db:"amount" json:"amount"`
	State     string     `db:"state" json:"state"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	SettledAt *time.Time `db:"settled_at" json:"settledAt,omitempty"`
}
