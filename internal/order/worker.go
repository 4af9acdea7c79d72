package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avelskoog/storefront/internal/logger"
	"github.com/avelskoog/storefront/internal/types/order"
)

// IntentSweeper is the slice of the intent repository the sweep needs.
type IntentSweeper interface {
	ListPendingIntentsBefore(ctx context.Context, cutoff time.Time) ([]order.PaymentIntent, error)
	MarkIntentStale(ctx context.Context, id string) error
}

// sweepWorker drains intents from jobs and marks them stale. A stale
// intent means a gateway call was issued and the process died before
// the outcome was recorded: the sweep surfaces it for reconciliation
// against gateway records, it never re-issues money movement.
func sweepWorker(ctx context.Context, id int, repo IntentSweeper, jobs <-chan order.PaymentIntent) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-jobs:
			if !ok {
				return
			}
			if err := repo.MarkIntentStale(ctx, in.ID); err != nil {
				logger.Log.Error("mark intent stale",
					zap.Int("worker", id),
					zap.String("intent", in.ID),
					zap.Error(err),
				)
				continue
			}
			logger.Log.Warn("payment intent went stale",
				zap.Int("worker", id),
				zap.String("intent", in.ID),
				zap.String("order", in.OrderUUID),
				zap.String("op", in.Op),
				zap.Float64("amount", in.Amount),
			)
		}
	}
}

// SweepLoop periodically collects payment intents that stayed pending
// longer than staleAge and fans them out to workers.
func SweepLoop(ctx context.Context, repo IntentSweeper, workerCount int, interval, staleAge time.Duration) {
	jobs := make(chan order.PaymentIntent, workerCount*3)

	for i := 1; i <= workerCount; i++ {
		go sweepWorker(ctx, i, repo, jobs)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-staleAge)
			intents, err := repo.ListPendingIntentsBefore(ctx, cutoff)
			if err != nil {
				logger.Log.Error("list pending intents", zap.Error(err))
				continue
			}
			for _, in := range intents {
				select {
				case jobs <- in:
				default:
					logger.Log.Warn("sweep queue full, deferring intent",
						zap.String("intent", in.ID),
					)
				}
			}
		}
	}
}
