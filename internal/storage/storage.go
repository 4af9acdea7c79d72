package storage

import (
	"context"

	"github.com/avelskoog/storefront/internal/order"
	"github.com/avelskoog/storefront/internal/pricing"
	"github.com/avelskoog/storefront/internal/user"
)

// Storage bundles every repository the backend needs.
type Storage interface {
	order.OrderRepository
	order.IntentRepository
	user.UserRepository
	pricing.Catalog

	// connection management
	Ping(ctx context.Context) error
	Close() error
}
