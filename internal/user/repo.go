package user

import (
	"context"

	"github.com/avelskoog/storefront/internal/types/user"
)

type UserRepository interface {
	FindByLogin(ctx context.Context, login string) (*user.User, error)
}
