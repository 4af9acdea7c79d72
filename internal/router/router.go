package router

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avelskoog/storefront/internal/logger"
	"github.com/avelskoog/storefront/internal/middleware"
	"github.com/avelskoog/storefront/internal/order"
	"github.com/avelskoog/storefront/internal/user"
)

func NewRouter(
	orderH *order.Handler,
	jwtSecret []byte,
	userRepo user.UserRepository,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtSecret, userRepo))

		r.Mount("/api/orders", orderH.Routes())
	})

	return r
}
