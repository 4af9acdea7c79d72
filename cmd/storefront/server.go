package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelskoog/storefront/internal/logger"
	"github.com/avelskoog/storefront/internal/order"
	"github.com/avelskoog/storefront/internal/payment"
	"github.com/avelskoog/storefront/internal/pricing"
	"github.com/avelskoog/storefront/internal/router"
	storage "github.com/avelskoog/storefront/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	httpClient := &http.Client{
		Timeout: cfg.GatewayTimeout,
	}
	gateway := payment.NewClient(
		httpClient,
		cfg.GatewayAddress,
		cfg.GatewayMerchantID,
		cfg.GatewayKey,
		cfg.GatewaySecret,
	)

	pricer := pricing.NewEngine(store)

	orderSvc := order.NewService(store, store, pricer, gateway)
	orderHandler := order.NewHandler(orderSvc)

	r := router.NewRouter(orderHandler, []byte(cfg.JWTSecret), store)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		order.SweepLoop(
			ctx,
			store,
			cfg.SweepWorkers,
			cfg.SweepInterval,
			cfg.StaleIntentAge,
		)
	}()

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
