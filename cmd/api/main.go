package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridemarket/backend/internal/auth"
	"github.com/ridemarket/backend/internal/config"
	"github.com/ridemarket/backend/internal/handler"
	"github.com/ridemarket/backend/internal/logging"
	"github.com/ridemarket/backend/internal/middleware"
	"github.com/ridemarket/backend/internal/repository"
	"github.com/ridemarket/backend/internal/service"
	"github.com/ridemarket/backend/internal/service/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("ridemarket-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	walletRepo := repository.NewWalletRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	companyRepo := repository.NewCompanyRepository(db)

	walletSvc := service.NewWalletService(walletRepo, txRepo)
	settlementSvc := settlement.NewService(
		walletRepo, txRepo, orderRepo, companyRepo, db,
		settlement.WithPlatformWalletRef(cfg.PlatformWalletRef),
		settlement.WithMaxAttempts(cfg.TransferMaxAttempts),
	)

	walletHandler := handler.NewWalletHandler(walletSvc, settlementSvc)
	companyHandler := handler.NewCompanyHandler(settlementSvc)
	orderHandler := handler.NewOrderHandler(settlementSvc)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(h)
	}
	companyOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(middleware.RequireRole(auth.RoleCompany)(h))
	}

	mux.Handle("GET /api/v1/wallets/{kind}/{ownerID}", authed(walletHandler.GetOrCreate))
	mux.Handle("POST /api/v1/wallets/{kind}/{ownerID}/topup", authed(walletHandler.Topup))
	mux.Handle("POST /api/v1/wallets/{kind}/{ownerID}/withdraw", authed(walletHandler.Withdraw))
	mux.Handle("GET /api/v1/wallets/{walletID}/transactions", authed(walletHandler.ListTransactions))
	mux.Handle("POST /api/v1/companies/{companyID}/pay-salary", companyOnly(companyHandler.PaySalary))
	mux.Handle("POST /api/v1/companies/{companyID}/pay-membership", companyOnly(companyHandler.PayMembership))
	mux.Handle("POST /api/v1/orders/{orderID}/confirm", companyOnly(orderHandler.Confirm))
	mux.Handle("POST /api/v1/orders/{orderID}/complete", companyOnly(orderHandler.Complete))
	mux.Handle("POST /api/v1/orders/{orderID}/cancel", companyOnly(orderHandler.Cancel))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
