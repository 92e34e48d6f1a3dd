package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee-machine/internal/app"
	"coffee-machine/internal/config"
	"coffee-machine/internal/observability"
	"coffee-machine/internal/server"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize Dependencies
	ctx, stop := context.WithCancel(context.Background())
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}
	a.StartBackground(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.New(a.Coordinator, a.Sessions, a.Tokens, cfg.SessionTTL,
			server.WithLogger(logger.Named("http")),
			server.WithSaleRecorders(a.SaleRecorders()...),
			server.WithSalesReporter(a.Metrics),
		).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 3. Start Server with Graceful Shutdown
	go func() {
		logger.Info("coffee machine listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	if err := a.Close(ctxShutdown); err != nil {
		logger.Error("failed to release resources", zap.Error(err))
	}

	logger.Info("server exiting")
}
