package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/weclinic/appointment-notifier/internal/config"
	"github.com/weclinic/appointment-notifier/internal/webhook"
	"github.com/weclinic/appointment-notifier/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.WebhookVerifyToken == "" {
		logger.Warn("WEBHOOK_VERIFY_TOKEN not set, challenge requests will be rejected")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := webhook.NewHandler(cfg.WebhookVerifyToken, logger)
	server := &http.Server{
		Addr:              ":" + cfg.WebhookPort,
		Handler:           handler.Routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("webhook server started", "port", cfg.WebhookPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("webhook server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("webhook server stopped")
}
