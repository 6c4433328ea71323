package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weclinic/appointment-notifier/internal/config"
	"github.com/weclinic/appointment-notifier/internal/ledger"
	"github.com/weclinic/appointment-notifier/internal/messaging"
	"github.com/weclinic/appointment-notifier/internal/notice"
	"github.com/weclinic/appointment-notifier/internal/observability/metrics"
	"github.com/weclinic/appointment-notifier/internal/poller"
	"github.com/weclinic/appointment-notifier/internal/schedule"
	"github.com/weclinic/appointment-notifier/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.APIBase == "" || cfg.APIUser == "" || cfg.APIPass == "" || cfg.ClinicCID == "" {
		logger.Error("scheduling API credentials are required (API_BASE, API_USER, API_PASS, CLINIC_CID)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	channel, err := messaging.NewChannel(cfg.SenderProvider, cfg.SenderAPIURL, cfg.SenderAuth, cfg.SendTimeout)
	if err != nil {
		logger.Error("messaging channel setup failed", "error", err)
		os.Exit(1)
	}

	store := ledger.NewStore(pool)
	deliveries := ledger.NewDeliveryLog(pool)
	source := schedule.NewClient(cfg.APIBase, cfg.APIUser, cfg.APIPass, cfg.ClinicCID, cfg.FetchTimeout)
	reconciler := notice.NewReconciler(store)
	matcher := notice.NewReminderMatcher(notice.DefaultReminderRules(), store)
	dispatcher := messaging.NewDispatcher(channel, logger).
		WithMaxAttempts(cfg.SendMaxAttempts).
		WithRetryDelay(cfg.SendRetryDelay)
	m := metrics.NewNotifierMetrics(prometheus.DefaultRegisterer)

	p := poller.New(source, reconciler, matcher, dispatcher, deliveries, m, logger, poller.Options{
		Interval:          cfg.PollInterval,
		DaysAhead:         cfg.DaysAhead,
		ReminderDaysAhead: cfg.ReminderDaysAhead,
		MaxPages:          cfg.MaxPages,
		BlockedIDs:        cfg.BlockedProfessionalIDs,
	})

	logger.Info("notifier started",
		"provider", cfg.SenderProvider,
		"interval", cfg.PollInterval.String(),
		"days_ahead", cfg.DaysAhead,
	)
	p.Run(ctx)
	logger.Info("notifier stopped")
}
