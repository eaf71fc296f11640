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

	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/candidates"
	"github.com/hamed0406/endpointresolver/internal/config"
	"github.com/hamed0406/endpointresolver/internal/httpapi"
	apimw "github.com/hamed0406/endpointresolver/internal/httpapi/middleware"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/notify"
	"github.com/hamed0406/endpointresolver/internal/repo"
	"github.com/hamed0406/endpointresolver/internal/repo/memory"
	"github.com/hamed0406/endpointresolver/internal/repo/postgres"
	"github.com/hamed0406/endpointresolver/internal/request"
	"github.com/hamed0406/endpointresolver/internal/resolver"
	"github.com/hamed0406/endpointresolver/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, alerts, closeStore := openStores(ctx, cfg, logger)
	defer closeStore()

	m := metrics.New()

	src := candidates.NewSource(cfg.CandidateEnv(), candidates.DetectorFunc(candidates.DetectLocalIP), logger)
	src.NgrokAPI = cfg.NgrokAPI

	prober := cfg.Prober()

	opts := cfg.ResolverOptions()
	opts.History = history
	opts.Metrics = m
	res := resolver.New(src, prober, logger, opts)

	client := request.New(res, logger, cfg.RequestTimeout)
	client.MaxRetries = cfg.RetryAttempts
	client.RetryDelay = cfg.RetryBackoff
	client.Metrics = m

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		notifiers = append(notifiers, slack)
	}
	alerter := scheduler.NewAlerter(alerts, notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	}, logger)
	go scheduler.NewWatcher(logger, res, prober, alerter, cfg.WatchInterval).Run(ctx)

	api := httpapi.NewServer(logger, res, src, client, history, m)
	api.AllowedOrigins = cfg.AllowedOrigins
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api_shutdown_failed", zap.Error(err))
		}
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("profile", cfg.Profile),
		zap.Bool("lan_scan", cfg.LANScan),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}

// openStores uses Postgres when DATABASE_URL is set and memory otherwise.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.HistoryStore, repo.AlertStore, func()) {
	if cfg.DatabaseURL == "" {
		store := memory.New(0)
		return store, store, func() {}
	}
	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("db_connect_failed", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		logger.Fatal("db_migrate_failed", zap.Error(err))
	}
	logger.Info("db_connected")
	return store, store, store.Close
}
