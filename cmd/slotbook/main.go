package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotbook/internal/api"
	"slotbook/internal/booking"
	"slotbook/internal/cache"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/payment"
	"slotbook/shared/audit"
	"slotbook/shared/reminders"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := config.LoadEnv(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(lvl)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	catalog := cache.NewCatalog(db, rdb, cfg.CacheTTL(), &logger)

	err = config.WatchCatalog(ctx, cfg.CatalogPath, cfg.CatalogWatchInterval(),
		func(cat *config.Catalog) {
			if err := db.SyncCatalog(ctx, cat); err != nil {
				logger.Error().Err(err).Msg("catalog sync failed")
				return
			}
			for _, shop := range cat.Shops {
				if err := catalog.InvalidateShop(ctx, shop.ID); err != nil {
					logger.Warn().Err(err).Str("shop_id", shop.ID).Msg("invalidate catalog cache")
				}
			}
		},
		func(err error) {
			logger.Error().Err(err).Str("path", cfg.CatalogPath).Msg("catalog reload failed")
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}

	var refunder booking.Refunder
	if r := payment.NewStripeRefunder(cfg.Payments.StripeSecretKey, cfg.Payments.StripeAPIURL, &logger); r != nil {
		refunder = r
	} else {
		logger.Warn().Msg("payments.stripe_secret_key is empty; deposit refunds are disabled")
	}

	bus := events.NewEventBus()
	if brokers := events.SplitBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		forwarder := events.NewKafkaForwarder(bus, events.NewKafkaWriter(brokers, cfg.Kafka.Topic), 0, &logger)
		go forwarder.Run(ctx)
	}

	svc := booking.NewService(db, catalog, refunder, bus, cfg.StaffPolicy(), &logger)
	exporter := audit.NewExporter(db, &logger)

	backup := database.NewBackupService(db, database.BackupOptions{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		Dir:           cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backup.Start(ctx)

	if cfg.Reminders.Enabled {
		scheduler := reminders.NewScheduler(reminders.SchedulerConfig{
			Hour:          cfg.Reminders.Hour,
			CheckInterval: cfg.ReminderCheckInterval(),
		}, db, bus, &logger)
		go scheduler.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(api.Options{
		Port:          cfg.HTTP.Port,
		APIKey:        cfg.HTTP.APIKey,
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
	}, svc, exporter, &logger)

	logger.Info().Str("policy", string(cfg.StaffPolicy())).Msg("slotbook started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("slotbook stopped")
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
