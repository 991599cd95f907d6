package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"github.com/example/trip-tracking/internal/config"
	"github.com/example/trip-tracking/internal/directory"
	"github.com/example/trip-tracking/internal/eta"
	"github.com/example/trip-tracking/internal/feed"
	"github.com/example/trip-tracking/internal/fleet"
	"github.com/example/trip-tracking/internal/geo"
	httpapi "github.com/example/trip-tracking/internal/http"
	"github.com/example/trip-tracking/internal/ingest"
	"github.com/example/trip-tracking/internal/logging"
	"github.com/example/trip-tracking/internal/payments"
	"github.com/example/trip-tracking/internal/rides"
	"github.com/example/trip-tracking/internal/storage"
	"github.com/example/trip-tracking/internal/tracker"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("server", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// storage
	var store storage.Store
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			runMigrations(cfg.PGDSN, logger)
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		logger.Warn("no PG_DSN set, using in-memory store")
		store = storage.NewMemoryStore()
	}

	// feeds and driver index need redis
	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR is required for the live feeds")
		os.Exit(1)
	}
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	feeds := feed.NewRedisFeed(rc, cfg.OrderChannel, cfg.DriverChannel, logger)
	geoIdx := geo.NewRedisIndex(rc, cfg.RedisGeoKey)

	// eta: OSRM when configured, naive haversine otherwise, cached either way
	var estimator eta.Estimator = eta.Naive{SpeedMps: cfg.DefaultSpeedMps}
	if cfg.OSRMEndpoint != "" {
		estimator = eta.NewOSRMClient(cfg.OSRMEndpoint, estimator)
	}
	estimator = eta.Cached{Inner: estimator, Cache: eta.NewCache(15 * time.Second)}

	var gw payments.Gateway
	if os.Getenv("STRIPE_API_KEY") != "" {
		gw = payments.NewStripeGateway()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
	}

	srv := httpapi.NewServer(logger)
	srv.Store = store
	srv.Rides = rides.NewService(store, feeds, gw, logger)
	srv.Tracker = &tracker.Tracker{
		Orders:    feeds,
		Locations: feeds.Locations(),
		ETA:       estimator,
		Directory: directory.New(store, geoIdx, logger),
		Logger:    logger,
		Cfg: tracker.Config{
			ArrivalAlertTTL:   cfg.ArrivalAlertTTL,
			RatingPromptDelay: cfg.RatingPromptDelay,
		},
	}
	srv.Fleet = fleet.NewCatalog(store)
	srv.Kafka = kp
	srv.Pub = feeds
	srv.GeoIdx = geoIdx

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("trip-tracking listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_schema.sql"))
	if err != nil {
		logger.Error("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec error", "error", err)
	}
}
