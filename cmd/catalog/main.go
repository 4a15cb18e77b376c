package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ShopCatalog/internal/auth"
	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/config"
	"ShopCatalog/internal/event"
	"ShopCatalog/internal/format"
	"ShopCatalog/internal/records"
	"ShopCatalog/internal/snapshot"
	"ShopCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, "info")
		log.Fatal("config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("catalog stopped", zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	store := catalog.NewMemStore(
		catalog.WithLogger(log),
		catalog.WithSnapshots(snapshots),
		catalog.WithMetrics(catalog.NewStoreMetrics(reg)),
	)
	if err := store.LoadAll(ctx, records.NewDirLoader(cfg.DataDir, log)); err != nil {
		return err
	}

	locales, err := format.NewRegistry(cfg.DefaultLocale, nil)
	if err != nil {
		return err
	}

	var pub event.Publisher = event.Nop{}
	if cfg.KafkaEnabled() {
		pub = event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		log.Info("publishing events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	reviews := kit.NewIPRateLimiter(cfg.ReviewRatePerSec, cfg.ReviewRateBurst)
	logins := kit.NewIPRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst)
	for _, l := range []*kit.IPRateLimiter{reviews, logins} {
		if err := l.TrustProxies(cfg.TrustedProxies...); err != nil {
			return err
		}
	}

	s := &catalog.Server{
		Store:         store,
		Log:           log,
		Locales:       locales,
		Events:        event.NewNotifier(pub),
		ReviewLimiter: reviews,
		LoginLimiter:  logins,
	}
	if cfg.AdminEnabled() {
		s.Tokens = auth.NewTokenMaker(cfg.JWTSecret)
		s.Admin = auth.NewAdmin(cfg.AdminPasswordHash, s.Tokens)
	}

	h := catalog.NewHandler(s, catalog.HandlerOptions{
		Log:            log,
		Service:        service,
		Registry:       reg,
		ServeMetrics:   cfg.MetricsEnabled,
		RequestTimeout: cfg.RequestTimeout,
		MetricsToken:   cfg.MetricsToken,
	})

	return kit.RunHTTPServer(ctx, cfg.Addr(), h, log, func(context.Context) error {
		return pub.Close()
	})
}

func openSnapshots(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.SnapshotStore, func(), error) {
	switch cfg.SnapshotBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		log.Info("snapshots in redis", zap.String("addr", cfg.RedisAddr))
		return snapshot.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := snapshot.NewPostgresStore(pool)
		if err := pg.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("snapshots in postgres")
		return pg, pool.Close, nil

	default:
		log.Info("snapshots on disk", zap.String("dir", cfg.TempDir))
		return snapshot.NewFileStore(cfg.TempDir, log), func() {}, nil
	}
}
