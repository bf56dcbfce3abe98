package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	authhandler "orgstructure/internal/auth/handler"
	authservice "orgstructure/internal/auth/service"
	"orgstructure/internal/auth/token"
	"orgstructure/internal/blob"
	"orgstructure/internal/blob/fs"
	"orgstructure/internal/blob/s3"
	"orgstructure/internal/blob/sweeper"
	"orgstructure/internal/crud"
	"orgstructure/internal/hierarchy"
	"orgstructure/internal/hierarchy/cache"
	hierarchyhandler "orgstructure/internal/hierarchy/handler"
	"orgstructure/internal/platform/config"
	"orgstructure/internal/platform/httpserver"
	"orgstructure/internal/platform/kafka"
	"orgstructure/internal/platform/logger"
	"orgstructure/internal/platform/metrics"
	"orgstructure/internal/platform/redis"
	"orgstructure/internal/ratelimit"
	relationshandler "orgstructure/internal/relations/handler"
	relationsservice "orgstructure/internal/relations/service"
	staffhandler "orgstructure/internal/staff/handler"
	staffservice "orgstructure/internal/staff/service"
	"orgstructure/internal/storage"
	"orgstructure/internal/storage/memory"
	"orgstructure/internal/storage/postgres"
	structurehandler "orgstructure/internal/structure/handler"
	structureservice "orgstructure/internal/structure/service"
	httptransport "orgstructure/internal/transport/http"
	"orgstructure/pkg/platform/changes"
)

// main wires configuration, storage, blobs, caches and the HTTP surface,
// then runs until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	blobs, err := openBlobs(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	instrumented := blob.Instrument(blobs, log, m)

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		log.Info("redis connected, org-tree cache and shared rate limits enabled")
	}

	builder := hierarchy.NewBuilder(store,
		hierarchy.WithLogger(log),
		hierarchy.WithMetrics(m),
		hierarchy.WithMaxNodes(cfg.Tree.MaxNodes),
	)
	trees := cache.New(builder, rawRedis(rdb),
		cache.WithLogger(log),
		cache.WithMetrics(m),
		cache.WithTTL(cfg.Tree.CacheTTL),
	)

	var feed changes.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, kafka.WithLogger(log), kafka.WithMetrics(m))
		if err != nil {
			return err
		}
		if err := pub.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("change feed topic not ensured", "topic", cfg.Kafka.Topic, "error", err)
		}
		defer func() { _ = pub.Close(context.Background()) }()
		feed = pub
		log.Info("change feed enabled", "topic", cfg.Kafka.Topic)
	}

	runner := crud.NewRunner(store,
		crud.WithLogger(log),
		crud.WithMetrics(m),
		crud.WithPublisher(changes.Fanout(trees, feed)),
	)

	auth := authservice.New(runner, token.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL), authservice.WithMetrics(m))
	staff := staffservice.New(runner, instrumented)
	loginLimit, err := ratelimit.New(cfg.Auth.LoginRateLimit, rawRedis(rdb), log)
	if err != nil {
		return fmt.Errorf("login rate limit: %w", err)
	}

	authH := authhandler.New(auth, log)
	router := httptransport.NewRouter(httptransport.Config{
		APIPrefix:          cfg.Server.APIPrefix,
		RequestTimeout:     cfg.Server.RequestTimeout,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, httptransport.Deps{
		Logger:     log,
		Metrics:    m,
		Gatherer:   reg,
		Health:     store,
		Auth:       auth,
		LoginLimit: loginLimit.Login(),
		Public:     authH,
		Handlers: []httptransport.Registrar{
			structurehandler.New(structureservice.New(runner), log),
			relationshandler.New(relationsservice.New(runner), log),
			staffhandler.New(staff, log, staffhandler.WithMaxUploadBytes(cfg.Server.MaxUploadBytes)),
			hierarchyhandler.New(trees, log),
			authH,
		},
	})

	sweep := sweeper.New(instrumented, staff,
		sweeper.WithLogger(log),
		sweeper.WithMetrics(m),
		sweeper.WithGrace(cfg.Blob.SweepGrace),
	)
	if err := sweep.Start(cfg.Blob.SweepSchedule); err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting orgstructure", "addr", cfg.Server.Addr, "storage", cfg.Database.Driver, "blob", cfg.Blob.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		sweep.Stop(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	if cfg.Database.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL,
		postgres.WithLogger(log),
		postgres.WithTxTimeout(cfg.Database.TxTimeout),
		postgres.WithPool(postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		n, err := postgres.MigrateUp(ctx, db.SQL())
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", "count", n)
	}
	return db, nil
}

func openBlobs(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	if cfg.Driver == config.BlobS3 {
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return fs.New(cfg.Root)
}

func rawRedis(c *redis.Client) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
