package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/reading-platform/internal/platform/auth"
	"github.com/example/reading-platform/internal/platform/config"
	"github.com/example/reading-platform/internal/platform/db"
	"github.com/example/reading-platform/internal/platform/events"
	"github.com/example/reading-platform/internal/platform/httpserver"
	"github.com/example/reading-platform/internal/platform/logging"
	"github.com/example/reading-platform/internal/platform/natsconn"
	"github.com/example/reading-platform/internal/platform/run"
	"github.com/example/reading-platform/services/progress/internal/handlers"
	"github.com/example/reading-platform/services/progress/internal/store"
	"github.com/example/reading-platform/services/progress/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		log.Error("JWT_SECRET is required")
		run.Exit(1)
	}
	verifier := auth.JWTVerifier{Secret: []byte(jwtSecret)}

	ps, pool, closePool := initStore(log)
	if closePool != nil {
		defer closePool()
	}

	// NATS is optional: without it the service runs, events are dropped
	// and the history worker stays off.
	var pub *events.Publisher
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats unavailable, events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			log.Warn("jetstream unavailable, events disabled", zap.Error(err))
		} else {
			pub = events.New(js, log)
		}
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	handlers.Routes(r, ps, pub, verifier)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if nc != nil && pool != nil {
			worker.StartHistoryConsumer(ctx, nc, pool, log)
		}
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the ProgressStore backend. In production
// (APP_ENV=production) a working Postgres connection is required and the
// process terminates otherwise.
func initStore(log *zap.Logger) (store.ProgressStore, *pgxpool.Pool, func()) {
	isProd := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory progress store (development only)")
		return store.NewInMemoryProgressStore(), nil, nil
	}

	pool, err := db.Open(context.Background())
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		return store.NewInMemoryProgressStore(), nil, nil
	}

	log.Info("progress store: postgres")
	return store.NewPostgresProgressStore(pool), pool, pool.Close
}
