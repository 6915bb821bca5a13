package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/reading-platform/internal/platform/auth"
	"github.com/example/reading-platform/internal/platform/config"
	"github.com/example/reading-platform/internal/platform/db"
	"github.com/example/reading-platform/internal/platform/events"
	"github.com/example/reading-platform/internal/platform/httpserver"
	"github.com/example/reading-platform/internal/platform/logging"
	"github.com/example/reading-platform/internal/platform/natsconn"
	"github.com/example/reading-platform/internal/platform/run"
	"github.com/example/reading-platform/internal/platform/signing"
	"github.com/example/reading-platform/services/catalog/internal/handlers"
	"github.com/example/reading-platform/services/catalog/internal/store"
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

	cs, closePool := initStore(log)
	if closePool != nil {
		defer closePool()
	}

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

	books := &handlers.Books{Store: cs, Publisher: pub, Log: log}
	if secret := strings.TrimSpace(os.Getenv("IMAGE_SIGNING_SECRET")); secret != "" {
		books.Signer = signing.New(secret)
		books.ImageProxyURL = strings.TrimSpace(os.Getenv("IMAGE_PROXY_URL"))
		if books.ImageProxyURL == "" {
			log.Error("IMAGE_PROXY_URL is required when IMAGE_SIGNING_SECRET is set")
			run.Exit(1)
		}
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	books.Routes(r, verifier)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the CatalogStore backend. Without Postgres the service
// runs on a seeded in-memory catalog, which is enough for local reading
// sessions against real fixtures.
func initStore(log *zap.Logger) (store.CatalogStore, func()) {
	isProd := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using seeded in-memory catalog (development only)")
		return store.NewSeededCatalogStore(), nil
	}

	pool, err := db.Open(context.Background())
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to seeded in-memory catalog", zap.Error(err))
		return store.NewSeededCatalogStore(), nil
	}

	log.Info("catalog store: postgres")
	return store.NewPostgresCatalogStore(pool), pool.Close
}
