package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/reading-platform/internal/platform/logging"
	"github.com/example/reading-platform/internal/platform/run"
	"github.com/example/reading-platform/internal/platform/signing"
	"github.com/example/reading-platform/services/image-proxy/internal/config"
	"github.com/example/reading-platform/services/image-proxy/internal/proxy"
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

	s := signing.New(cfg.SigningSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/images", proxy.Handler(s, nil, log))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http serve", zap.Error(err))
		run.Exit(1)
	}
}
