// Command devbackend serves an in-memory storefront backend for local runs of the
// storefront client.
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

	"github.com/aminexfrad/F-S-SHOP/internal/backendtest"
	"github.com/aminexfrad/F-S-SHOP/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	HTTPPort        string
	LogLevel        string
	Seed            bool
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Seed:            getEnv("SEED", "true") == "true",
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newRouter(b *backendtest.Backend, l *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(l))
	r.Mount("/", b.Handler())
	return otelhttp.NewHandler(r, "devbackend")
}

func main() {
	cfg := loadConfig()

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Sync()

	b := backendtest.New()
	if cfg.Seed {
		b.Seed()
		l.Info("seeded demo catalog", zap.String("user", "demo"), zap.String("password", "demo"))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      newRouter(b, l),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("dev backend starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
		return
	}

	l.Info("server exited")
}
