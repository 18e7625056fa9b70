package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/auth"
	"github.com/aminexfrad/F-S-SHOP/internal/catalog"
	"github.com/aminexfrad/F-S-SHOP/internal/config"
	"github.com/aminexfrad/F-S-SHOP/internal/credentials"
	"github.com/aminexfrad/F-S-SHOP/internal/graphql"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/outbox"
	"github.com/aminexfrad/F-S-SHOP/internal/profile"
	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"github.com/aminexfrad/F-S-SHOP/internal/session"
	"github.com/aminexfrad/F-S-SHOP/internal/shell"
	"github.com/aminexfrad/F-S-SHOP/internal/shopapi"
	"github.com/aminexfrad/F-S-SHOP/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	if err := start(); err != nil {
		os.Exit(1)
	}
}

func start() error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		return err
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return err
	}
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		l.Info("shutting down storefront...")
		cancel()
	}()

	if cfg.EnableTracing {
		tp := initTracing(l)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer done()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				l.Warn("failed to shut down tracer provider", zap.Error(err))
			}
		}()
	}

	if err := run(ctx, cfg, l, os.Args[1:]); err != nil {
		l.Debug("storefront exited with error", zap.Error(err))
		return err
	}
	return nil
}

func initTracing(l *zap.Logger) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	l.Info("tracing provider initialized (no exporter configured)")
	return tp
}

// run wires the storefront and hands control to the shell. With no arguments, or with
// "shell", it reads commands from stdin; otherwise the arguments are one command.
func run(ctx context.Context, cfg *config.Config, l *zap.Logger, args []string) error {
	var (
		store credentials.Store
		repo  *repository.Repository
	)
	if cfg.Ephemeral {
		mem := credentials.NewMemoryStore()
		defer mem.Close()
		store = mem
	} else {
		var err error
		repo, err = repository.NewRepository(cfg.DBPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.RunMigrations(); err != nil {
			return err
		}
		store = repo.Credentials()
		l.Info("local store ready", zap.String("path", cfg.DBPath))
	}

	client, err := graphql.NewClient(cfg.APIURL, graphql.WithTimeout(cfg.HTTPTimeout), graphql.WithLogger(l))
	if err != nil {
		return err
	}
	authClient, err := client.WithEndpoint(cfg.AuthURL)
	if err != nil {
		return err
	}
	api := shopapi.New(client, authClient)

	nav := shell.Navigator(os.Stdout)
	sess := session.New(store, nav, l)
	snap := sess.Restore(ctx)
	l.Debug("session restored", zap.Stringer("state", snap.State))

	board := notice.NewBoard(cfg.NoticeTTL)
	defer board.Close()

	var cache catalog.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, done := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		done()
		if err != nil {
			l.Warn("redis unavailable, catalog cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			cache = catalog.NewRedisCache(rdb, cfg.CatalogTTL)
		}
	}

	deps := shell.Deps{
		API:         api,
		Session:     sess,
		Nav:         nav,
		Notices:     board,
		Catalog:     catalog.NewService(api, cache, l),
		Detail:      catalog.NewDetail(api, sess, board, l),
		Auth:        auth.NewService(api, sess, nav, board, l),
		Profile:     profile.NewService(api, sess, nav, board, l),
		MediaOrigin: shell.MediaOrigin(cfg.APIURL),
		Policy:      cfg.NotifyPolicy,
		Logger:      l,
	}

	if cfg.NotifyPolicy == config.NotifyOutbox {
		if repo == nil {
			return errors.New("NOTIFY_POLICY=outbox needs the local database, unset STOREFRONT_EPHEMERAL")
		}
		notifier, closeNotifier, err := newNotifier(cfg, api, l)
		if err != nil {
			return err
		}
		defer closeNotifier()

		// the poller stops before its notifier is closed
		var wg sync.WaitGroup
		pollCtx, stopPoller := context.WithCancel(ctx)
		defer func() {
			stopPoller()
			wg.Wait()
		}()

		poller := outbox.NewPoller(repo.Outbox(), notifier, l,
			outbox.WithEventTick(cfg.OutboxTick),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts))
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollCtx)
		}()
		deps.Outbox = repo.Outbox()
		deps.Flusher = poller
	}

	sh := shell.New(deps, os.Stdout)
	defer sh.Close()

	if len(args) == 0 || args[0] == "shell" {
		fmt.Println("storefront shell, type help for commands")
		return sh.Run(ctx, os.Stdin)
	}
	return sh.RunArgs(ctx, args)
}

func newNotifier(cfg *config.Config, api *shopapi.API, l *zap.Logger) (outbox.Notifier, func(), error) {
	switch cfg.NotifySink {
	case config.SinkKafka:
		k := outbox.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		l.Info("order notifications go to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return k, func() {
			if err := k.Close(); err != nil {
				l.Warn("failed to close kafka writer", zap.Error(err))
			}
		}, nil
	case config.SinkGraphQL:
		return outbox.NewGraphQLNotifier(api, l), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown notify sink %q", cfg.NotifySink)
}
