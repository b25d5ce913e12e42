package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-socialmedia/internal/config"
	"backend-socialmedia/internal/db"
	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/server"
	"backend-socialmedia/internal/store"
	"backend-socialmedia/internal/store/memory"
	"backend-socialmedia/internal/store/mongostore"
	"backend-socialmedia/internal/store/pgstore"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig   func() config.Config
	openStore    func(context.Context, config.Config) (store.Store, func(), error)
	openMedia    func(context.Context, config.Config) (media.ObjectStorage, error)
	connectRedis func(config.Config) *redis.Client
	notify       func(chan<- os.Signal, ...os.Signal)
	run          func(context.Context, config.Config, store.Store, media.ObjectStorage, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:   config.Load,
		openStore:    openStore,
		openMedia:    openMedia,
		connectRedis: db.ConnectRedis,
		notify:       signal.Notify,
		run:          Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "socialmedia-api"})
	l := logging.L()
	ctx := context.Background()

	st, closeStore, err := deps.openStore(ctx, cfg)
	if err != nil {
		l.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
		return
	}
	defer closeStore()

	objects, err := deps.openMedia(ctx, cfg)
	if err != nil {
		l.Error().Err(err).Str("driver", cfg.MediaDriver).Msg("media storage setup failed")
		return
	}

	rdb := deps.connectRedis(cfg)
	if rdb == nil {
		l.Warn().Msg("redis not configured, refresh tokens are not revocable and activity stays in process")
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	l.Info().Str("addr", cfg.ServerPort).Str("store", cfg.StoreDriver).Str("media", cfg.MediaDriver).Msg("starting server")
	if err := deps.run(ctx, cfg, st, objects, rdb, signals, nil); err != nil {
		l.Error().Err(err).Msg("server exited with error")
	}
}

// openStore connects the configured document store and prepares its schema.
// The returned func releases the connection.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := db.ConnectPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		st := pgstore.New(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return st, pool.Close, nil
	case "mongo", "":
		client, database, err := db.ConnectMongo(cfg)
		if err != nil {
			return nil, nil, err
		}
		st := mongostore.New(database)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return st, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openMedia(ctx context.Context, cfg config.Config) (media.ObjectStorage, error) {
	switch cfg.MediaDriver {
	case "s3":
		s3, err := media.NewS3Storage(ctx, media.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicURL:       cfg.MediaPublicURL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	case "local", "":
		local, err := media.NewLocalStorage(cfg.MediaLocalPath, cfg.MediaPublicURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.MediaDriver)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, st store.Store, objects media.ObjectStorage, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, st, objects, rdb)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	if err := srv.Close(); err != nil {
		l := logging.L()
		l.Warn().Err(err).Msg("activity hub close")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
