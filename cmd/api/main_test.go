package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"backend-socialmedia/internal/config"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/store"
	"backend-socialmedia/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errListen = errors.New("listen failed")

func testConfig() config.Config {
	return config.Config{
		ServerPort:      ":0",
		AccessTokenKey:  "access",
		RefreshTokenKey: "refresh",
		RateLimitRPS:    10,
		RateLimitBurst:  10,
	}
}

func testMedia(t *testing.T) media.ObjectStorage {
	t.Helper()
	objects, err := media.NewLocalStorage(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	return objects
}

func TestRunHandlesSignal(t *testing.T) {
	signals := make(chan os.Signal, 1)

	listenCalled := make(chan struct{}, 1)
	listen := func(_ *fiber.App, _ string) error {
		listenCalled <- struct{}{}
		return nil
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), testConfig(), memory.New(), testMedia(t), nil, signals, listen); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	select {
	case <-listenCalled:
	case <-time.After(time.Second):
		t.Fatalf("expected listen to be called")
	}
}

func TestRunContextCancel(t *testing.T) {
	signals := make(chan os.Signal, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, testConfig(), memory.New(), testMedia(t), nil, signals, func(_ *fiber.App, _ string) error { return nil }); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunListenError(t *testing.T) {
	signals := make(chan os.Signal, 1)

	err := Run(context.Background(), testConfig(), memory.New(), testMedia(t), nil, signals, func(_ *fiber.App, _ string) error {
		return errListen
	})
	if !errors.Is(err, errListen) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunDefaultListen(t *testing.T) {
	signals := make(chan os.Signal, 1)

	oldListen := defaultListen
	defaultListen = func(_ *fiber.App, _ string) error { return nil }
	defer func() { defaultListen = oldListen }()

	go func() {
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), testConfig(), memory.New(), testMedia(t), nil, signals, nil); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunClosesRedis(t *testing.T) {
	signals := make(chan os.Signal, 1)

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})

	listen := func(_ *fiber.App, _ string) error {
		signals <- syscall.SIGINT
		return nil
	}

	if err := Run(context.Background(), testConfig(), memory.New(), testMedia(t), client, signals, listen); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if err := client.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Fatalf("expected closed client, got %v", err)
	}
}

func TestRunShutdownError(t *testing.T) {
	signals := make(chan os.Signal, 1)

	oldShutdown := shutdownFn
	shutdownFn = func(_ *fiber.App, _ context.Context) error { return errListen }
	defer func() { shutdownFn = oldShutdown }()

	go func() {
		signals <- syscall.SIGINT
	}()

	if err := Run(context.Background(), testConfig(), memory.New(), testMedia(t), nil, signals, func(_ *fiber.App, _ string) error { return nil }); err == nil {
		t.Fatalf("expected shutdown error")
	}
}

func TestRealMainRunsWithOpenedStore(t *testing.T) {
	calledNotify := false
	calledRun := false
	closed := false
	deps := mainDeps{
		loadConfig: testConfig,
		openStore: func(context.Context, config.Config) (store.Store, func(), error) {
			return memory.New(), func() { closed = true }, nil
		},
		openMedia: func(context.Context, config.Config) (media.ObjectStorage, error) {
			return testMedia(t), nil
		},
		connectRedis: func(config.Config) *redis.Client { return nil },
		notify: func(ch chan<- os.Signal, _ ...os.Signal) {
			calledNotify = true
		},
		run: func(_ context.Context, _ config.Config, st store.Store, _ media.ObjectStorage, _ *redis.Client, _ <-chan os.Signal, _ ListenFunc) error {
			calledRun = st != nil
			return errListen
		},
	}

	realMain(deps)
	if !calledNotify || !calledRun {
		t.Fatalf("expected notify and run to be called")
	}
	if !closed {
		t.Fatalf("expected store to be released")
	}
}

func TestRealMainStopsOnStoreError(t *testing.T) {
	calledRun := false
	deps := mainDeps{
		loadConfig: testConfig,
		openStore: func(context.Context, config.Config) (store.Store, func(), error) {
			return nil, nil, errListen
		},
		run: func(context.Context, config.Config, store.Store, media.ObjectStorage, *redis.Client, <-chan os.Signal, ListenFunc) error {
			calledRun = true
			return nil
		},
	}

	realMain(deps)
	if calledRun {
		t.Fatalf("expected run to be skipped")
	}
}

func TestOpenStoreMemory(t *testing.T) {
	st, closeFn, err := openStore(context.Background(), config.Config{StoreDriver: "memory"})
	if err != nil || st == nil {
		t.Fatalf("expected memory store, got %v", err)
	}
	closeFn()
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, _, err := openStore(context.Background(), config.Config{StoreDriver: "sqlite"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenMedia(t *testing.T) {
	objects, err := openMedia(context.Background(), config.Config{MediaDriver: "local", MediaLocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("open local: %v", err)
	}
	if _, ok := objects.(*media.LocalStorage); !ok {
		t.Fatalf("expected local storage, got %T", objects)
	}
	if _, err := openMedia(context.Background(), config.Config{MediaDriver: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestDefaultDeps(t *testing.T) {
	deps := defaultDeps()
	if deps.loadConfig == nil || deps.openStore == nil || deps.openMedia == nil || deps.connectRedis == nil || deps.notify == nil || deps.run == nil {
		t.Fatalf("expected default deps to be set")
	}
}

func TestMainUsesOverrides(t *testing.T) {
	oldProvider := mainDepsProvider
	oldRunner := mainRunner
	defer func() {
		mainDepsProvider = oldProvider
		mainRunner = oldRunner
	}()

	called := false
	mainDepsProvider = func() mainDeps { return mainDeps{} }
	mainRunner = func(mainDeps) { called = true }

	main()
	if !called {
		t.Fatalf("expected main runner to be called")
	}
}
