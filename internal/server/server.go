package server

import (
	"time"

	"backend-socialmedia/internal/activity"
	"backend-socialmedia/internal/auth"
	"backend-socialmedia/internal/config"
	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/metrics"
	"backend-socialmedia/internal/posts"
	"backend-socialmedia/internal/ratelimit"
	"backend-socialmedia/internal/response"
	"backend-socialmedia/internal/session"
	"backend-socialmedia/internal/store"
	"backend-socialmedia/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Store    store.Store
	Redis    *redis.Client
	Activity *activity.Hub
	Auth     *auth.Service

	stopCleanup chan struct{}
}

// NewServer wires the services over st and objects. rdb is optional; without
// it refresh tokens are not tracked and activity events stay in process.
func NewServer(cfg config.Config, st store.Store, objects media.ObjectStorage, rdb *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: response.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logging.L()))
	app.Use(metrics.FiberMiddleware())

	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb)
	}

	s := &Server{
		App:         app,
		Cfg:         cfg,
		Store:       st,
		Redis:       rdb,
		Activity:    activity.NewHub(rdb),
		stopCleanup: make(chan struct{}),
	}
	s.Auth = auth.NewService(auth.Config{
		AccessKey:    cfg.AccessTokenKey,
		RefreshKey:   cfg.RefreshTokenKey,
		CookieSecure: cfg.CookieSecure,
	}, st, sessions)

	registerRoutes(s, objects)
	return s
}

func registerRoutes(s *Server, objects media.ObjectStorage) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	if local, ok := objects.(*media.LocalStorage); ok {
		s.App.Static("/media", local.BasePath())
	}

	limiter := ratelimit.New(s.Cfg.RateLimitRPS, s.Cfg.RateLimitBurst)
	limiter.StartCleanup(time.Minute, s.stopCleanup)

	requireUser := auth.RequireUser(s.Auth)
	uploader := media.NewUploader(objects)

	auth.RegisterRoutes(s.App.Group("/auth", limiter.Handler()), s.Auth)
	posts.RegisterRoutes(s.App.Group("/posts"), posts.NewService(s.Store, uploader, s.Activity), requireUser)
	users.RegisterRoutes(s.App.Group("/users"), users.NewService(s.Store, uploader, s.Activity, s.Auth), requireUser, s.Auth.ClearRefreshCookie)
	activity.RegisterRoutes(s.App.Group("/activity"), s.Activity, s.Auth)
}

// Close stops background work owned by the server. It does not close the
// store or the redis client.
func (s *Server) Close() error {
	close(s.stopCleanup)
	return s.Activity.Close()
}
