package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"backend-socialmedia/internal/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socialmedia"

var (
	// Registry holds the application collectors. It is separate from the
	// default registry so tests and embedders see only these series.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and logical status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	postsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "posts",
		Name:      "created_total",
		Help:      "Posts created.",
	})

	likesToggled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "posts",
		Name:      "likes_toggled_total",
		Help:      "Like toggles by resulting action.",
	}, []string{"action"})

	followsToggled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "users",
		Name:      "follows_toggled_total",
		Help:      "Follow toggles by resulting action.",
	}, []string{"action"})

	profilesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "users",
		Name:      "profiles_deleted_total",
		Help:      "Profiles deleted with their cascade.",
	})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		postsCreated,
		likesToggled,
		followsToggled,
		profilesDeleted,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// FiberMiddleware records request counts and latency. The status label is
// the logical status carried in the envelope, since the transport status
// is always 200.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Route().Path
		method := strings.ToUpper(c.Method())
		httpRequests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		if code, ok := c.Locals(response.LocalStatusCode).(int); ok {
			return code
		}
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func RecordPostCreated() {
	postsCreated.Inc()
}

func RecordLikeToggled(liked bool) {
	likesToggled.WithLabelValues(action(liked, "like", "unlike")).Inc()
}

func RecordFollowToggled(followed bool) {
	followsToggled.WithLabelValues(action(followed, "follow", "unfollow")).Inc()
}

func RecordProfileDeleted() {
	profilesDeleted.Inc()
}

func action(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
