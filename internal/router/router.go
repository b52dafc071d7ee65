package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/giftnotify/push-api/internal/handler"
	"github.com/giftnotify/push-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	subscriptionH Handler
	authH         Handler
	pushH         Handler
	h             *handler.Handler
	metrics       *routerMetrics
	config        RouterConfig
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

type RouterConfig struct {
	LoginRateLimit rate.Limit
	LoginRateBurst int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	subscriptionH Handler,
	authH Handler,
	pushH Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		subscriptionH: subscriptionH,
		authH:         authH,
		pushH:         pushH,
		h:             h,
		metrics:       initRouterMetrics(config.MetricsPrefix),
		config:        config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(config.RequestTimeout),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	r.setupHealthCheck()

	// Public routes: browser subscription flow
	r.subscriptionH.RegisterRoutes(r.engine.Group(""))

	// Admin login, rate limited against brute force
	admin := r.engine.Group("/admin")
	admin.Use(middleware.RateLimit(r.config.LoginRateLimit, r.config.LoginRateBurst))
	r.authH.RegisterRoutes(admin)

	// Protected dashboard routes
	protected := r.engine.Group("/admin")
	protected.Use(r.auth.Authenticate())
	r.pushH.RegisterRoutes(protected)
}

func (r *Router) setupHealthCheck() {
	r.engine.GET("/healthz", r.h.HealthCheck)
	health := r.engine.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
	r.engine.GET("/metrics", r.h.MetricsHandler)
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
