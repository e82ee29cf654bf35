package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"AyurAhar_V1/internal/database"
	"AyurAhar_V1/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/time/rate"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = s.ipExtractor()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:       300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	// Reference data and local analysis
	api.GET("/nutrition/search", s.searchNutritionHandler)
	api.GET("/nutrition/range", s.nutrientRangeHandler)
	api.GET("/nutrition/:code", s.getNutritionHandler)
	api.POST("/dosha/analyze", s.analyzeDoshaHandler)
	api.GET("/weather", s.weatherHandler)

	// Routes that reach paid backends are rate limited per client
	generation := api.Group("")
	if s.rateLimit > 0 {
		generation.Use(s.rateLimiter())
	}
	generation.POST("/diet-plans", s.generateDietPlanHandler)
	generation.POST("/alternatives", s.suggestAlternativesHandler)
	generation.POST("/meal-timings", s.mealTimingsHandler)
	generation.POST("/speech/tts", s.textToSpeechHandler)
	generation.POST("/speech/stt", s.speechToTextHandler)

	return e
}

func (s *Server) rateLimiter() echo.MiddlewareFunc {
	burst := int(s.rateLimit) * 2
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.rateLimit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			utility.Logger(c).Warn().Str("client", identifier).Msg("Rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests, please try again later"})
		},
	})
}

// ipExtractor honours X-Forwarded-For only when the request arrived through one
// of the configured proxies; otherwise the peer address identifies the client.
func (s *Server) ipExtractor() echo.IPExtractor {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range s.trustedProxies {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (s *Server) healthHandler(c echo.Context) error {
	ctx := c.Request().Context()

	status := "up"
	storeStats := map[string]string{"status": "unknown"}
	if h, ok := s.store.(database.HealthReporter); ok {
		storeStats = h.Health(ctx)
		if storeStats["status"] != "up" {
			status = "degraded"
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          status,
		"nutrition_store": storeStats,
		"host":            hostStats(ctx),
	})
}

// hostStats is a point-in-time view of the machine running the service.
func hostStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
	}
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats["ram_usage_percent"] = v.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats["cpu_load_percent"] = pct[0]
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		stats["uptime_seconds"] = up
	}
	return stats
}

// LoggerMiddleware assigns a request id and a request-scoped logger, available
// from the echo context and from the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
