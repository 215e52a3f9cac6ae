package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"sponsor-backend/internal/config"
	"sponsor-backend/internal/handlers"
	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		var allowCredentials bool = true
		var maxAge int = 3600

		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			origins := strings.Split(envOrigins, ",")
			allowedOrigins = make([]string, 0, len(origins))
			for _, o := range origins {
				trimmed := strings.TrimSpace(o)
				if trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			allowedOrigins = []string{"*"}
		}

		originAllowed := func() bool {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					return true
				}
			}
			return false
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if originAllowed() {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
					"remote_addr":     c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsMiddleware records request latency per route template.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handlers carries every handler the router wires up.
type Handlers struct {
	Paymaster     *handlers.PaymasterHandler
	Records       *handlers.RecordsHandler
	AdminAuth     *handlers.AdminAuthHandler
	AdminRegistry *handlers.AdminRegistryHandler
	AdminBalance  *handlers.AdminBalanceHandler
	WebSocket     *handlers.WebSocketHandler
}

func SetupRouter(h *Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(metricsMiddleware())

	logger := logrus.New()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Admin.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
			"count":       len(allowedIPs),
		}).Info("Admin API IP whitelist configured")
	} else {
		logger.Info("No admin.allowedIPs configured, using localhost-only mode")
	}

	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	// ============ Liveness ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// ============ Health Check ============
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/api/health", handlers.HealthCheckHandler)
	r.GET("/api/health/db", handlers.DatabaseHealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// ============ Paymaster (framework-facing, local callers only) ============
	paymaster := v1.Group("/paymaster", localhostOnly.Restrict())
	{
		paymaster.POST("/validate", h.Paymaster.ValidateHandler)
		paymaster.POST("/settle", h.Paymaster.SettleHandler)
	}

	// ============ Sponsorship Records (public, read-only) ============
	records := v1.Group("/records")
	{
		records.GET("/op/:opHash", h.Records.GetRecordHandler)
		records.GET("/recipient/:address", h.Records.ListByRecipientHandler)
		records.GET("/recent", h.Records.ListRecentHandler)
		records.GET("/stats", h.Records.StatsHandler)
	}

	// ============ Supported Factories (public, read-only) ============
	v1.GET("/factories", h.AdminRegistry.ListFactoriesHandler)

	// ============ WebSocket Push ============
	v1.GET("/ws", h.WebSocket.HandleWebSocket)
	v1.GET("/ws/status", h.WebSocket.ConnectionStatusHandler)

	// ============ Admin ============
	admin := v1.Group("/admin")
	{
		admin.POST("/auth/login", localhostOnly.Restrict(), h.AdminAuth.AdminLoginHandler)
		admin.POST("/auth/totp/generate", localhostOnly.Restrict(), h.AdminAuth.GenerateTOTPSecretHandler)

		authed := admin.Group("", adminAuth.RequireAdminAuth())
		{
			authed.GET("/registry/factories", h.AdminRegistry.ListFactoriesHandler)
			authed.POST("/registry/factories", h.AdminRegistry.AddFactoryHandler)
			authed.DELETE("/registry/factories/:address", h.AdminRegistry.RemoveFactoryHandler)

			authed.GET("/balance", h.AdminBalance.GetBalanceHandler)
			authed.POST("/balance/deposit", h.AdminBalance.DepositHandler)
			authed.POST("/balance/withdraw", h.AdminBalance.WithdrawHandler)
			authed.GET("/balance/movements", h.AdminBalance.MovementsHandler)
		}
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api/v1 endpoints for available APIs",
		})
	})

	return r
}
