package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"forum-auth/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de autenticación.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	guard *service.AccessGuard,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.POST("/forgotPassword", authH.ForgotPassword)
	auth.PATCH("/resetPassword/:token", authH.ResetPassword)

	protected := auth.Group("", AuthMiddleware(logger, guard))
	protected.PATCH("/updatePassword", authH.UpdatePassword)
	protected.GET("/me", authH.Me)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
// Nunca registra cuerpos ni la ruta completa de reseteo, que lleva el secreto.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
