package handler

import (
	"cloth/auth"
	"cloth/config"
	"cloth/controller"
	_ "cloth/docs" // Import for swagger docs
	"cloth/pkg/logger"
	"cloth/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Controllers groups the HTTP controllers mounted by RegisterRoutes.
type Controllers struct {
	Flag   *controller.FlagController
	Health *controller.HealthController
}

// RegisterRoutes mounts middleware and routes. verifier may be nil when
// cfg.Auth.Enabled is false.
func RegisterRoutes(e *echo.Echo, ctrl Controllers, verifier *auth.Verifier, cfg *config.Config, log *logger.Logger) {
	// Add middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			if values.Error != nil {
				log.Errorw("Request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency", values.Latency,
					"error", values.Error,
				)
			} else {
				log.Infow("Request completed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency", values.Latency,
				)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metricsMiddleware())

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Swagger documentation (if enabled)
	if cfg.Swagger.Enabled {
		log.Infow("Swagger documentation enabled", "path", "/swagger/*")
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := e.Group("/api")

	// Health check endpoint
	api.GET("/health", ctrl.Health.Health)

	// Flag routes
	flags := api.Group("/flag")
	if cfg.Auth.Enabled {
		log.Infow("Token verification enabled for flag routes", "header", cfg.Auth.Header, "keysURL", cfg.Auth.KeysURL)
		flags.Use(authMiddleware(verifier, log))
	} else {
		log.Warnw("Token verification disabled; flag routes rely on the edge proxy for authentication")
	}

	flags.GET("", ctrl.Flag.ListFlags)
	flags.POST("", ctrl.Flag.CreateFlag)
	flags.GET("/key/:key", ctrl.Flag.GetFlagByKey)
	flags.GET("/:id", ctrl.Flag.GetFlag)
	flags.PUT("/:id", ctrl.Flag.UpdateFlag)
	flags.DELETE("/:id", ctrl.Flag.DeleteFlag)
	flags.GET("/:id/audit", ctrl.Flag.GetFlagAudit)
}
