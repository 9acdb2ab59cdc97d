package handler

import (
	"errors"
	"net/http"
	"time"

	"cloth/auth"
	"cloth/controller"
	"cloth/pkg/logger"
	"cloth/pkg/metrics"

	"github.com/labstack/echo/v4"
)

// metricsMiddleware records a request counter and latency per route template.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.ObserveHTTPRequest(c.Request().Method, path, status, time.Since(start))
			return err
		}
	}
}

// authMiddleware rejects requests without a verifiable token and stores the
// verified claims in the request context.
func authMiddleware(verifier *auth.Verifier, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var claims *auth.Claims
			if verifier != nil {
				claims = verifier.VerifyRequest(req)
			}
			if claims == nil {
				log.Warnw("Rejected unauthenticated request", "method", req.Method, "uri", req.RequestURI)
				return controller.WriteError(c, controller.ErrUnauthenticated)
			}

			c.SetRequest(req.WithContext(auth.ContextWithClaims(req.Context(), claims)))
			return next(c)
		}
	}
}
