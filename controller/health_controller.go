package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthController struct {
	service string
	version string
	now     func() time.Time
}

func NewHealthController(serviceName, version string) *HealthController {
	return &HealthController{service: serviceName, version: version, now: time.Now}
}

// Health godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} SuccessResponse{data=HealthStatus}
// @Router /health [get]
func (hc *HealthController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, success(HealthStatus{
		Status:    "healthy",
		Service:   hc.service,
		Version:   hc.version,
		Timestamp: hc.now().UTC().Format(time.RFC3339),
	}))
}
