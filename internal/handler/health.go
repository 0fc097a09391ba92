package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/escuela/internal/middleware"
	"github.com/deppfellow/escuela/internal/server"
)

// HealthHandler serves /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// dependencyCheck pings one dependency. required checks turn the whole
// status unhealthy when they fail.
type dependencyCheck struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

func (h *HealthHandler) checks() []dependencyCheck {
	var checks []dependencyCheck
	obs := h.server.Config.Observability

	if h.server.DB != nil && obs.HasCheck("database") {
		checks = append(checks, dependencyCheck{
			name:     "database",
			required: true,
			ping:     h.server.DB.Pool.Ping,
		})
	}

	// Redis only backs the login throttle and photo cleanup, the API works
	// without it.
	if h.server.Redis != nil && obs.HasCheck("redis") {
		checks = append(checks, dependencyCheck{
			name: "redis",
			ping: func(ctx context.Context) error { return h.server.Redis.Ping(ctx).Err() },
		})
	}

	return checks
}

func (h *HealthHandler) recordFailure(checkType string, elapsed time.Duration, err error) {
	app := h.server.LoggerService.GetApplication()
	if app == nil {
		return
	}
	app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
		"check_type":       checkType,
		"operation":        "health_check",
		"error_type":       checkType + "_unhealthy",
		"response_time_ms": elapsed.Milliseconds(),
		"error_message":    err.Error(),
	})
}

// CheckHealth answers 200 when every required dependency responds and 503
// otherwise, with per-dependency detail in "checks".
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	timeout := 5 * time.Second
	if obs := h.server.Config.Observability; obs != nil && obs.HealthChecks.Timeout > 0 {
		timeout = obs.HealthChecks.Timeout
	}

	checks := make(map[string]interface{})
	isHealthy := true

	for _, check := range h.checks() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		checkStart := time.Now()
		err := check.ping(ctx)
		elapsed := time.Since(checkStart)
		cancel()

		if err != nil {
			checks[check.name] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}
			if check.required {
				isHealthy = false
			}

			logger.Error().Err(err).Str("check", check.name).Dur("response_time", elapsed).Msg("health check failed")
			h.recordFailure(check.name, elapsed, err)
			continue
		}

		checks[check.name] = map[string]interface{}{
			"status":        "healthy",
			"response_time": elapsed.String(),
		}
	}

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}
