// Package http adapts the resilience core to HTTP handlers. The core itself
// owns no transport; consumers mount these handlers on their own apps.
package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LerianStudio/lib-resilience/resilience/coordinator"
	"github.com/LerianStudio/lib-resilience/resilience/health"
)

// Ping responds with a plain "healthy" body. Use it when detailed dependency
// health is not needed.
func Ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

// HealthWithResilience creates a Fiber handler exposing the aggregated
// system health snapshot plus per-dependency circuit breaker stats.
//
// Returns HTTP 200 while the system is healthy or degraded, and HTTP 503
// when it is unhealthy. The coordinator is optional; without one the
// response carries the snapshot only.
//
// Example:
//
//	f.Get("/health", resilienceHttp.HealthWithResilience(monitor, coord))
func HealthWithResilience(monitor *health.Monitor, coord *coordinator.Coordinator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snapshot := monitor.PerformSystemHealthCheck(c.UserContext())

		httpStatus := fiber.StatusOK
		if snapshot.Overall == health.StatusUnhealthy {
			httpStatus = fiber.StatusServiceUnavailable
		}

		body := fiber.Map{
			"status":     snapshot.Overall,
			"components": snapshot.Components,
			"uptime":     snapshot.Uptime.String(),
			"timestamp":  snapshot.Timestamp,
		}

		if snapshot.Version != "" {
			body["version"] = snapshot.Version
		}

		if snapshot.Environment != "" {
			body["environment"] = snapshot.Environment
		}

		if coord != nil {
			body["dependencies"] = coord.GetOverallHealthStatus()
		}

		return c.Status(httpStatus).JSON(body)
	}
}

// PerformanceTracking creates a Fiber middleware that feeds every served
// request into the monitor's performance counters. Responses with a 5xx
// status (or a handler error) count as errors.
//
// Example:
//
//	f.Use(resilienceHttp.PerformanceTracking(monitor))
func PerformanceTracking(monitor *health.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()

		err := c.Next()

		isError := err != nil || c.Response().StatusCode() >= fiber.StatusInternalServerError
		monitor.TrackRequest(time.Since(started), isError)

		return err
	}
}

// PerformanceMetrics creates a Fiber handler exposing the monitor's
// full-history request counters.
func PerformanceMetrics(monitor *health.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(monitor.GetPerformanceMetrics())
	}
}
