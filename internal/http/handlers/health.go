package handlers

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"shippinglabel/internal/infra/logging"
)

const readinessTimeout = 2 * time.Second

// Version is reported by /health. Overridden at build time with -ldflags.
var Version = "1.0.0"

// HealthHandler serves the /health endpoints.
type HealthHandler struct {
	started time.Time
	redis   *redis.Client
	// tokensReady is nil when API-key auth is disabled.
	tokensReady func() bool
}

// NewHealthHandler builds the handler. redisClient and tokensReady may be nil.
func NewHealthHandler(redisClient *redis.Client, tokensReady func() bool) *HealthHandler {
	return &HealthHandler{
		started:     time.Now(),
		redis:       redisClient,
		tokensReady: tokensReady,
	}
}

func megabytes(b uint64) string {
	return fmt.Sprintf("%d MB", b/1024/1024)
}

// Health reports process status and resource usage.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return c.JSON(fiber.Map{
		"status":    "UP",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"version":   Version,
		"uptime":    time.Since(h.started).Seconds(),
		"memory": fiber.Map{
			"sys":       megabytes(m.Sys),
			"heapTotal": megabytes(m.HeapSys),
			"heapUsed":  megabytes(m.HeapAlloc),
		},
		"system": fiber.Map{
			"cpus":       runtime.NumCPU(),
			"goroutines": runtime.NumGoroutine(),
			"goVersion":  runtime.Version(),
		},
	})
}

// Liveness always reports UP while the process serves requests.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "UP"})
}

// Readiness reports READY once the configured dependencies answer.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			logging.Warn("Readiness check failed", "dependency", "redis", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "NOT_READY",
				"reason": "redis unreachable",
			})
		}
	}
	if h.tokensReady != nil && !h.tokensReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "NOT_READY",
			"reason": "token store not loaded",
		})
	}
	return c.JSON(fiber.Map{"status": "READY"})
}
