package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shippinglabel/internal/infra/chrome"
)

// ChromeStats reports the tab pool state. A nil pool reports a disabled pool.
func ChromeStats(pool *chrome.Pool, timeoutSecs int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pool == nil {
			return c.JSON(chrome.Stats{TimeoutSecs: timeoutSecs})
		}
		return c.JSON(pool.Stats(timeoutSecs))
	}
}
