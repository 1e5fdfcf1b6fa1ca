package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/xid"

	"shippinglabel/internal/config"
	"shippinglabel/internal/domain"
	"shippinglabel/internal/infra/logging"
)

// APIKeyLocal is the fiber.Ctx locals key holding an authenticated token.
const APIKeyLocal = "api_key"

// TokenValidator checks API keys against the loaded token set.
type TokenValidator interface {
	Ready() bool
	Validate(token string) bool
}

// TokenStore validates API keys and reports their rate limits.
type TokenStore interface {
	TokenValidator
	TokenRater
}

// Deps carries what Register needs beyond configuration.
type Deps struct {
	// Tokens enables API-key auth and per-token limits when non-nil.
	Tokens TokenStore
	// Store backs the limiters. Nil means in-memory storage.
	Store fiber.Storage
}

// Register attaches the global middleware chain to app.
func Register(app *fiber.App, cfg config.Config, deps Deps) {
	store := deps.Store
	if store == nil {
		store = memoryStorage.New()
	}

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(RequestLogger())

	rl := RateLimitConfig{
		RateInterval:           cfg.RateLimiter.Interval,
		EnableTokenRateLimiter: cfg.RateLimiter.EnableTokenLimiter,
		EnableUserLimiter:      cfg.RateLimiter.UserLimit > 0,
		UserLimit:              cfg.RateLimiter.UserLimit,
	}

	if cfg.Auth.Enabled && deps.Tokens != nil {
		app.Use(APIKeyAuth(deps.Tokens))
		app.Use(TokenRateLimit(rl, deps.Tokens, store, NewLimiterCache()))
	}
	app.Use(UserRateLimit(rl, store))
}

// RequestID returns the id assigned by the requestid middleware.
func RequestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

// RequestLogger logs every request with its status and duration.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		logging.Info("Incoming request",
			"method", c.Method(),
			"path", c.OriginalURL(),
			"ip", c.IP(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
			"request_id", RequestID(c),
		)

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		logging.Info("Request completed",
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestID(c),
		)
		return err
	}
}

// APIKeyAuth validates X-API-Key. Requests without a key pass through and are
// subject to the per-client limiter instead.
func APIKeyAuth(tokens TokenValidator) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !tokens.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !tokens.Validate(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions ||
				c.Get("X-API-Key") == "" ||
				strings.HasPrefix(c.Path(), "/health")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may pass a nil error.
			if err == nil {
				err = domain.ErrInvalidAPIKey
			}
			status := fiber.StatusUnauthorized
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			logging.Warn("API key rejected", "path", c.Path(), "status", status, "error", err)
			return c.Status(status).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": err.Error(),
			})
		},
	})
}
