package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"shippinglabel/internal/config"
	"shippinglabel/internal/http/handlers"
	"shippinglabel/internal/http/middleware"
	"shippinglabel/internal/infra/chrome"
	"shippinglabel/internal/infra/logging"
	"shippinglabel/internal/tokens"
)

// Deps are the collaborators the HTTP layer is built from. Redis, Tokens,
// Audit, Pool and LimiterStore are optional.
type Deps struct {
	Config       config.Config
	Labels       handlers.LabelService
	Redis        *redis.Client
	Tokens       *tokens.Cache
	Audit        handlers.AuditRecorder
	Pool         *chrome.Pool
	LimiterStore fiber.Storage
}

// New creates the fiber app with middleware and routes mounted.
func New(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Server.BodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	mw := middleware.Deps{Store: deps.LimiterStore}
	if deps.Tokens != nil {
		mw.Tokens = deps.Tokens
	}
	middleware.Register(app, cfg, mw)

	registerRoutes(app, deps)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error":   msg,
		"message": err.Error(),
	})
}

func registerRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config

	var tokensReady func() bool
	if cfg.Auth.Enabled && deps.Tokens != nil {
		tokensReady = deps.Tokens.Ready
	}
	health := handlers.NewHealthHandler(deps.Redis, tokensReady)
	app.Get("/health", health.Health)
	app.Get("/health/liveness", health.Liveness)
	app.Get("/health/readiness", health.Readiness)

	labels := handlers.NewLabelHandler(deps.Labels, deps.Audit)
	app.Post("/get-label", labels.GenerateLabel)
	app.Post("/get-label/preview", labels.Preview)

	v1 := app.Group("/v1")
	v1.Get("/chrome/stats", handlers.ChromeStats(deps.Pool, cfg.PDF.TimeoutSecs))

	if cfg.Assets.ServeStatic && cfg.Assets.Path != "" {
		app.Static("/assets", cfg.Assets.Path)
	}
}
