package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler   *handler.QuestionHandler
	CommentHandler    *handler.CommentHandler
	SubmissionHandler *handler.SubmissionHandler
	// JWTMiddleware identifies the caller when a token is present. Routes
	// that need a caller add middleware.RequireUser on top.
	JWTMiddleware fiber.Handler
	DB            *gorm.DB
	Redis         *redis.Client
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.Redis))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireUser := middleware.RequireUser()

	questions := api.Group("/questions", jwtMiddleware)
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(questions, requireUser)
	}
	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(questions, requireUser)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions, requireUser,
			middleware.RateLimit("submit", cfg.SubmitRateLimit, time.Minute),
		)
	}
}
