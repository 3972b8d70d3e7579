package server

import (
	"context"
	"errors"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/database"
	"github.com/Kyz7/juna/internal/metrics"
	"github.com/Kyz7/juna/internal/middleware"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the process-wide handles the HTTP layer is built from. Cache and
// Metrics may be zero: a nil cache becomes cache.Noop and nil metrics record
// nothing. Storage is nil when object storage is not configured.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     *logrus.Logger
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Storage storage.Presigner
}

func New(deps Deps) *fiber.App {
	cfg := deps.Config
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	debug := !cfg.IsProduction()

	app := fiber.New(fiber.Config{
		AppName:   "juna",
		BodyLimit: cfg.Server.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if !errors.As(err, &fe) {
				if kind := apperror.As(err).Kind; kind == apperror.KindInternal || kind == apperror.KindUnavailable {
					deps.Log.WithFields(logrus.Fields{
						"request_id": c.Locals(requestid.ConfigDefault.ContextKey),
						"method":     c.Method(),
						"path":       c.Path(),
					}).WithError(err).Error("request failed")
				}
			}
			return response.Fail(c, err, debug)
		},
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: debug}))
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		Output: deps.Log.Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))
	app.Use(deps.Metrics.Middleware())
	app.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	app.Get("/health", healthHandler(deps))
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	app.Use(middleware.RateLimit(cfg.RateLimit.General, cfg.RateLimit.Window,
		"Too many requests, please try again later"))

	SetupRoutes(app, deps)

	return app
}

func healthHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{"database": "ok", "cache": "ok"}
		if err := deps.Cache.Ping(ctx); err != nil {
			checks["cache"] = "unavailable"
		}
		if err := database.Ping(ctx, deps.DB); err != nil {
			deps.Log.WithError(err).Warn("health check: database unreachable")
			checks["database"] = "unavailable"
			return response.Error(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database unavailable", checks)
		}
		return response.Success(c, checks, "Juna API is running")
	}
}
