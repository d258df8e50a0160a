package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cajaflow/cajaflow/internal/cashflow"
	"github.com/cajaflow/cajaflow/internal/classifier"
	"github.com/cajaflow/cajaflow/internal/config"
	"github.com/cajaflow/cajaflow/internal/ledger"
	"github.com/cajaflow/cajaflow/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares. The browser client is served from a different origin.
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		pgStore := ledger.NewPostgresStore(d.DB)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			return err
		}
		store = pgStore
	} else {
		store = ledger.NewMemory()
	}
	if err := store.EnsureInitialized(context.Background()); err != nil {
		return err
	}

	cashflowSvc := cashflow.NewService(store)
	cashflowHandler := cashflow.NewHandler(cashflowSvc)

	// The classifier is process-wide state built once here and injected into
	// the handler. Without a sidecar URL, dev mode answers with a stub.
	var model classifier.Classifier
	if d.Cfg.ClassifierURL != "" {
		model = classifier.NewHTTP(d.Cfg.ClassifierURL)
	} else {
		model = classifier.Static{Prediction: classifier.Prediction{Label: "500", Confidence: 1}}
		d.Logger.Warn("CLASSIFIER_URL not set, /api/predict serves a static prediction")
	}
	predictHandler := classifier.NewHandler(model)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterPredictionRoutes(api, predictHandler, middleware.ScanRateLimit(d.Cache, d.Cfg.ScanRatePerMin))
	RegisterCashflowRoutes(api.Group("/cashflow"), cashflowHandler)

	return nil
}
