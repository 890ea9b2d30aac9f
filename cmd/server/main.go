package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/agent"
	"github.com/databot/databot-backend/internal/config"
	"github.com/databot/databot-backend/internal/database"
	"github.com/databot/databot-backend/internal/database/repositories"
	"github.com/databot/databot-backend/internal/export"
	"github.com/databot/databot-backend/internal/intent"
	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/schema"
	"github.com/databot/databot-backend/internal/session"
	"github.com/databot/databot-backend/internal/slack"
	"github.com/databot/databot-backend/internal/sqlgen"
	"github.com/databot/databot-backend/internal/warehouse"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logg := logrus.New()
	logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logg.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logg.WithError(err).Fatal("Failed to run migrations")
	}

	// Load schema documentation
	docs, err := schema.NewLoader(cfg.DocsDir, logg).LoadAll()
	if err != nil {
		logg.WithError(err).Fatal("Failed to load schema documentation")
	}

	// Text generation client
	generator, err := llm.NewClient(cfg.OpenAI, cfg.LLM.RequestTimeout())
	if err != nil {
		logg.WithError(err).Fatal("Failed to create text-generation client")
	}

	// Core collaborators
	executor := warehouse.NewExecutor(db.DB, cfg.Warehouse.QueryTimeout(), logg)
	queries := sqlgen.NewGenerator(generator, docs, logg)
	summarizer := agent.NewSummarizer(generator, logg)
	classifier := intent.NewClassifier(generator, cfg.Classifier.RetryOnTimeout, logg)
	exporter := export.NewExcelExporter(logg)
	interactions := repositories.NewInteractionRepository(db.DB)

	// Session store with background expiry sweep
	store := session.NewStore(cfg.Session.Timeout(), logg)
	stopSweeper := store.StartSweeper(cfg.Session.SweepInterval())
	defer stopSweeper()

	orchestrator := agent.NewOrchestrator(
		store,
		classifier,
		agent.NewInterpreter(generator, logg),
		agent.NewRefiner(queries, executor, summarizer, logg),
		agent.NewAnalyst(queries, executor, summarizer, logg),
		agent.NewInformational(generator, logg),
		exporter,
		interactions,
		cfg.Session.HistoryWindow,
		logg,
	)

	// Slack transport
	slackClient := slack.NewClient(cfg.Slack, logg)
	slackHandler := slack.NewHandler(orchestrator, slackClient, cfg.Slack.SigningSecret, logg)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Databot Backend",
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	slackHandler.Register(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		return c.JSON(fiber.Map{
			"status":        "healthy",
			"database":      executor.Ping(ctx) == nil,
			"schema_tables": len(docs.Tables),
			"sessions":      store.Len(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logg.WithField("addr", addr).Info("Databot backend starting")
	if err := app.Listen(addr); err != nil {
		logg.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
