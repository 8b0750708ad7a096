package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/career-agent-api/internal/config"
	"github.com/noah-isme/career-agent-api/internal/database"
	"github.com/noah-isme/career-agent-api/internal/handler"
	"github.com/noah-isme/career-agent-api/internal/middleware"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
	"github.com/noah-isme/career-agent-api/internal/router"
	"github.com/noah-isme/career-agent-api/internal/service"
	"github.com/noah-isme/career-agent-api/pkg/ai"
	"github.com/noah-isme/career-agent-api/pkg/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.RoadmapReference{}, &models.RoadmapVersion{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	gateway, err := ai.NewClient(ai.Config{
		APIKey:    cfg.AIAPIKey,
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai gateway: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	roadmapRepo := repository.NewRoadmapRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	roadmapScraper := scraper.New(cfg.ScraperBaseURL, cfg.ScraperTimeout, logger)
	referenceService := service.NewReferenceService(referenceRepo, roadmapScraper, redisClient, cfg.ReferenceTTL, cfg.ReferenceMaxAge, logger)
	events := service.NewEventPublisher(natsConn, logger)

	roadmapService := service.NewRoadmapService(roadmapRepo, referenceService, gateway, events, validate, logger)
	progressService := service.NewProgressService(roadmapRepo, logger)
	insightService := service.NewInsightService(roadmapRepo, gateway, logger)

	roadmapHandler := handler.NewRoadmapHandler(roadmapService, logger)
	progressHandler := handler.NewProgressHandler(progressService, logger)
	insightHandler := handler.NewInsightHandler(insightService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoadmapHandler:  roadmapHandler,
		ProgressHandler: progressHandler,
		InsightHandler:  insightHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
