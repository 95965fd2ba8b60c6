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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/database"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/queue"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/internal/router"
	"github.com/noah-isme/codepractice-api/internal/service"
	dockerexec "github.com/noah-isme/codepractice-api/pkg/docker"
	"github.com/noah-isme/codepractice-api/pkg/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	runner, closeRunner, err := buildRunner(cfg.Grading, logger)
	if err != nil {
		log.Fatalf("failed to create grading runner: %v", err)
	}
	defer closeRunner()

	scheduler := buildScheduler(cfg.Grading, redisClient, natsConn, logger)

	var events queue.EventPublisher = queue.NopPublisher{}
	if natsConn != nil {
		events = queue.NewNATSEventPublisher(natsConn, cfg.Grading.NATSSubject, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	questionCache := service.NewQuestionCache(redisClient, cfg.QuestionCacheTTL, logger)
	statsService := service.NewStatsService(questionRepo, questionCache, logger)
	gradingService := service.NewGradingService(submissionRepo, questionRepo, runner, statsService, events, logger, service.GradingConfig{
		SubmissionTimeout: cfg.Grading.SubmissionTimeout,
	})
	questionService := service.NewQuestionService(questionRepo, commentRepo, questionCache, validate, logger)
	commentService := service.NewCommentService(commentRepo, questionRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, scheduler, questionCache, validate, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	if err := scheduler.Start(workerCtx, gradingService.Grade); err != nil {
		log.Fatalf("failed to start grading workers: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigin: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(questionService, logger),
		CommentHandler:    handler.NewCommentHandler(commentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		JWTMiddleware:     middleware.JWTOptional(cfg.JWTSecret),
		DB:                db,
		Redis:             redisClient,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().
		Str("addr", cfg.HTTPAddress()).
		Str("runner", cfg.Grading.Runner).
		Str("queue", cfg.Grading.Queue).
		Int("workers", cfg.Grading.Workers).
		Msg("code practice api started")

	waitForShutdown(app, logger)

	if err := scheduler.Close(); err != nil {
		logger.Warn().Err(err).Msg("grading scheduler did not close cleanly")
	}
	stopWorkers()
}

func buildRunner(cfg config.GradingConfig, logger zerolog.Logger) (sandbox.Runner, func(), error) {
	if cfg.Runner != config.RunnerContainer {
		return sandbox.NewVMRunner(sandbox.VMConfig{
			CaseTimeout:  cfg.CaseTimeout,
			MaxCallStack: cfg.MaxCallStack,
			Logger:       logger,
		}), func() {}, nil
	}

	executor, err := dockerexec.NewDockerExecutor(dockerexec.Config{
		Host:          cfg.DockerHost,
		Timeout:       cfg.CaseTimeout + time.Second,
		MemoryLimitMB: cfg.MemoryLimitMB,
		CPUShares:     cfg.CPUShares,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}

	runner := sandbox.NewContainerRunner(executor, sandbox.ContainerConfig{
		Image:         cfg.ContainerImage,
		CaseTimeout:   cfg.CaseTimeout,
		MemoryLimitMB: cfg.MemoryLimitMB,
		CPUShares:     cfg.CPUShares,
		Logger:        logger,
	})
	return runner, func() { _ = executor.Close() }, nil
}

func buildScheduler(cfg config.GradingConfig, redisClient *redis.Client, natsConn *nats.Conn, logger zerolog.Logger) queue.Scheduler {
	switch cfg.Queue {
	case config.QueueRedis:
		return queue.NewRedisScheduler(redisClient, cfg.QueueKey, cfg.Workers, logger)
	case config.QueueNATS:
		return queue.NewNATSScheduler(natsConn, cfg.NATSSubject, cfg.Workers, logger)
	default:
		return queue.NewLocalScheduler(cfg.Workers, 0, logger)
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
