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

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/config"
	"github.com/noah-isme/coaching-center-api/internal/database"
	"github.com/noah-isme/coaching-center-api/internal/events"
	"github.com/noah-isme/coaching-center-api/internal/handler"
	"github.com/noah-isme/coaching-center-api/internal/identifier"
	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/repository"
	"github.com/noah-isme/coaching-center-api/internal/router"
	"github.com/noah-isme/coaching-center-api/internal/service"
	cloud "github.com/noah-isme/coaching-center-api/pkg/cloudinary"
	"github.com/noah-isme/coaching-center-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := map[string]handler.HealthProbe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var revocations auth.RevocationList
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		revocations = auth.NewRedisRevocationList(redisClient)
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis not configured, logout will not revoke tokens")
	}

	mail := mailer.New(mailer.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		Timeout:   cfg.SMTP.Timeout,
	}, logger)
	dispatcher := events.NewDispatcher(mail, cfg.AppName, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher events.Publisher = events.NewLocalPublisher(dispatcher)
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
		if err := dispatcher.Subscribe(ctx, natsConn); err != nil {
			logger.Fatal().Err(err).Msg("failed to subscribe mail dispatcher")
		}
		publisher = events.NewNATSPublisher(natsConn, logger)
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}

	var storage service.FileStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Enabled() {
		cdn, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = cdn
	} else {
		logger.Warn().Msg("cloudinary not configured, profile picture uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	paymentRepo := repository.NewFeePaymentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	generator := identifier.NewGenerator(repository.NewIdentifierStore(db), identifier.Config{
		InitialWidth: cfg.IdentifierInitialWidth,
		MaxAttempts:  cfg.IdentifierMaxAttempts,
	}, logger)

	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:       userRepo,
		Batches:     batchRepo,
		Identifiers: generator,
		Widths:      identifier.NewTracker(),
		Tokens:      tokens,
		Revocations: revocations,
		Events:      publisher,
		Activity:    activityService,
		Validator:   validate,
	}, logger)
	uploader := service.NewImageUploader(storage, cfg.UploadMaxSizeMB, logger)
	userService := service.NewUserService(userRepo, batchRepo, paymentRepo, uploader, publisher, activityService, validate, logger)
	batchService := service.NewBatchService(batchRepo, userRepo, activityService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.CORSOrigins,
		AccessLog:      cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, userService, logger),
		UserHandler:     handler.NewUserHandler(userService, logger),
		BatchHandler:    handler.NewBatchHandler(batchService, logger),
		ActivityHandler: handler.NewAdminActivityHandler(activityService, logger),
		Guards: handler.Guards{
			Authenticated: middleware.JWTProtected(tokens, revocations),
			Admin:         middleware.RequireRole(models.RoleAdmin),
			Staff:         middleware.RequireRole(models.RoleAdmin, models.RoleTeacher),
			LoginLimiter:  middleware.LoginRateLimit(cfg.LoginRateLimit, cfg.LoginRateWindow),
		},
		HealthProbes: probes,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
