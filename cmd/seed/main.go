package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/config"
	"github.com/noah-isme/coaching-center-api/internal/database"
	"github.com/noah-isme/coaching-center-api/internal/identifier"
	"github.com/noah-isme/coaching-center-api/internal/repository"
	"github.com/noah-isme/coaching-center-api/internal/service"
)

func main() {
	name := flag.String("name", os.Getenv("ECC_SEED_ADMIN_NAME"), "bootstrap admin name")
	email := flag.String("email", os.Getenv("ECC_SEED_ADMIN_EMAIL"), "bootstrap admin email")
	password := flag.String("password", os.Getenv("ECC_SEED_ADMIN_PASSWORD"), "bootstrap admin password")
	standards := flag.String("standards", os.Getenv("ECC_SEED_STANDARDS"), "comma separated standards to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:   userRepo,
		Batches: batchRepo,
		Identifiers: identifier.NewGenerator(repository.NewIdentifierStore(db), identifier.Config{
			InitialWidth: cfg.IdentifierInitialWidth,
			MaxAttempts:  cfg.IdentifierMaxAttempts,
		}, logger),
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
		Activity:  activityService,
		Validator: validate,
	}, logger)
	batchService := service.NewBatchService(batchRepo, userRepo, activityService, validate, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := service.NewSeedService(authService, batchService, logger).Seed(ctx, service.AdminSeed{
		Name:     *name,
		Email:    *email,
		Password: *password,
	}, strings.Split(*standards, ","))
	if err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}

	staffID := ""
	if result.Admin.Staff != nil {
		staffID = result.Admin.Staff.StaffID
	}
	logger.Info().
		Bool("admin_created", result.AdminCreated).
		Str("staff_id", staffID).
		Int("standards_created", result.StandardsCreated).
		Msg("seed complete")
}
