package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/models"
)

// ErrSeedIncomplete indicates the bootstrap admin is missing required values.
var ErrSeedIncomplete = errors.New("seed admin requires name, email and password")

// SeedActorRole is recorded as the actor role for bootstrap writes.
const SeedActorRole = "system"

// AdminSeed describes the first administrator account.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// SeedResult summarises a bootstrap run.
type SeedResult struct {
	Admin            dto.UserResponse
	AdminCreated     bool
	StandardsCreated int
}

// SeedService bootstraps an empty deployment.
type SeedService interface {
	Seed(ctx context.Context, admin AdminSeed, standards []string) (SeedResult, error)
}

type seedService struct {
	auth    AuthService
	batches BatchService
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service on top of the regular registration flow.
func NewSeedService(auth AuthService, batches BatchService, logger zerolog.Logger) SeedService {
	return &seedService{
		auth:    auth,
		batches: batches,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

// Seed creates the admin and standards that do not exist yet. Running it twice is a no-op.
func (s *seedService) Seed(ctx context.Context, admin AdminSeed, standards []string) (SeedResult, error) {
	if strings.TrimSpace(admin.Name) == "" || strings.TrimSpace(admin.Email) == "" || admin.Password == "" {
		return SeedResult{}, ErrSeedIncomplete
	}

	actor := ActivityActor{Role: SeedActorRole}
	result := SeedResult{}

	created, err := s.auth.Register(ctx, actor, dto.RegisterRequest{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
		Role:     string(models.RoleAdmin),
	})
	switch {
	case err == nil:
		result.Admin = created
		result.AdminCreated = true
		s.logger.Info().Uint("user_id", created.ID).Msg("bootstrap admin created")
	case errors.Is(err, ErrEmailTaken):
		s.logger.Info().Str("email", normalizeEmail(admin.Email)).Msg("bootstrap admin already present")
	default:
		return SeedResult{}, err
	}

	for _, name := range standards {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := s.batches.CreateStandard(ctx, actor, dto.StandardCreateRequest{Name: name}); err != nil {
			if errors.Is(err, ErrStandardExists) {
				continue
			}
			return result, err
		}
		result.StandardsCreated++
	}

	return result, nil
}
