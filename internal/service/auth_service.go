package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/events"
	"github.com/noah-isme/coaching-center-api/internal/identifier"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/observability"
	"github.com/noah-isme/coaching-center-api/internal/policy"
	"github.com/noah-isme/coaching-center-api/internal/repository"
)

// ErrInvalidFee is returned when discount plus paid fee exceed the standard's fee.
var ErrInvalidFee = errors.New("discount and paid fee exceed the total fee")

const (
	advancePaymentMemo   = "Advance Fee Payment"
	defaultPaymentMethod = "cash"
	dateLayout           = "2006-01-02"
)

// AuthService covers registration, login and logout.
type AuthService interface {
	Register(ctx context.Context, actor ActivityActor, req dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, claims auth.Claims) error
	Profile(ctx context.Context, userID uint) (dto.UserResponse, error)
}

// AuthDependencies groups the collaborators of the auth service.
type AuthDependencies struct {
	Users       repository.UserRepository
	Batches     repository.BatchRepository
	Identifiers *identifier.Generator
	Widths      *identifier.Tracker
	Tokens      *auth.TokenManager
	Revocations auth.RevocationList
	Events      events.Publisher
	Activity    ActivityRecorder
	Validator   *validator.Validate
}

type authService struct {
	users       repository.UserRepository
	batches     repository.BatchRepository
	identifiers *identifier.Generator
	widths      *identifier.Tracker
	tokens      *auth.TokenManager
	revocations auth.RevocationList
	events      events.Publisher
	activity    ActivityRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAuthService constructs the auth service.
func NewAuthService(deps AuthDependencies, logger zerolog.Logger) AuthService {
	widths := deps.Widths
	if widths == nil {
		widths = identifier.NewTracker()
	}
	return &authService{
		users:       deps.Users,
		batches:     deps.Batches,
		identifiers: deps.Identifiers,
		widths:      widths,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		events:      deps.Events,
		activity:    deps.Activity,
		validator:   deps.Validator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "auth_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/coaching-center-api/internal/service/auth"),
	}
}

func (s *authService) Register(ctx context.Context, actor ActivityActor, req dto.RegisterRequest) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		return dto.UserResponse{}, ErrInvalidRole
	}
	span.SetAttributes(attribute.String("user.role", string(role)))

	status := models.StatusActive
	if strings.TrimSpace(req.Status) != "" {
		parsed, ok := models.ParseStatus(req.Status)
		if !ok {
			return dto.UserResponse{}, ErrInvalidStatus
		}
		status = parsed
	}

	email := normalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return dto.UserResponse{}, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:                   cleanText(s.sanitizer, req.Name),
		Email:                  email,
		PasswordHash:           hashed,
		Role:                   role,
		Status:                 status,
		Address:                cleanText(s.sanitizer, req.Address),
		PersonalContactNumber:  strings.TrimSpace(req.PersonalContactNumber),
		EmergencyContactNumber: strings.TrimSpace(req.EmergencyContactNumber),
		DateOfBirth:            dob,
		Gender:                 strings.ToLower(strings.TrimSpace(req.Gender)),
	}

	var (
		teacherBatches []uint
		payments       []models.FeePayment
		identifierID   string
	)

	switch role {
	case models.RoleStudent:
		if len(req.Subjects) > 0 || len(req.TeacherBatches) > 0 || req.Salary > 0 {
			return dto.UserResponse{}, ErrFieldNotApplicable
		}
		profile, payment, err := s.buildStudentProfile(ctx, actor, req)
		if err != nil {
			return dto.UserResponse{}, err
		}
		identifierID, err = s.nextIdentifier(ctx, identifier.KindStudent)
		if err != nil {
			return dto.UserResponse{}, err
		}
		profile.StudentID = identifierID
		user.Student = profile
		if payment != nil {
			payments = append(payments, *payment)
		}
	case models.RoleTeacher, models.RoleAdmin:
		if req.BatchID != nil || req.PaidFee > 0 || req.Discount > 0 {
			return dto.UserResponse{}, ErrFieldNotApplicable
		}
		if role == models.RoleAdmin && (len(req.Subjects) > 0 || len(req.TeacherBatches) > 0) {
			return dto.UserResponse{}, ErrFieldNotApplicable
		}
		if err := s.ensureBatchesExist(ctx, req.TeacherBatches); err != nil {
			return dto.UserResponse{}, err
		}
		identifierID, err = s.nextIdentifier(ctx, identifier.KindStaff)
		if err != nil {
			return dto.UserResponse{}, err
		}
		user.Staff = &models.StaffProfile{
			StaffID:    identifierID,
			Salary:     req.Salary,
			SalaryType: strings.TrimSpace(req.SalaryType),
			Subjects:   s.cleanList(req.Subjects),
		}
		teacherBatches = req.TeacherBatches
	}

	if err := user.ValidateRoleDetails(); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.users.Create(ctx, &user, teacherBatches, payments); err != nil {
		switch {
		case repository.UniqueViolationOn(err, "email"):
			return dto.UserResponse{}, ErrEmailTaken
		case repository.UniqueViolationOn(err, "student_id"), repository.UniqueViolationOn(err, "staff_id"):
			s.logger.Warn().Str("identifier", identifierID).Msg("generated identifier taken before insert")
			return dto.UserResponse{}, ErrIdentifierConflict
		default:
			return dto.UserResponse{}, err
		}
	}

	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().
		Uint("user_id", stored.ID).
		Str("role", string(role)).
		Str("identifier", identifierID).
		Msg("user registered")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.registered",
		EntityType: "user",
		EntityID:   &stored.ID,
		Metadata:   map[string]interface{}{"role": string(role), "identifier": identifierID},
	})

	if s.events != nil {
		event := events.UserRegistered{
			UserID:     stored.ID,
			Name:       stored.Name,
			Email:      stored.Email,
			Role:       string(stored.Role),
			Identifier: identifierID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.UserRegistered(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", stored.ID).Msg("failed to publish registration event")
		}
	}

	return dto.NewUserResponse(stored, policy.MaskNone), nil
}

func (s *authService) buildStudentProfile(ctx context.Context, actor ActivityActor, req dto.RegisterRequest) (*models.StudentProfile, *models.FeePayment, error) {
	if req.BatchID == nil || *req.BatchID == 0 {
		return nil, nil, ErrBatchRequired
	}
	batch, err := s.batches.GetBatch(ctx, *req.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrBatchNotFound
		}
		return nil, nil, err
	}

	var total float64
	if batch.Standard != nil {
		total = batch.Standard.Fee
	}
	pending := total - req.Discount - req.PaidFee
	if pending < 0 {
		return nil, nil, ErrInvalidFee
	}

	batchID := batch.ID
	profile := &models.StudentProfile{
		BatchID:                &batchID,
		TotalFee:               total,
		PendingFee:             pending,
		Discount:               req.Discount,
		ParentName:             cleanText(s.sanitizer, req.ParentName),
		ParentContactNumber:    strings.TrimSpace(req.ParentContactNumber),
		RelationshipToGuardian: cleanText(s.sanitizer, req.RelationshipToGuardian),
	}

	if req.PaidFee <= 0 {
		return profile, nil, nil
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = defaultPaymentMethod
	}
	payment := &models.FeePayment{
		Amount:         req.PaidFee,
		Method:         method,
		TransactionID:  uuid.NewString(),
		Status:         models.FeePaymentStatusCompleted,
		Currency:       models.DefaultCurrency,
		Memo:           advancePaymentMemo,
		PaymentGateway: models.FeePaymentGatewayManual,
	}
	if actor.ID != 0 {
		createdBy := actor.ID
		payment.CreatedByID = &createdBy
	}
	return profile, payment, nil
}

func (s *authService) nextIdentifier(ctx context.Context, kind identifier.Kind) (string, error) {
	id, err := s.identifiers.Next(ctx, kind, s.widths)
	if err != nil {
		if errors.Is(err, identifier.ErrExhausted) {
			s.logger.Error().Err(err).Str("kind", string(kind)).Msg("identifier space exhausted")
			return "", fmt.Errorf("%w: %w", ErrIdentifierUnavailable, err)
		}
		return "", err
	}
	return id, nil
}

func (s *authService) ensureBatchesExist(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.batches.ListBatches(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(uniqueIDs(ids)) {
		return ErrBatchNotFound
	}
	return nil
}

func (s *authService) cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if v := cleanText(s.sanitizer, value); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.LoginAttempts().WithLabelValues("invalid_credentials").Inc()
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		observability.LoginAttempts().WithLabelValues("invalid_credentials").Inc()
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if !user.Status.Enrolled() {
		observability.LoginAttempts().WithLabelValues("inactive").Inc()
		return dto.LoginResponse{}, ErrAccountInactive
	}

	token, claims, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return dto.LoginResponse{}, err
	}

	observability.LoginAttempts().WithLabelValues("success").Inc()
	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")

	return dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      dto.NewUserResponse(user, policy.MaskNone),
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims auth.Claims) error {
	if s.revocations == nil {
		s.logger.Warn().Uint("user_id", claims.UserID).Msg("no revocation list configured, token stays valid until expiry")
		return nil
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *authService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user, policy.MaskNone), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return &parsed, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
