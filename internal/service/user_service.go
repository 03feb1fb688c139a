package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/events"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/policy"
	"github.com/noah-isme/coaching-center-api/internal/repository"
)

// Paging bounds for user listings.
const (
	DefaultPageSize        = 10
	MaxPageSize            = 100
	DefaultLeaderboardSize = 10
)

// UserService serves profile reads and admin profile mutations. Every read is
// checked against the access policy for the requesting user.
type UserService interface {
	View(ctx context.Context, requesterID, targetID uint) (dto.UserResponse, error)
	Update(ctx context.Context, actor ActivityActor, targetID uint, req dto.UserUpdateRequest) (dto.UserResponse, error)
	ChangeStatus(ctx context.Context, actor ActivityActor, targetID uint, req dto.StatusUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor ActivityActor, targetID uint) error
	SetProfilePicture(ctx context.Context, actor ActivityActor, targetID uint, file *multipart.FileHeader) (dto.UserResponse, error)
	TeacherBatches(ctx context.Context, requesterID, targetID uint) ([]dto.BatchResponse, error)
	Search(ctx context.Context, requesterID uint, req dto.UserSearchRequest) (dto.UserSearchResponse, error)
	ListByRole(ctx context.Context, requesterID uint, role string, req dto.UserSearchRequest) (dto.UserSearchResponse, error)
	Staff(ctx context.Context, requesterID uint) ([]dto.UserResponse, error)
	Leaderboard(ctx context.Context, requesterID uint, batchID *uint, limit int) ([]dto.LeaderboardEntry, error)
	FeePayments(ctx context.Context, requesterID, targetID uint) ([]dto.FeePaymentResponse, error)
}

type userService struct {
	users     repository.UserRepository
	batches   repository.BatchRepository
	payments  repository.FeePaymentRepository
	uploader  ImageUploader
	events    events.Publisher
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewUserService constructs the user service.
func NewUserService(
	users repository.UserRepository,
	batches repository.BatchRepository,
	payments repository.FeePaymentRepository,
	uploader ImageUploader,
	publisher events.Publisher,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) UserService {
	return &userService{
		users:     users,
		batches:   batches,
		payments:  payments,
		uploader:  uploader,
		events:    publisher,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/coaching-center-api/internal/service/user"),
	}
}

func (s *userService) requester(ctx context.Context, id uint) (policy.Requester, error) {
	return loadRequester(ctx, s.users, id)
}

// loadTarget fetches the target user. A missing target is reported to admins
// as ErrUserNotFound and to everyone else exactly like a denial.
func (s *userService) loadTarget(ctx context.Context, req policy.Requester, targetID uint, resource policy.Resource) (models.User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	decision := policy.CanView(req, policy.Target{ID: targetID}, resource)
	if decision.Allowed {
		return models.User{}, ErrUserNotFound
	}
	return models.User{}, denied(resource, decision)
}

func (s *userService) authorize(req policy.Requester, target models.User, resource policy.Resource) (policy.Decision, error) {
	decision := policy.CanView(req, targetFromUser(target), resource)
	if !decision.Allowed {
		s.logger.Debug().
			Uint("requester_id", req.ID).
			Uint("target_id", target.ID).
			Str("resource", string(resource)).
			Str("reason", string(decision.Reason)).
			Str("detail", decision.Detail).
			Msg("access denied")
		return decision, denied(resource, decision)
	}
	return decision, nil
}

func (s *userService) View(ctx context.Context, requesterID, targetID uint) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "user.view")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.target_id", int64(targetID)))

	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	target, err := s.loadTarget(ctx, req, targetID, policy.ResourceProfile)
	if err != nil {
		return dto.UserResponse{}, err
	}
	decision, err := s.authorize(req, target, policy.ResourceProfile)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(target, decision.Mask), nil
}

func (s *userService) getUser(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor ActivityActor, targetID uint, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	changed, err := s.applyCommonUpdates(ctx, &user, req)
	if err != nil {
		return dto.UserResponse{}, err
	}

	studentFields, err := s.applyStudentUpdates(ctx, &user, req)
	if err != nil {
		return dto.UserResponse{}, err
	}
	changed = append(changed, studentFields...)

	staffFields, teacherBatches, err := s.applyStaffUpdates(ctx, &user, req)
	if err != nil {
		return dto.UserResponse{}, err
	}
	changed = append(changed, staffFields...)

	if err := user.ValidateRoleDetails(); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.users.Update(ctx, &user, teacherBatches); err != nil {
		if repository.UniqueViolationOn(err, "email") {
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.updated",
		EntityType: "user",
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"fields": changed},
	})

	updated, err := s.getUser(ctx, targetID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(updated, policy.MaskNone), nil
}

func (s *userService) applyCommonUpdates(ctx context.Context, user *models.User, req dto.UserUpdateRequest) ([]string, error) {
	var changed []string

	if req.Name != nil {
		user.Name = cleanText(s.sanitizer, *req.Name)
		changed = append(changed, "name")
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, ErrEmailTaken
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			user.Email = email
			changed = append(changed, "email")
		}
	}
	if req.Password != nil {
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hashed
		changed = append(changed, "password")
	}
	if req.Address != nil {
		user.Address = cleanText(s.sanitizer, *req.Address)
		changed = append(changed, "address")
	}
	if req.PersonalContactNumber != nil {
		user.PersonalContactNumber = strings.TrimSpace(*req.PersonalContactNumber)
		changed = append(changed, "personal_contact_number")
	}
	if req.EmergencyContactNumber != nil {
		user.EmergencyContactNumber = strings.TrimSpace(*req.EmergencyContactNumber)
		changed = append(changed, "emergency_contact_number")
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return nil, err
		}
		user.DateOfBirth = dob
		changed = append(changed, "date_of_birth")
	}
	if req.Gender != nil {
		user.Gender = strings.ToLower(strings.TrimSpace(*req.Gender))
		changed = append(changed, "gender")
	}

	return changed, nil
}

func (s *userService) applyStudentUpdates(ctx context.Context, user *models.User, req dto.UserUpdateRequest) ([]string, error) {
	touches := req.BatchID != nil || req.TotalFee != nil || req.PendingFee != nil || req.Discount != nil ||
		req.ParentName != nil || req.ParentContactNumber != nil || req.RelationshipToGuardian != nil ||
		req.TestScore != nil || req.AttendanceScore != nil
	if !touches {
		return nil, nil
	}
	if user.Student == nil {
		return nil, ErrFieldNotApplicable
	}

	student := user.Student
	var changed []string
	if req.BatchID != nil {
		batch, err := s.batches.GetBatch(ctx, *req.BatchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBatchNotFound
			}
			return nil, err
		}
		batchID := batch.ID
		student.BatchID = &batchID
		student.Batch = nil
		changed = append(changed, "batch_id")
	}
	if req.TotalFee != nil {
		student.TotalFee = *req.TotalFee
		changed = append(changed, "total_fee")
	}
	if req.PendingFee != nil {
		student.PendingFee = *req.PendingFee
		changed = append(changed, "pending_fee")
	}
	if req.Discount != nil {
		student.Discount = *req.Discount
		changed = append(changed, "discount")
	}
	if req.ParentName != nil {
		student.ParentName = cleanText(s.sanitizer, *req.ParentName)
		changed = append(changed, "parent_name")
	}
	if req.ParentContactNumber != nil {
		student.ParentContactNumber = strings.TrimSpace(*req.ParentContactNumber)
		changed = append(changed, "parent_contact_number")
	}
	if req.RelationshipToGuardian != nil {
		student.RelationshipToGuardian = cleanText(s.sanitizer, *req.RelationshipToGuardian)
		changed = append(changed, "relationship_to_guardian")
	}
	if req.TestScore != nil {
		student.TestScore = *req.TestScore
		changed = append(changed, "test_score")
	}
	if req.AttendanceScore != nil {
		student.AttendanceScore = *req.AttendanceScore
		changed = append(changed, "attendance_score")
	}
	return changed, nil
}

func (s *userService) applyStaffUpdates(ctx context.Context, user *models.User, req dto.UserUpdateRequest) ([]string, *[]uint, error) {
	touchesStaff := req.Salary != nil || req.SalaryType != nil
	touchesTeacher := req.Subjects != nil || req.TeacherBatches != nil
	if !touchesStaff && !touchesTeacher {
		return nil, nil, nil
	}
	if user.Staff == nil || (touchesTeacher && user.Role != models.RoleTeacher) {
		return nil, nil, ErrFieldNotApplicable
	}

	staff := user.Staff
	var changed []string
	if req.Salary != nil {
		staff.Salary = *req.Salary
		changed = append(changed, "salary")
	}
	if req.SalaryType != nil {
		staff.SalaryType = strings.TrimSpace(*req.SalaryType)
		changed = append(changed, "salary_type")
	}
	if req.Subjects != nil {
		subjects := make([]string, 0, len(req.Subjects))
		for _, subject := range req.Subjects {
			if v := cleanText(s.sanitizer, subject); v != "" {
				subjects = append(subjects, v)
			}
		}
		staff.Subjects = subjects
		changed = append(changed, "subjects")
	}

	var teacherBatches *[]uint
	if req.TeacherBatches != nil {
		ids := uniqueIDs(req.TeacherBatches)
		if len(ids) > 0 {
			found, err := s.batches.ListBatches(ctx, ids)
			if err != nil {
				return nil, nil, err
			}
			if len(found) != len(ids) {
				return nil, nil, ErrBatchNotFound
			}
			staff.Batches = found
		} else {
			staff.Batches = nil
		}
		teacherBatches = &ids
		changed = append(changed, "teacher_batches")
	}

	return changed, teacherBatches, nil
}

func (s *userService) ChangeStatus(ctx context.Context, actor ActivityActor, targetID uint, req dto.StatusUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}
	status, ok := models.ParseStatus(req.Status)
	if !ok {
		return dto.UserResponse{}, ErrInvalidStatus
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	previous := user.Status

	if err := s.users.UpdateStatus(ctx, targetID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	user.Status = status

	s.logger.Info().
		Uint("user_id", targetID).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("user status changed")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.status_changed",
		EntityType: "user",
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"from": string(previous), "to": string(status)},
	})

	if s.events != nil && previous != status {
		event := events.UserStatusChanged{
			UserID:     user.ID,
			Name:       user.Name,
			Email:      user.Email,
			From:       string(previous),
			To:         string(status),
			ChangedBy:  actor.ID,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.UserStatusChanged(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to publish status event")
		}
	}

	return dto.NewUserResponse(user, policy.MaskNone), nil
}

func (s *userService) Delete(ctx context.Context, actor ActivityActor, targetID uint) error {
	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info().Uint("user_id", targetID).Uint("actor_id", actor.ID).Msg("user deleted")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.deleted",
		EntityType: "user",
		EntityID:   &targetID,
	})
	return nil
}

func (s *userService) SetProfilePicture(ctx context.Context, actor ActivityActor, targetID uint, file *multipart.FileHeader) (dto.UserResponse, error) {
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	image, err := s.uploader.Upload(ctx, file, user.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user.ProfilePic = image.URL
	if err := s.users.Update(ctx, &user, nil); err != nil {
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.picture_updated",
		EntityType: "user",
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"mime_type": image.MimeType, "size_bytes": image.SizeBytes},
	})

	return dto.NewUserResponse(user, policy.MaskNone), nil
}

func (s *userService) TeacherBatches(ctx context.Context, requesterID, targetID uint) ([]dto.BatchResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, req, targetID, policy.ResourceTeacherBatches)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(req, target, policy.ResourceTeacherBatches); err != nil {
		return nil, err
	}
	if target.Staff == nil {
		return []dto.BatchResponse{}, nil
	}
	return dto.NewBatchResponses(target.Staff.Batches), nil
}

func (s *userService) Search(ctx context.Context, requesterID uint, req dto.UserSearchRequest) (dto.UserSearchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "user.search")
	defer span.End()

	requester, err := s.requester(ctx, requesterID)
	if err != nil {
		return dto.UserSearchResponse{}, err
	}

	role, err := parseRoleFilter(req.Role)
	if err != nil {
		return dto.UserSearchResponse{}, err
	}
	statuses, err := parseStatusFilter(req.Status)
	if err != nil {
		return dto.UserSearchResponse{}, err
	}

	scope, decision := policy.ScopeSearch(requester, policy.SearchScope{Role: role, BatchID: req.BatchID})
	if !decision.Allowed {
		return dto.UserSearchResponse{}, denied(policy.ResourceUserSearch, decision)
	}

	page, limit := normalizePage(req.Page, req.Limit)
	if requester.Role == models.RoleTeacher {
		statuses = enrolledOnly(statuses)
		if len(statuses) == 0 {
			return dto.UserSearchResponse{Items: []dto.UserResponse{}, CurrentPage: page}, nil
		}
	}

	span.SetAttributes(
		attribute.String("search.role", string(scope.Role)),
		attribute.Int("search.page", page),
	)

	users, total, err := s.users.Search(ctx, repository.UserFilter{
		Role:      scope.Role,
		Statuses:  statuses,
		BatchID:   scope.BatchID,
		Name:      req.Name,
		Email:     req.Email,
		StudentID: req.StudentID,
		Query:     req.Query,
		Page:      page,
		PageSize:  limit,
	})
	if err != nil {
		return dto.UserSearchResponse{}, err
	}

	return dto.UserSearchResponse{
		Items:       dto.NewUserResponses(users, decision.Mask),
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}

func (s *userService) ListByRole(ctx context.Context, requesterID uint, role string, req dto.UserSearchRequest) (dto.UserSearchResponse, error) {
	parsed, err := parseRoleFilter(role)
	if err != nil {
		return dto.UserSearchResponse{}, err
	}

	requester, err := s.requester(ctx, requesterID)
	if err != nil {
		return dto.UserSearchResponse{}, err
	}
	if requester.Role == models.RoleTeacher && parsed != models.RoleStudent {
		return dto.UserSearchResponse{}, denied(policy.ResourceUserSearch,
			policy.Deny(policy.ReasonRoleNotPermitted, fmt.Sprintf("teachers cannot list %q", role)))
	}

	req.Role = string(parsed)
	return s.Search(ctx, requesterID, req)
}

func (s *userService) Staff(ctx context.Context, requesterID uint) ([]dto.UserResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	decision := policy.CanView(req, policy.Target{}, policy.ResourceStaffDirectory)
	if !decision.Allowed {
		return nil, denied(policy.ResourceStaffDirectory, decision)
	}

	users, _, err := s.users.Search(ctx, repository.UserFilter{
		Roles:    []models.Role{models.RoleAdmin, models.RoleTeacher},
		Statuses: models.EnrolledStatuses,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(users, decision.Mask), nil
}

func (s *userService) Leaderboard(ctx context.Context, requesterID uint, batchID *uint, limit int) ([]dto.LeaderboardEntry, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if batchID == nil && req.Role == models.RoleStudent {
		batchID = req.BatchID
	}

	decision := policy.CanView(req, policy.Target{BatchID: batchID}, policy.ResourceLeaderboard)
	if !decision.Allowed {
		return nil, denied(policy.ResourceLeaderboard, decision)
	}

	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	users, err := s.users.Leaderboard(ctx, batchID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewLeaderboard(users), nil
}

func (s *userService) FeePayments(ctx context.Context, requesterID, targetID uint) ([]dto.FeePaymentResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, req, targetID, policy.ResourceFeePayments)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(req, target, policy.ResourceFeePayments); err != nil {
		return nil, err
	}

	payments, err := s.payments.ListByStudent(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewFeePaymentResponses(payments), nil
}

func parseRoleFilter(value string) (models.Role, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return "", nil
	}
	role, ok := models.ParseRole(value)
	if !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

func parseStatusFilter(value string) ([]models.Status, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return nil, nil
	}
	status, ok := models.ParseStatus(value)
	if !ok {
		return nil, ErrInvalidStatus
	}
	return []models.Status{status}, nil
}

func enrolledOnly(statuses []models.Status) []models.Status {
	if statuses == nil {
		return models.EnrolledStatuses
	}
	filtered := make([]models.Status, 0, len(statuses))
	for _, status := range statuses {
		if status.Enrolled() {
			filtered = append(filtered, status)
		}
	}
	return filtered
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
