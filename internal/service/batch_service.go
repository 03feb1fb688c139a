package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/policy"
	"github.com/noah-isme/coaching-center-api/internal/repository"
)

// BatchService manages standards and batches and serves batch-scoped reads.
type BatchService interface {
	CreateStandard(ctx context.Context, actor ActivityActor, req dto.StandardCreateRequest) (dto.StandardResponse, error)
	ListStandards(ctx context.Context) ([]dto.StandardResponse, error)
	CreateBatch(ctx context.Context, actor ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error)
	List(ctx context.Context, requesterID uint) ([]dto.BatchResponse, error)
	Students(ctx context.Context, requesterID, batchID uint) ([]dto.UserResponse, error)
	Fees(ctx context.Context, requesterID, batchID uint) (dto.BatchFeesResponse, error)
}

type batchService struct {
	batches   repository.BatchRepository
	users     repository.UserRepository
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(batches repository.BatchRepository, users repository.UserRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) BatchService {
	return &batchService{
		batches:   batches,
		users:     users,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "batch_service").Logger(),
	}
}

func (s *batchService) CreateStandard(ctx context.Context, actor ActivityActor, req dto.StandardCreateRequest) (dto.StandardResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StandardResponse{}, err
	}

	standard := models.Standard{Name: cleanText(s.sanitizer, req.Name), Fee: req.Fee}
	if err := s.batches.CreateStandard(ctx, &standard); err != nil {
		if repository.IsUniqueViolation(err) {
			return dto.StandardResponse{}, ErrStandardExists
		}
		return dto.StandardResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "standard.created",
		EntityType: "standard",
		EntityID:   &standard.ID,
		Metadata:   map[string]interface{}{"name": standard.Name, "fee": standard.Fee},
	})
	return dto.NewStandardResponse(standard), nil
}

func (s *batchService) ListStandards(ctx context.Context) ([]dto.StandardResponse, error) {
	standards, err := s.batches.ListStandards(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.StandardResponse, 0, len(standards))
	for _, standard := range standards {
		responses = append(responses, dto.NewStandardResponse(standard))
	}
	return responses, nil
}

func (s *batchService) CreateBatch(ctx context.Context, actor ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BatchResponse{}, err
	}

	if _, err := s.batches.GetStandard(ctx, req.StandardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrStandardNotFound
		}
		return dto.BatchResponse{}, err
	}

	batch := models.Batch{
		Name:       cleanText(s.sanitizer, req.Name),
		StandardID: req.StandardID,
		StartTime:  strings.TrimSpace(req.StartTime),
		EndTime:    strings.TrimSpace(req.EndTime),
	}
	if err := s.batches.CreateBatch(ctx, &batch); err != nil {
		return dto.BatchResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "batch.created",
		EntityType: "batch",
		EntityID:   &batch.ID,
		Metadata:   map[string]interface{}{"name": batch.Name, "standard_id": batch.StandardID},
	})
	return dto.NewBatchResponse(batch), nil
}

// List returns every batch for admins and only the assigned batches for teachers.
func (s *batchService) List(ctx context.Context, requesterID uint) ([]dto.BatchResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	var ids []uint
	switch req.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		ids = req.TeacherBatches
		if ids == nil {
			ids = []uint{}
		}
	default:
		return nil, denied(policy.ResourceTeacherBatches, policy.Deny(policy.ReasonRoleNotPermitted, "students cannot list batches"))
	}

	batches, err := s.batches.ListBatches(ctx, ids)
	if err != nil {
		return nil, err
	}
	return dto.NewBatchResponses(batches), nil
}

func (s *batchService) Students(ctx context.Context, requesterID, batchID uint) ([]dto.UserResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	decision := policy.CanView(req, policy.Target{BatchID: &batchID}, policy.ResourceBatchStudents)
	if !decision.Allowed {
		return nil, denied(policy.ResourceBatchStudents, decision)
	}

	if _, err := s.getBatch(ctx, batchID); err != nil {
		return nil, err
	}

	var statuses []models.Status
	if req.Role != models.RoleAdmin {
		statuses = models.EnrolledStatuses
	}
	students, err := s.users.ListBatchStudents(ctx, batchID, statuses)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(students, decision.Mask), nil
}

func (s *batchService) Fees(ctx context.Context, requesterID, batchID uint) (dto.BatchFeesResponse, error) {
	req, err := s.requester(ctx, requesterID)
	if err != nil {
		return dto.BatchFeesResponse{}, err
	}

	decision := policy.CanView(req, policy.Target{BatchID: &batchID}, policy.ResourceBatchFees)
	if !decision.Allowed {
		return dto.BatchFeesResponse{}, denied(policy.ResourceBatchFees, decision)
	}

	batch, err := s.getBatch(ctx, batchID)
	if err != nil {
		return dto.BatchFeesResponse{}, err
	}
	students, err := s.users.ListBatchStudents(ctx, batchID, nil)
	if err != nil {
		return dto.BatchFeesResponse{}, err
	}
	return dto.NewBatchFeesResponse(batch, students), nil
}

func (s *batchService) getBatch(ctx context.Context, id uint) (models.Batch, error) {
	batch, err := s.batches.GetBatch(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Batch{}, ErrBatchNotFound
		}
		return models.Batch{}, err
	}
	return batch, nil
}

func (s *batchService) requester(ctx context.Context, id uint) (policy.Requester, error) {
	return loadRequester(ctx, s.users, id)
}
