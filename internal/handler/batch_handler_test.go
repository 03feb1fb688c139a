package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/handler"
	"github.com/noah-isme/coaching-center-api/internal/policy"
	"github.com/noah-isme/coaching-center-api/internal/service"
)

type mockBatchService struct {
	err           error
	lastRequester uint
	lastBatch     uint
	created       []dto.BatchCreateRequest
}

func (m *mockBatchService) CreateStandard(_ context.Context, _ service.ActivityActor, req dto.StandardCreateRequest) (dto.StandardResponse, error) {
	return dto.StandardResponse{ID: 1, Name: req.Name, Fee: req.Fee}, m.err
}

func (m *mockBatchService) ListStandards(context.Context) ([]dto.StandardResponse, error) {
	return []dto.StandardResponse{}, m.err
}

func (m *mockBatchService) CreateBatch(_ context.Context, _ service.ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error) {
	if m.err != nil {
		return dto.BatchResponse{}, m.err
	}
	m.created = append(m.created, req)
	return dto.BatchResponse{ID: 3, Name: req.Name, StandardID: req.StandardID}, nil
}

func (m *mockBatchService) List(_ context.Context, requesterID uint) ([]dto.BatchResponse, error) {
	m.lastRequester = requesterID
	return []dto.BatchResponse{}, m.err
}

func (m *mockBatchService) Students(_ context.Context, requesterID, batchID uint) ([]dto.UserResponse, error) {
	m.lastRequester, m.lastBatch = requesterID, batchID
	return []dto.UserResponse{}, m.err
}

func (m *mockBatchService) Fees(_ context.Context, requesterID, batchID uint) (dto.BatchFeesResponse, error) {
	m.lastRequester, m.lastBatch = requesterID, batchID
	return dto.BatchFeesResponse{}, m.err
}

func newBatchApp(svc service.BatchService, guards handler.Guards) *fiber.App {
	app := fiber.New()
	h := handler.NewBatchHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/v1/batches"), guards)
	h.RegisterStandards(app.Group("/api/v1/standards"), guards)
	return app
}

func TestBatchStudentsPassesRequester(t *testing.T) {
	svc := &mockBatchService{}
	app := newBatchApp(svc, handler.Guards{Authenticated: asUser(2, "teacher")})

	resp, payload := doRequest(t, app, http.MethodGet, "/api/v1/batches/4/students", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, uint(2), svc.lastRequester)
	require.Equal(t, uint(4), svc.lastBatch)
}

func TestBatchStudentsDeniedOutsideAssignment(t *testing.T) {
	svc := &mockBatchService{err: &service.AccessDeniedError{
		Resource: policy.ResourceBatchStudents,
		Decision: policy.Decision{Reason: policy.ReasonBatchNotAssigned},
	}}
	app := newBatchApp(svc, handler.Guards{Authenticated: asUser(2, "teacher")})

	resp, payload := doRequest(t, app, http.MethodGet, "/api/v1/batches/4/students", nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "batch_not_assigned", payload.Code)
}

func TestBatchFeesNotFound(t *testing.T) {
	app := newBatchApp(&mockBatchService{err: service.ErrBatchNotFound}, handler.Guards{Authenticated: asUser(1, "admin")})

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/batches/99/fees", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/batches/zero/fees", nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBatchAndStandard(t *testing.T) {
	svc := &mockBatchService{}
	app := newBatchApp(svc, handler.Guards{Authenticated: asUser(1, "admin")})

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/batches", jsonBody(t, dto.BatchCreateRequest{Name: "Morning", StandardID: 1}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, svc.created, 1)

	resp, _ = doRequest(t, app, http.MethodPost, "/api/v1/standards", jsonBody(t, dto.StandardCreateRequest{Name: "Grade 10", Fee: 12000}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conflict := newBatchApp(&mockBatchService{err: service.ErrStandardExists}, handler.Guards{Authenticated: asUser(1, "admin")})
	resp, _ = doRequest(t, conflict, http.MethodPost, "/api/v1/standards", jsonBody(t, dto.StandardCreateRequest{Name: "Grade 10"}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	missing := newBatchApp(&mockBatchService{err: service.ErrStandardNotFound}, handler.Guards{Authenticated: asUser(1, "admin")})
	resp, _ = doRequest(t, missing, http.MethodPost, "/api/v1/batches", jsonBody(t, dto.BatchCreateRequest{Name: "Late", StandardID: 8}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
