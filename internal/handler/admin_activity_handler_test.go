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
	"github.com/noah-isme/coaching-center-api/internal/service"
)

type mockActivityService struct {
	last dto.AdminActivityListRequest
}

func (m *mockActivityService) Record(context.Context, service.ActivityEntry) (dto.AdminActivityResponse, error) {
	return dto.AdminActivityResponse{}, nil
}

func (m *mockActivityService) List(_ context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	m.last = req
	return dto.AdminActivityListResponse{Items: []dto.AdminActivityResponse{}}, nil
}

func TestActivityListAppliesPagingBounds(t *testing.T) {
	svc := &mockActivityService{}
	app := fiber.New()
	handler.NewAdminActivityHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/admin/activity"), handler.Guards{})

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/admin/activity?page_size=500&actor_id=3&action=user.deleted", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.last.Page)
	require.Equal(t, 200, svc.last.PageSize)
	require.Equal(t, uint(3), svc.last.ActorID)
	require.Equal(t, "user.deleted", svc.last.Action)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/activity?entity_type=user&entity_id=9&since=2026-01-02T03:04:05Z", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, uint(9), svc.last.EntityID)
	require.NotNil(t, svc.last.Since)
	require.Equal(t, 2026, svc.last.Since.Year())

	for _, query := range []string{"actor_id=x", "entity_id=0", "since=yesterday"} {
		resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/admin/activity?"+query, nil, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}
