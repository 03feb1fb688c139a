package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/handler"
	"github.com/noah-isme/coaching-center-api/internal/service"
)

type mockAuthService struct {
	err        error
	registered []dto.RegisterRequest
	actor      service.ActivityActor
}

func (m *mockAuthService) Register(_ context.Context, actor service.ActivityActor, req dto.RegisterRequest) (dto.UserResponse, error) {
	if m.err != nil {
		return dto.UserResponse{}, m.err
	}
	m.actor = actor
	m.registered = append(m.registered, req)
	return dto.UserResponse{ID: 42, Email: req.Email, Role: req.Role}, nil
}

func (m *mockAuthService) Login(_ context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if m.err != nil {
		return dto.LoginResponse{}, m.err
	}
	return dto.LoginResponse{Token: "token", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour), User: dto.UserResponse{Email: req.Email}}, nil
}

func (m *mockAuthService) Logout(context.Context, auth.Claims) error { return m.err }

func (m *mockAuthService) Profile(_ context.Context, userID uint) (dto.UserResponse, error) {
	return dto.UserResponse{ID: userID}, m.err
}

func newAuthApp(svc service.AuthService, users service.UserService, guards handler.Guards) *fiber.App {
	app := fiber.New()
	handler.NewAuthHandler(svc, users, zerolog.Nop()).Register(app.Group("/api/v1/auth"), guards)
	return app
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func multipartImage(t *testing.T, name string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nimage"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestRegisterRecordsActor(t *testing.T) {
	svc := &mockAuthService{}
	app := newAuthApp(svc, &mockUserService{}, handler.Guards{Authenticated: asUser(1, "admin")})

	resp, payload := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]interface{}{
		"name":     "Tara Teacher",
		"email":    "tara@example.com",
		"password": "teacher-pass",
		"role":     "teacher",
	}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, payload.Success)
	require.Len(t, svc.registered, 1)
	require.Equal(t, service.ActivityActor{ID: 1, Role: "admin"}, svc.actor)
}

func TestRegisterErrorMapping(t *testing.T) {
	validationErr := validator.New().Struct(dto.RegisterRequest{})
	require.Error(t, validationErr)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validationErr, http.StatusBadRequest, ""},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, ""},
		{"wrong role field", service.ErrFieldNotApplicable, http.StatusBadRequest, ""},
		{"fee", service.ErrInvalidFee, http.StatusBadRequest, ""},
		{"exhausted", service.ErrIdentifierUnavailable, http.StatusServiceUnavailable, "identifier_unavailable"},
		{"batch missing", service.ErrBatchNotFound, http.StatusNotFound, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAuthApp(&mockAuthService{err: tc.err}, &mockUserService{}, handler.Guards{})
			resp, payload := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]string{"role": "student"}), fiber.MIMEApplicationJSON)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.code, payload.Code)
			if tc.code == "identifier_unavailable" {
				require.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
			}
		})
	}
}

func TestRegisterValidationDetails(t *testing.T) {
	err := validator.New().Struct(dto.RegisterRequest{Email: "nope"})
	app := newAuthApp(&mockAuthService{err: err}, &mockUserService{}, handler.Guards{})

	_, payload := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]string{}), fiber.MIMEApplicationJSON)
	details, ok := payload.Details.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "required", details["Name"])
	require.Equal(t, "email", details["Email"])
}

func TestLoginErrorMapping(t *testing.T) {
	app := newAuthApp(&mockAuthService{err: service.ErrInvalidCredentials}, &mockUserService{}, handler.Guards{})
	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", jsonBody(t, dto.LoginRequest{Email: "a@b.co", Password: "x"}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	app = newAuthApp(&mockAuthService{err: service.ErrAccountInactive}, &mockUserService{}, handler.Guards{})
	resp, payload := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", jsonBody(t, dto.LoginRequest{Email: "a@b.co", Password: "x"}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "account_inactive", payload.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, &mockUserService{}, handler.Guards{})
	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("{")), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutRequiresClaims(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, &mockUserService{}, handler.Guards{Authenticated: asUser(1, "admin")})
	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangeStatusDelegatesToUserService(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, &mockUserService{}, handler.Guards{Authenticated: asUser(1, "admin")})

	resp, payload := doRequest(t, app, http.MethodPut, "/api/v1/auth/status/9", jsonBody(t, dto.StatusUpdateRequest{Status: "suspended"}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := payload.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "suspended", data["status"])

	app = newAuthApp(&mockAuthService{}, &mockUserService{err: service.ErrInvalidStatus}, handler.Guards{Authenticated: asUser(1, "admin")})
	resp, _ = doRequest(t, app, http.MethodPut, "/api/v1/auth/status/9", jsonBody(t, dto.StatusUpdateRequest{Status: "graduated"}), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
