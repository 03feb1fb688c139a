package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/auth"
	"github.com/noah-isme/coaching-center-api/internal/config"
	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/events"
	"github.com/noah-isme/coaching-center-api/internal/handler"
	"github.com/noah-isme/coaching-center-api/internal/identifier"
	"github.com/noah-isme/coaching-center-api/internal/middleware"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/repository"
	"github.com/noah-isme/coaching-center-api/internal/router"
	"github.com/noah-isme/coaching-center-api/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "bootstrap-pass"
)

type discardPublisher struct{}

func (discardPublisher) UserRegistered(context.Context, events.UserRegistered) error { return nil }

func (discardPublisher) UserStatusChanged(context.Context, events.UserStatusChanged) error {
	return nil
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	tokens := auth.NewTokenManager("integration-secret", "coaching-center-api", time.Hour)
	revocations := auth.NewRedisRevocationList(client)

	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	paymentRepo := repository.NewFeePaymentRepository(db)
	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:       userRepo,
		Batches:     batchRepo,
		Identifiers: identifier.NewGenerator(repository.NewIdentifierStore(db), identifier.Config{}, logger),
		Tokens:      tokens,
		Revocations: revocations,
		Events:      discardPublisher{},
		Activity:    activityService,
		Validator:   validate,
	}, logger)
	userService := service.NewUserService(userRepo, batchRepo, paymentRepo, service.NewImageUploader(nil, 1, logger), discardPublisher{}, activityService, validate, logger)
	batchService := service.NewBatchService(batchRepo, userRepo, activityService, validate, logger)

	_, err = service.NewSeedService(authService, batchService, logger).Seed(context.Background(), service.AdminSeed{
		Name:     "Root Admin",
		Email:    adminEmail,
		Password: adminPassword,
	}, nil)
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, userService, logger),
		UserHandler:     handler.NewUserHandler(userService, logger),
		BatchHandler:    handler.NewBatchHandler(batchService, logger),
		ActivityHandler: handler.NewAdminActivityHandler(activityService, logger),
		Guards: handler.Guards{
			Authenticated: middleware.JWTProtected(tokens, revocations),
			Admin:         middleware.RequireRole(models.RoleAdmin),
			Staff:         middleware.RequireRole(models.RoleAdmin, models.RoleTeacher),
			LoginLimiter:  middleware.LoginRateLimit(50, time.Minute),
		},
		HealthProbes: map[string]handler.HealthProbe{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body envelope[dto.LoginResponse]
	decode(t, resp, &body)
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func register(t *testing.T, app *fiber.App, token string, req dto.RegisterRequest) dto.UserResponse {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/v1/auth/register", token, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var body envelope[dto.UserResponse]
	decode(t, resp, &body)
	return body.Data
}

func createBatch(t *testing.T, app *fiber.App, token string, standardID uint, name string) dto.BatchResponse {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/v1/batches", token, dto.BatchCreateRequest{
		Name:       name,
		StandardID: standardID,
		StartTime:  "09:00",
		EndTime:    "11:00",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var body envelope[dto.BatchResponse]
	decode(t, resp, &body)
	return body.Data
}

func TestCoachingCenterEndToEndFlow(t *testing.T) {
	app := setupApp(t)
	adminToken := login(t, app, adminEmail, adminPassword)

	// Step 1: admin sets up a standard and two batches
	resp := call(t, app, http.MethodPost, "/api/v1/standards", adminToken, dto.StandardCreateRequest{Name: "Grade 10", Fee: 12000})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var standard envelope[dto.StandardResponse]
	decode(t, resp, &standard)

	b1 := createBatch(t, app, adminToken, standard.Data.ID, "Morning")
	b2 := createBatch(t, app, adminToken, standard.Data.ID, "Evening")

	// Step 2: admin registers a teacher for B1 and a student in each batch
	teacher := register(t, app, adminToken, dto.RegisterRequest{
		Name:           "Tara Teacher",
		Email:          "tara@example.com",
		Password:       "teacher-pass",
		Role:           "teacher",
		Subjects:       []string{"Maths"},
		TeacherBatches: []uint{b1.ID},
	})
	require.NotNil(t, teacher.Staff)
	require.Len(t, teacher.Staff.StaffID, identifier.DefaultInitialWidth)

	student := register(t, app, adminToken, dto.RegisterRequest{
		Name:     "Sara Student",
		Email:    "sara@example.com",
		Password: "student-pass",
		Role:     "student",
		BatchID:  &b1.ID,
		PaidFee:  2000,
	})
	require.NotNil(t, student.Student)
	require.NotNil(t, student.Student.PendingFee)
	require.Equal(t, 10000.0, *student.Student.PendingFee)

	register(t, app, adminToken, dto.RegisterRequest{
		Name:     "Omar Other",
		Email:    "omar@example.com",
		Password: "student-pass",
		Role:     "student",
		BatchID:  &b2.ID,
	})

	// Step 3: the teacher sees the B1 student without fees
	teacherToken := login(t, app, "tara@example.com", "teacher-pass")
	resp = call(t, app, http.MethodGet, "/api/v1/users/profile/"+strconv.Itoa(int(student.ID)), teacherToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var viewed envelope[dto.UserResponse]
	decode(t, resp, &viewed)
	require.NotNil(t, viewed.Data.Student)
	require.Nil(t, viewed.Data.Student.TotalFee)
	require.Nil(t, viewed.Data.Student.PendingFee)

	// Step 4: the B2 roster is outside the teacher's assignment
	resp = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/batches/%d/students", b2.ID), teacherToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	var denied envelope[json.RawMessage]
	decode(t, resp, &denied)
	require.Equal(t, "batch_not_assigned", denied.Code)

	// Step 5: students cannot search
	studentToken := login(t, app, "sara@example.com", "student-pass")
	resp = call(t, app, http.MethodGet, "/api/v1/users/search", studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	decode(t, resp, &denied)
	require.Equal(t, "role_not_permitted", denied.Code)

	// Step 6: admin sees B1 fees
	resp = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/batches/%d/fees", b1.ID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var fees envelope[dto.BatchFeesResponse]
	decode(t, resp, &fees)
	require.Equal(t, 10000.0, fees.Data.TotalPending)

	// Step 7: logout revokes the teacher token
	resp = call(t, app, http.MethodPost, "/api/v1/auth/logout", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = call(t, app, http.MethodGet, "/api/v1/auth/profile", teacherToken, nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Step 8: the audit trail lists the admin's writes
	resp = call(t, app, http.MethodGet, "/api/v1/admin/activity?action=user.registered", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activity envelope[json.RawMessage]
	decode(t, resp, &activity)
	require.True(t, activity.Success)
}

func TestOperationalEndpoints(t *testing.T) {
	app := setupApp(t)

	resp := call(t, app, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))
	var health envelope[handler.HealthResponse]
	decode(t, resp, &health)
	require.Equal(t, "ok", health.Data.Status)
	require.Equal(t, "ok", health.Data.Checks["redis"])

	resp = call(t, app, http.MethodGet, "/api/v1/users/search", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "api_requests_total")
}
