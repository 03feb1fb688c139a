package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/dto"
	"github.com/noah-isme/coaching-center-api/internal/events"
	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return dto.AdminActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered []events.UserRegistered
	changed    []events.UserStatusChanged
}

func (p *recordingPublisher) UserRegistered(_ context.Context, event events.UserRegistered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) UserStatusChanged(_ context.Context, event events.UserStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return nil
}

func openServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// directory is a seeded coaching center: two batches, one teacher assigned to
// the first, an admin and three students.
type directory struct {
	db        *gorm.DB
	users     repository.UserRepository
	batches   repository.BatchRepository
	payments  repository.FeePaymentRepository
	activity  *stubActivityRecorder
	publisher *recordingPublisher
	storage   *storageStub

	userService  UserService
	batchService BatchService

	b1, b2    models.Batch
	admin     models.User
	teacher   models.User
	student   models.User
	other     models.User
	suspended models.User
}

func newDirectory(t *testing.T) *directory {
	t.Helper()
	db := openServiceDB(t)
	d := &directory{
		db:        db,
		users:     repository.NewUserRepository(db),
		batches:   repository.NewBatchRepository(db),
		payments:  repository.NewFeePaymentRepository(db),
		activity:  &stubActivityRecorder{},
		publisher: &recordingPublisher{},
		storage:   &storageStub{},
	}
	ctx := context.Background()

	d.b1 = d.seedBatch(t, "Morning", 12000)
	d.b2 = d.seedBatch(t, "Evening", 9000)

	d.admin = d.seedUser(t, &models.User{
		Name: "Asha Admin", Email: "admin@example.com", PasswordHash: "hash",
		Role: models.RoleAdmin, Status: models.StatusActive,
		Staff: &models.StaffProfile{StaffID: "10000001"},
	}, nil)
	d.teacher = d.seedUser(t, &models.User{
		Name: "Tariq Teacher", Email: "teacher@example.com", PasswordHash: "hash",
		Role: models.RoleTeacher, Status: models.StatusActive,
		Staff: &models.StaffProfile{StaffID: "10000002", Subjects: []string{"Maths"}},
	}, []uint{d.b1.ID})
	d.student = d.seedUser(t, d.newStudent("Sara Student", "20000001", d.b1.ID, models.StatusActive, 40, 30), nil)
	d.other = d.seedUser(t, d.newStudent("Omar Other", "20000002", d.b2.ID, models.StatusActive, 90, 90), nil)
	d.suspended = d.seedUser(t, d.newStudent("Sam Suspended", "20000003", d.b1.ID, models.StatusSuspended, 99, 99), nil)

	require.NoError(t, d.payments.Create(ctx, &models.FeePayment{
		StudentID: d.student.ID, Amount: 2000, Method: "cash", TransactionID: uuid.NewString(),
		Status: models.FeePaymentStatusCompleted, Currency: models.DefaultCurrency, Memo: "Advance Fee Payment",
	}))

	uploader := NewImageUploader(d.storage, 5, testLogger())
	d.userService = NewUserService(d.users, d.batches, d.payments, uploader, d.publisher, d.activity, newValidator(), testLogger())
	d.batchService = NewBatchService(d.batches, d.users, d.activity, newValidator(), testLogger())
	return d
}

func (d *directory) seedBatch(t *testing.T, name string, fee float64) models.Batch {
	t.Helper()
	ctx := context.Background()
	standard := models.Standard{Name: "Standard " + name, Fee: fee}
	require.NoError(t, d.batches.CreateStandard(ctx, &standard))
	batch := models.Batch{Name: name, StandardID: standard.ID, StartTime: "09:00", EndTime: "11:00"}
	require.NoError(t, d.batches.CreateBatch(ctx, &batch))
	return batch
}

func (d *directory) newStudent(name, studentID string, batchID uint, status models.Status, test, attendance float64) *models.User {
	return &models.User{
		Name:         name,
		Email:        studentID + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		Status:       status,
		Student: &models.StudentProfile{
			StudentID:       studentID,
			BatchID:         &batchID,
			TotalFee:        12000,
			PendingFee:      10000,
			Discount:        0,
			TestScore:       test,
			AttendanceScore: attendance,
		},
	}
}

func (d *directory) seedUser(t *testing.T, user *models.User, teacherBatches []uint) models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.users.Create(ctx, user, teacherBatches, nil))
	stored, err := d.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	return stored
}

func (d *directory) adminActor() ActivityActor {
	return ActivityActor{ID: d.admin.ID, Role: string(models.RoleAdmin)}
}

func requireDenied(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	var deniedErr *AccessDeniedError
	require.ErrorAs(t, err, &deniedErr)
	require.Equal(t, reason, string(deniedErr.Reason()))
}

func ptrString(v string) *string {
	return &v
}
