package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-center-api/internal/identifier"
	"github.com/noah-isme/coaching-center-api/internal/models"
)

func TestSeedCreatesAdminAndStandardsOnce(t *testing.T) {
	f := newAuthFixture(t, nil, identifier.Config{})
	seeder := NewSeedService(f.service, f.batchService, testLogger())
	admin := AdminSeed{Name: "Root Admin", Email: "Root@Example.com", Password: "bootstrap-pass"}

	first, err := seeder.Seed(context.Background(), admin, []string{"Standard Morning", " Grade 9 ", ""})
	require.NoError(t, err)
	require.True(t, first.AdminCreated)
	require.Equal(t, "root@example.com", first.Admin.Email)
	require.Equal(t, string(models.RoleAdmin), first.Admin.Role)
	require.NotNil(t, first.Admin.Staff)
	require.Regexp(t, eightDigits, first.Admin.Staff.StaffID)
	require.Equal(t, 1, first.StandardsCreated)

	second, err := seeder.Seed(context.Background(), admin, []string{"Grade 9"})
	require.NoError(t, err)
	require.False(t, second.AdminCreated)
	require.Zero(t, second.StandardsCreated)

	require.Contains(t, f.activity.actions(), "user.registered")
	require.Contains(t, f.activity.actions(), "standard.created")
}

func TestSeedRequiresCredentials(t *testing.T) {
	f := newAuthFixture(t, nil, identifier.Config{})
	seeder := NewSeedService(f.service, f.batchService, testLogger())

	_, err := seeder.Seed(context.Background(), AdminSeed{Email: "root@example.com"}, nil)
	require.ErrorIs(t, err, ErrSeedIncomplete)
}
