package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedBatch(t *testing.T, db *gorm.DB, name string, fee float64) models.Batch {
	t.Helper()
	standard := models.Standard{Name: "Standard " + name, Fee: fee}
	require.NoError(t, db.Create(&standard).Error)
	batch := models.Batch{Name: name, StandardID: standard.ID, StartTime: "09:00", EndTime: "11:00"}
	require.NoError(t, db.Create(&batch).Error)
	return batch
}

func newStudent(name, studentID string, batchID uint, status models.Status) *models.User {
	return &models.User{
		Name:         name,
		Email:        studentID + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		Status:       status,
		Student: &models.StudentProfile{
			StudentID: studentID,
			BatchID:   &batchID,
			TotalFee:  1000,
		},
	}
}

func newTeacher(name, staffID string) *models.User {
	return &models.User{
		Name:         name,
		Email:        "staff-" + staffID + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleTeacher,
		Status:       models.StatusActive,
		Staff:        &models.StaffProfile{StaffID: staffID, Subjects: []string{"Physics"}},
	}
}
