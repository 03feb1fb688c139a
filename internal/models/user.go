package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role determines the access scope of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role carries a staff profile.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// ParseRole normalises user input into a Role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.Valid()
}

// Status is the lifecycle state of a user record.
type Status string

const (
	StatusActive     Status = "active"
	StatusPending    Status = "pending"
	StatusReEnrolled Status = "re-enrolled"
	StatusResigned   Status = "resigned"
	StatusSuspended  Status = "suspended"
	StatusWithdrawn  Status = "withdrawn"
	StatusAbsconded  Status = "absconded"
	StatusPostponed  Status = "postponed"
	StatusCompleted  Status = "completed"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []Status{
	StatusActive,
	StatusPending,
	StatusReEnrolled,
	StatusResigned,
	StatusSuspended,
	StatusWithdrawn,
	StatusAbsconded,
	StatusPostponed,
	StatusCompleted,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Enrolled reports whether the status allows login and visibility to teachers.
func (s Status) Enrolled() bool {
	return s == StatusActive || s == StatusReEnrolled
}

// ParseStatus normalises user input into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	return status, status.Valid()
}

// EnrolledStatuses are the statuses counted as currently enrolled.
var EnrolledStatuses = []Status{StatusActive, StatusReEnrolled}

// ErrRoleDetailsMismatch is returned when the role-specific profile does not match the role.
var ErrRoleDetailsMismatch = errors.New("role details do not match user role")

// User is the root identity record. Role-specific data lives in exactly one of
// Student or Staff.
type User struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	Name                   string          `gorm:"size:255;not null" json:"name"`
	Email                  string          `gorm:"size:255;uniqueIndex:idx_users_email_live,where:deleted_at IS NULL;not null" json:"email"`
	PasswordHash           string          `gorm:"size:255;not null" json:"-"`
	Role                   Role            `gorm:"size:16;index;not null" json:"role"`
	Status                 Status          `gorm:"size:32;index;not null" json:"status"`
	Address                string          `gorm:"size:512" json:"address"`
	ProfilePic             string          `gorm:"size:1024" json:"profile_pic"`
	PersonalContactNumber  string          `gorm:"size:32" json:"personal_contact_number"`
	EmergencyContactNumber string          `gorm:"size:32" json:"emergency_contact_number"`
	DateOfBirth            *time.Time      `json:"date_of_birth"`
	Gender                 string          `gorm:"size:16" json:"gender"`
	Student                *StudentProfile `gorm:"foreignKey:UserID" json:"student,omitempty"`
	Staff                  *StaffProfile   `gorm:"foreignKey:UserID" json:"staff,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	DeletedAt              gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ValidateRoleDetails checks that exactly the profile matching the role is populated.
func (u User) ValidateRoleDetails() error {
	switch u.Role {
	case RoleStudent:
		if u.Student == nil || u.Staff != nil {
			return ErrRoleDetailsMismatch
		}
	case RoleTeacher:
		if u.Staff == nil || u.Student != nil {
			return ErrRoleDetailsMismatch
		}
	case RoleAdmin:
		if u.Staff == nil || u.Student != nil {
			return ErrRoleDetailsMismatch
		}
		if len(u.Staff.Subjects) > 0 || len(u.Staff.Batches) > 0 {
			return ErrRoleDetailsMismatch
		}
	default:
		return ErrRoleDetailsMismatch
	}
	return nil
}

// BatchID returns the student's batch, if any.
func (u User) BatchID() *uint {
	if u.Student == nil {
		return nil
	}
	return u.Student.BatchID
}

// TeacherBatchIDs returns the batches assigned to a teacher.
func (u User) TeacherBatchIDs() []uint {
	if u.Staff == nil {
		return nil
	}
	ids := make([]uint, 0, len(u.Staff.Batches))
	for _, batch := range u.Staff.Batches {
		ids = append(ids, batch.ID)
	}
	return ids
}

// StudentProfile holds the fields only students carry.
type StudentProfile struct {
	ID                     uint      `gorm:"primaryKey" json:"-"`
	UserID                 uint      `gorm:"uniqueIndex;not null" json:"-"`
	StudentID              string    `gorm:"size:20;uniqueIndex;not null" json:"student_id"`
	BatchID                *uint     `gorm:"index" json:"batch_id"`
	Batch                  *Batch    `json:"batch,omitempty"`
	TotalFee               float64   `gorm:"type:numeric(12,2)" json:"total_fee"`
	PendingFee             float64   `gorm:"type:numeric(12,2)" json:"pending_fee"`
	Discount               float64   `gorm:"type:numeric(12,2)" json:"discount"`
	ParentName             string    `gorm:"size:255" json:"parent_name"`
	ParentContactNumber    string    `gorm:"size:32" json:"parent_contact_number"`
	RelationshipToGuardian string    `gorm:"size:64" json:"relationship_to_guardian"`
	TestScore              float64   `json:"test_score"`
	AttendanceScore        float64   `json:"attendance_score"`
	CreatedAt              time.Time `json:"-"`
	UpdatedAt              time.Time `json:"-"`
}

// StaffProfile holds the fields carried by teachers and admins. Subjects and
// Batches are teacher-only.
type StaffProfile struct {
	ID         uint                        `gorm:"primaryKey" json:"-"`
	UserID     uint                        `gorm:"uniqueIndex;not null" json:"-"`
	StaffID    string                      `gorm:"size:20;uniqueIndex;not null" json:"staff_id"`
	Salary     float64                     `gorm:"type:numeric(12,2)" json:"salary"`
	SalaryType string                      `gorm:"size:32" json:"salary_type"`
	Subjects   datatypes.JSONSlice[string] `gorm:"type:json" json:"subjects"`
	Batches    []Batch                     `gorm:"many2many:teacher_batches;" json:"batches,omitempty"`
	CreatedAt  time.Time                   `json:"-"`
	UpdatedAt  time.Time                   `json:"-"`
}
