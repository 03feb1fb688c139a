package dto

import (
	"time"

	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/policy"
)

// UserResponse is the serialized profile. Fee fields are nil when masked.
type UserResponse struct {
	ID                     uint            `json:"id"`
	Name                   string          `json:"name"`
	Email                  string          `json:"email"`
	Role                   string          `json:"role"`
	Status                 string          `json:"status"`
	Address                string          `json:"address"`
	ProfilePic             string          `json:"profile_pic"`
	PersonalContactNumber  string          `json:"personal_contact_number"`
	EmergencyContactNumber string          `json:"emergency_contact_number"`
	DateOfBirth            *time.Time      `json:"date_of_birth,omitempty"`
	Gender                 string          `json:"gender"`
	Student                *StudentDetails `json:"student,omitempty"`
	Staff                  *StaffDetails   `json:"staff,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// StudentDetails holds student-only fields.
type StudentDetails struct {
	StudentID              string         `json:"student_id"`
	BatchID                *uint          `json:"batch_id"`
	Batch                  *BatchResponse `json:"batch,omitempty"`
	TotalFee               *float64       `json:"total_fee,omitempty"`
	PendingFee             *float64       `json:"pending_fee,omitempty"`
	Discount               *float64       `json:"discount,omitempty"`
	ParentName             string         `json:"parent_name"`
	ParentContactNumber    string         `json:"parent_contact_number"`
	RelationshipToGuardian string         `json:"relationship_to_guardian"`
	TestScore              float64        `json:"test_score"`
	AttendanceScore        float64        `json:"attendance_score"`
}

// StaffDetails holds fields for teachers and admins.
type StaffDetails struct {
	StaffID    string          `json:"staff_id"`
	Salary     float64         `json:"salary"`
	SalaryType string          `json:"salary_type"`
	Subjects   []string        `json:"subjects"`
	Batches    []BatchResponse `json:"batches"`
}

// NewUserResponse converts a user into a DTO, dropping fields hidden by mask.
func NewUserResponse(user models.User, mask policy.Mask) UserResponse {
	resp := UserResponse{
		ID:                     user.ID,
		Name:                   user.Name,
		Email:                  user.Email,
		Role:                   string(user.Role),
		Status:                 string(user.Status),
		Address:                user.Address,
		ProfilePic:             user.ProfilePic,
		PersonalContactNumber:  user.PersonalContactNumber,
		EmergencyContactNumber: user.EmergencyContactNumber,
		DateOfBirth:            user.DateOfBirth,
		Gender:                 user.Gender,
		CreatedAt:              user.CreatedAt,
		UpdatedAt:              user.UpdatedAt,
	}

	if student := user.Student; student != nil {
		details := &StudentDetails{
			StudentID:              student.StudentID,
			BatchID:                student.BatchID,
			ParentName:             student.ParentName,
			ParentContactNumber:    student.ParentContactNumber,
			RelationshipToGuardian: student.RelationshipToGuardian,
			TestScore:              student.TestScore,
			AttendanceScore:        student.AttendanceScore,
		}
		if student.Batch != nil {
			batch := NewBatchResponse(*student.Batch)
			details.Batch = &batch
		}
		if !mask.Has(policy.MaskFees) {
			details.TotalFee = floatPtr(student.TotalFee)
			details.PendingFee = floatPtr(student.PendingFee)
			details.Discount = floatPtr(student.Discount)
		}
		resp.Student = details
	}

	if staff := user.Staff; staff != nil {
		details := &StaffDetails{
			StaffID:    staff.StaffID,
			Salary:     staff.Salary,
			SalaryType: staff.SalaryType,
			Subjects:   append([]string{}, staff.Subjects...),
			Batches:    make([]BatchResponse, 0, len(staff.Batches)),
		}
		for _, batch := range staff.Batches {
			details.Batches = append(details.Batches, NewBatchResponse(batch))
		}
		resp.Staff = details
	}

	return resp
}

// NewUserResponses converts a slice of users with the same mask.
func NewUserResponses(users []models.User, mask policy.Mask) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user, mask))
	}
	return responses
}

// UserUpdateRequest is a partial admin update. Nil fields are left untouched;
// an empty subjects or teacher_batches array clears the list.
type UserUpdateRequest struct {
	Name                   *string  `json:"name" validate:"omitempty,min=2,max=255"`
	Email                  *string  `json:"email" validate:"omitempty,email,max=255"`
	Password               *string  `json:"password" validate:"omitempty,min=8,max=72"`
	Address                *string  `json:"address" validate:"omitempty,max=512"`
	PersonalContactNumber  *string  `json:"personal_contact_number" validate:"omitempty,max=32"`
	EmergencyContactNumber *string  `json:"emergency_contact_number" validate:"omitempty,max=32"`
	DateOfBirth            *string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender                 *string  `json:"gender" validate:"omitempty,max=16"`
	BatchID                *uint    `json:"batch_id"`
	TotalFee               *float64 `json:"total_fee" validate:"omitempty,gte=0"`
	PendingFee             *float64 `json:"pending_fee" validate:"omitempty,gte=0"`
	Discount               *float64 `json:"discount" validate:"omitempty,gte=0"`
	ParentName             *string  `json:"parent_name" validate:"omitempty,max=255"`
	ParentContactNumber    *string  `json:"parent_contact_number" validate:"omitempty,max=32"`
	RelationshipToGuardian *string  `json:"relationship_to_guardian" validate:"omitempty,max=64"`
	TestScore              *float64 `json:"test_score" validate:"omitempty,gte=0"`
	AttendanceScore        *float64 `json:"attendance_score" validate:"omitempty,gte=0"`
	Salary                 *float64 `json:"salary" validate:"omitempty,gte=0"`
	SalaryType             *string  `json:"salary_type" validate:"omitempty,max=32"`
	Subjects               []string `json:"subjects" validate:"omitempty,dive,required,max=64"`
	TeacherBatches         []uint   `json:"teacher_batches"`
}

// UserSearchRequest holds raw query parameters for search and role listings.
type UserSearchRequest struct {
	Role      string
	Status    string
	BatchID   *uint
	Name      string
	Email     string
	StudentID string
	Query     string
	Page      int
	Limit     int
}

// UserSearchResponse is a page of users.
type UserSearchResponse struct {
	Items       []UserResponse `json:"items"`
	Total       int64          `json:"total"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
}

// LeaderboardEntry ranks a student by combined score.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	UserID          uint    `json:"user_id"`
	Name            string  `json:"name"`
	StudentID       string  `json:"student_id"`
	BatchID         *uint   `json:"batch_id"`
	TestScore       float64 `json:"test_score"`
	AttendanceScore float64 `json:"attendance_score"`
	TotalScore      float64 `json:"total_score"`
}

// NewLeaderboard ranks users in the order given.
func NewLeaderboard(users []models.User) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entry := LeaderboardEntry{Rank: i + 1, UserID: user.ID, Name: user.Name}
		if user.Student != nil {
			entry.StudentID = user.Student.StudentID
			entry.BatchID = user.Student.BatchID
			entry.TestScore = user.Student.TestScore
			entry.AttendanceScore = user.Student.AttendanceScore
			entry.TotalScore = user.Student.TestScore + user.Student.AttendanceScore
		}
		entries = append(entries, entry)
	}
	return entries
}

// FeePaymentResponse serializes a fee payment.
type FeePaymentResponse struct {
	ID             uint      `json:"id"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"`
	TransactionID  string    `json:"transaction_id"`
	Status         string    `json:"status"`
	Currency       string    `json:"currency"`
	Memo           string    `json:"memo"`
	PaymentGateway string    `json:"payment_gateway"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewFeePaymentResponses converts payments into DTOs.
func NewFeePaymentResponses(payments []models.FeePayment) []FeePaymentResponse {
	responses := make([]FeePaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, FeePaymentResponse{
			ID:             payment.ID,
			Amount:         payment.Amount,
			Method:         payment.Method,
			TransactionID:  payment.TransactionID,
			Status:         payment.Status,
			Currency:       payment.Currency,
			Memo:           payment.Memo,
			PaymentGateway: payment.PaymentGateway,
			CreatedAt:      payment.CreatedAt,
		})
	}
	return responses
}

func floatPtr(v float64) *float64 {
	return &v
}
