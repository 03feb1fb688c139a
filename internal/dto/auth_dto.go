package dto

import "time"

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// RegisterRequest creates a user of any role. Student and staff fields are
// only read for the matching role.
type RegisterRequest struct {
	Name                   string `json:"name" validate:"required,min=2,max=255"`
	Email                  string `json:"email" validate:"required,email,max=255"`
	Password               string `json:"password" validate:"required,min=8,max=72"`
	Role                   string `json:"role" validate:"required,oneof=admin teacher student"`
	Status                 string `json:"status" validate:"omitempty,max=32"`
	Address                string `json:"address" validate:"omitempty,max=512"`
	PersonalContactNumber  string `json:"personal_contact_number" validate:"omitempty,max=32"`
	EmergencyContactNumber string `json:"emergency_contact_number" validate:"omitempty,max=32"`
	DateOfBirth            string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender                 string `json:"gender" validate:"omitempty,max=16"`

	BatchID                *uint   `json:"batch_id"`
	Discount               float64 `json:"discount" validate:"gte=0"`
	PaidFee                float64 `json:"paid_fee" validate:"gte=0"`
	PaymentMethod          string  `json:"payment_method" validate:"omitempty,max=32"`
	ParentName             string  `json:"parent_name" validate:"omitempty,max=255"`
	ParentContactNumber    string  `json:"parent_contact_number" validate:"omitempty,max=32"`
	RelationshipToGuardian string  `json:"relationship_to_guardian" validate:"omitempty,max=64"`

	Salary         float64  `json:"salary" validate:"gte=0"`
	SalaryType     string   `json:"salary_type" validate:"omitempty,max=32"`
	Subjects       []string `json:"subjects" validate:"omitempty,dive,required,max=64"`
	TeacherBatches []uint   `json:"teacher_batches"`
}

// StatusUpdateRequest changes a user's lifecycle status.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}
