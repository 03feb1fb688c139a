package dto

import (
	"time"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

// StandardCreateRequest creates a fee tier.
type StandardCreateRequest struct {
	Name string  `json:"name" validate:"required,min=1,max=128"`
	Fee  float64 `json:"fee" validate:"gte=0"`
}

// StandardResponse serializes a standard.
type StandardResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Fee       float64   `json:"fee"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStandardResponse converts a standard into a DTO.
func NewStandardResponse(standard models.Standard) StandardResponse {
	return StandardResponse{
		ID:        standard.ID,
		Name:      standard.Name,
		Fee:       standard.Fee,
		CreatedAt: standard.CreatedAt,
	}
}

// BatchCreateRequest creates a batch under a standard.
type BatchCreateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=128"`
	StandardID uint   `json:"standard_id" validate:"required"`
	StartTime  string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime    string `json:"end_time" validate:"omitempty,datetime=15:04"`
}

// BatchResponse serializes a batch.
type BatchResponse struct {
	ID         uint              `json:"id"`
	Name       string            `json:"name"`
	StandardID uint              `json:"standard_id"`
	Standard   *StandardResponse `json:"standard,omitempty"`
	StartTime  string            `json:"start_time"`
	EndTime    string            `json:"end_time"`
}

// NewBatchResponse converts a batch into a DTO.
func NewBatchResponse(batch models.Batch) BatchResponse {
	resp := BatchResponse{
		ID:         batch.ID,
		Name:       batch.Name,
		StandardID: batch.StandardID,
		StartTime:  batch.StartTime,
		EndTime:    batch.EndTime,
	}
	if batch.Standard != nil {
		standard := NewStandardResponse(*batch.Standard)
		resp.Standard = &standard
	}
	return resp
}

// NewBatchResponses converts batches into DTOs.
func NewBatchResponses(batches []models.Batch) []BatchResponse {
	responses := make([]BatchResponse, 0, len(batches))
	for _, batch := range batches {
		responses = append(responses, NewBatchResponse(batch))
	}
	return responses
}

// BatchFeeEntry is one student's fee position within a batch.
type BatchFeeEntry struct {
	UserID     uint    `json:"user_id"`
	Name       string  `json:"name"`
	StudentID  string  `json:"student_id"`
	Status     string  `json:"status"`
	TotalFee   float64 `json:"total_fee"`
	PendingFee float64 `json:"pending_fee"`
	Discount   float64 `json:"discount"`
}

// BatchFeesResponse summarises pending fees for a batch.
type BatchFeesResponse struct {
	Batch        BatchResponse   `json:"batch"`
	Students     []BatchFeeEntry `json:"students"`
	TotalPending float64         `json:"total_pending"`
}

// NewBatchFeesResponse builds the fee summary for the batch's students.
func NewBatchFeesResponse(batch models.Batch, students []models.User) BatchFeesResponse {
	resp := BatchFeesResponse{Batch: NewBatchResponse(batch), Students: make([]BatchFeeEntry, 0, len(students))}
	for _, user := range students {
		if user.Student == nil {
			continue
		}
		resp.Students = append(resp.Students, BatchFeeEntry{
			UserID:     user.ID,
			Name:       user.Name,
			StudentID:  user.Student.StudentID,
			Status:     string(user.Status),
			TotalFee:   user.Student.TotalFee,
			PendingFee: user.Student.PendingFee,
			Discount:   user.Student.Discount,
		})
		resp.TotalPending += user.Student.PendingFee
	}
	return resp
}
