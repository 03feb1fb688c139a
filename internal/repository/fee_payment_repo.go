package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

// FeePaymentRepository appends and lists fee payments. Payments are never
// edited once recorded.
type FeePaymentRepository interface {
	Create(ctx context.Context, payment *models.FeePayment) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.FeePayment, error)
}

type feePaymentRepository struct {
	db *gorm.DB
}

// NewFeePaymentRepository constructs the fee payment repository.
func NewFeePaymentRepository(db *gorm.DB) FeePaymentRepository {
	return &feePaymentRepository{db: db}
}

func (r *feePaymentRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *feePaymentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
