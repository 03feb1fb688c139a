package models

import "time"

// Fee payment defaults applied to manual entries.
const (
	FeePaymentStatusCompleted = "completed"
	FeePaymentGatewayManual   = "manual"
	DefaultCurrency           = "INR"
)

// FeePayment is an append-only record of money received from a student.
type FeePayment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"index;not null" json:"student_id"`
	Amount         float64   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method         string    `gorm:"size:32" json:"method"`
	TransactionID  string    `gorm:"size:64;uniqueIndex;not null" json:"transaction_id"`
	Status         string    `gorm:"size:32;not null" json:"status"`
	Currency       string    `gorm:"size:8;not null" json:"currency"`
	CreatedByID    *uint     `json:"created_by_id"`
	Memo           string    `gorm:"size:255" json:"memo"`
	PaymentGateway string    `gorm:"size:32" json:"payment_gateway"`
	CreatedAt      time.Time `json:"created_at"`
}
