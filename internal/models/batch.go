package models

import "time"

// Standard is a grade/fee tier referenced by batches.
type Standard struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Fee       float64   `gorm:"type:numeric(12,2);not null" json:"fee"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Batch is a cohort of students associated with a standard.
type Batch struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	StandardID uint      `gorm:"index;not null" json:"standard_id"`
	Standard   *Standard `json:"standard,omitempty"`
	StartTime  string    `gorm:"size:5" json:"start_time"`
	EndTime    string    `gorm:"size:5" json:"end_time"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
