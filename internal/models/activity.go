package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog records an administrative change to a user, batch or standard.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"index;not null" json:"actor_id"`
	ActorRole     string            `gorm:"size:16;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;index;not null" json:"action"`
	EntityType    string            `gorm:"size:32;not null" json:"entity_type"`
	EntityID      *uint             `json:"entity_id"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
