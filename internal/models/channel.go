package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a linear FAST channel entity
type Channel struct {
	ID              uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	Name            string     `json:"name" gorm:"type:text;not null;column:name" validate:"required,min=1,max=255"`
	Description     *string    `json:"description,omitempty" gorm:"type:text;column:description"`
	ScheduleStart   *time.Time `json:"schedule_start,omitempty" gorm:"type:datetime;column:schedule_start"`
	ScheduleSynced  bool       `json:"schedule_synced" gorm:"type:integer;not null;default:0;column:schedule_synced"`
	LastWebhookCall *time.Time `json:"last_webhook_call,omitempty" gorm:"type:datetime;column:last_webhook_call"`
	CreatedAt       time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewChannel creates a new Channel with generated UUID and timestamps
func NewChannel(name string, scheduleStart *time.Time) *Channel {
	now := time.Now().UTC()
	return &Channel{
		ID:            uuid.New(),
		Name:          name,
		ScheduleStart: scheduleStart,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
