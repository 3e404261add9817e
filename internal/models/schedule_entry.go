package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleEntry represents one slot on a channel's timeline. Position defines
// playout order within the channel; ScheduledStart/ScheduledEnd are the
// timeline interval computed for the referenced VOD at insertion or rebalance
// time. Inactive entries are retained but skipped by resolution and
// rebalancing.
type ScheduleEntry struct {
	ID             uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID      uuid.UUID `json:"channel_id" gorm:"type:text;not null;column:channel_id" validate:"required"`
	VODID          uuid.UUID `json:"vod_id" gorm:"type:text;not null;column:vod_id" validate:"required"`
	Position       int       `json:"position" gorm:"type:integer;not null;column:position" validate:"gt=0"`
	ScheduledStart time.Time `json:"scheduled_start" gorm:"type:datetime;not null;column:scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end" gorm:"type:datetime;not null;column:scheduled_end"`
	IsActive       bool      `json:"is_active" gorm:"type:integer;not null;default:1;column:is_active"`
	CreatedAt      time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`

	// Populated by joins, not stored in database
	VOD *VOD `json:"vod,omitempty" gorm:"-"`
}

// NewScheduleEntry creates a new ScheduleEntry with generated UUID and timestamp
func NewScheduleEntry(channelID, vodID uuid.UUID, position int, start, end time.Time) *ScheduleEntry {
	return &ScheduleEntry{
		ID:             uuid.New(),
		ChannelID:      channelID,
		VODID:          vodID,
		Position:       position,
		ScheduledStart: start,
		ScheduledEnd:   end,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
}

// Contains reports whether t falls within the entry's scheduled interval.
// Both bounds are inclusive: an instant exactly on a boundary matches the
// entry on either side of it, and callers break the tie by earliest start.
func (e *ScheduleEntry) Contains(t time.Time) bool {
	return !t.Before(e.ScheduledStart) && !t.After(e.ScheduledEnd)
}
