package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VOD represents a video-on-demand asset that can be scheduled onto channels.
// DurationMs is the single scheduling input; the preroll fields are overlay
// metadata surfaced to the playout engine and never enter timeline arithmetic.
type VOD struct {
	ID                uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Title             string    `json:"title" gorm:"type:text;not null;column:title" validate:"required"`
	HlsURL            string    `json:"hls_url" gorm:"type:text;not null;column:hls_url" validate:"required"`
	DurationMs        int64     `json:"duration_ms" gorm:"type:integer;not null;column:duration_ms" validate:"required,gt=0"`
	PrerollURL        *string   `json:"preroll_url,omitempty" gorm:"type:text;column:preroll_url"`
	PrerollDurationMs *int64    `json:"preroll_duration_ms,omitempty" gorm:"type:integer;column:preroll_duration_ms"`
	CreatedAt         time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewVOD creates a new VOD with generated UUID and timestamps
func NewVOD(title, hlsURL string, durationMs int64) *VOD {
	now := time.Now().UTC()
	return &VOD{
		ID:         uuid.New(),
		Title:      title,
		HlsURL:     hlsURL,
		DurationMs: durationMs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Duration returns the asset duration as a time.Duration
func (v *VOD) Duration() time.Duration {
	return time.Duration(v.DurationMs) * time.Millisecond
}

// DurationString returns duration in HH:MM:SS format
func (v *VOD) DurationString() string {
	secs := v.DurationMs / 1000
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
