// Package playout answers the playout engine's one question: what should be
// airing on a channel right now. It resolves the current entry, falls
// forward to the next upcoming one, and loops the timeline back to the top
// when it has been exhausted.
package playout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/metrics"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/lumen-tv/lumen/internal/schedule"
)

// Resolver determines the on-air asset for a channel at an instant
type Resolver struct {
	repos    *db.Repositories
	schedule *schedule.Service
	metrics  *metrics.Metrics
}

// NewResolver creates a new playout resolver instance
func NewResolver(repos *db.Repositories, scheduleService *schedule.Service, m *metrics.Metrics) *Resolver {
	return &Resolver{
		repos:    repos,
		schedule: scheduleService,
		metrics:  m,
	}
}

// ResolveCurrent returns the playout descriptor for a channel at now.
// Resolution order over the channel's active entries: on-air, then next
// upcoming, then loop-back. Loop-back mutates persisted state - the channel
// anchor moves to now and the whole timeline is rebalanced - so a channel
// never stalls once its playlist finishes.
func (r *Resolver) ResolveCurrent(ctx context.Context, channelID uuid.UUID, now time.Time) (*AssetPlayout, error) {
	if _, err := r.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	entries, err := r.repos.Schedule.GetActiveFrom(ctx, channelID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule entries: %w", err)
	}
	if len(entries) == 0 {
		logger.Log.Warn().
			Str("channel_id", channelID.String()).
			Msg("Playout resolution failed: no active schedule entries")
		return nil, ErrNoSchedule
	}

	entry := SelectEntry(entries, now)
	if entry == nil {
		// Timeline exhausted: restart it at now and air the first position.
		r.metrics.IncLoopbacks()

		logger.Log.Info().
			Str("channel_id", channelID.String()).
			Time("now", now).
			Msg("Timeline exhausted, looping back to first position")

		if err := r.schedule.ReanchorForLoop(ctx, channelID, now); err != nil {
			return nil, fmt.Errorf("failed to loop schedule: %w", err)
		}

		entries, err = r.repos.Schedule.GetActiveFrom(ctx, channelID, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to reload schedule entries: %w", err)
		}
		if len(entries) == 0 {
			return nil, ErrNoSchedule
		}
		entry = entries[0]
	}

	if entry.VOD == nil {
		return nil, fmt.Errorf("schedule entry %s references missing vod %s", entry.ID, entry.VODID)
	}

	logger.Log.Debug().
		Str("channel_id", channelID.String()).
		Str("vod_id", entry.VODID.String()).
		Int("position", entry.Position).
		Time("scheduled_start", entry.ScheduledStart).
		Time("scheduled_end", entry.ScheduledEnd).
		Msg("Playout resolved")

	return newAssetPlayout(entry.VOD), nil
}

// SelectEntry picks the entry to air at now from active entries ordered by
// position. Pure selection, no I/O:
//
//  1. On-air: interval contains now, both bounds inclusive. Overlapping
//     intervals from manual scheduling are tolerated; the earliest start
//     wins.
//  2. Next upcoming: the smallest start strictly after now.
//  3. Neither: nil, meaning the timeline is exhausted and the caller should
//     loop.
func SelectEntry(entries []*models.ScheduleEntry, now time.Time) *models.ScheduleEntry {
	var onAir *models.ScheduleEntry
	for _, entry := range entries {
		if !entry.Contains(now) {
			continue
		}
		if onAir == nil || entry.ScheduledStart.Before(onAir.ScheduledStart) {
			onAir = entry
		}
	}
	if onAir != nil {
		return onAir
	}

	var next *models.ScheduleEntry
	for _, entry := range entries {
		if !entry.ScheduledStart.After(now) {
			continue
		}
		if next == nil || entry.ScheduledStart.Before(next.ScheduledStart) {
			next = entry
		}
	}
	return next
}
