package playout

import (
	"context"
	"fmt"
	"time"

	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/lumen-tv/lumen/internal/schedule"
)

// SyncCoordinator reconciles a channel's nominal schedule start with the
// instant of the first real poll from the playout engine. An administrator
// may set a future start before the engine is provisioned; the engine may
// come up late, or the administrator's clock may be skewed. Anchoring to the
// first poll keeps the published schedule truthful relative to actual air
// time.
type SyncCoordinator struct {
	repos    *db.Repositories
	schedule *schedule.Service
}

// NewSyncCoordinator creates a new sync coordinator instance
func NewSyncCoordinator(repos *db.Repositories, scheduleService *schedule.Service) *SyncCoordinator {
	return &SyncCoordinator{
		repos:    repos,
		schedule: scheduleService,
	}
}

// MaybeSyncOnFirstPoll runs before resolution on every poll. On the first
// poll of an epoch (scheduleSynced false, a nominal start set) it moves the
// anchor to now, rebalances the whole timeline and marks the channel
// synced; it fires again only after an administrator sets a new schedule
// start. Every poll records lastWebhookCall.
func (s *SyncCoordinator) MaybeSyncOnFirstPoll(ctx context.Context, ch *models.Channel, now time.Time) error {
	if !ch.ScheduleSynced && ch.ScheduleStart != nil {
		logger.Log.Info().
			Str("channel_id", ch.ID.String()).
			Time("nominal_start", *ch.ScheduleStart).
			Time("actual_start", now).
			Msg("First poll observed, syncing schedule start to air time")

		if err := s.schedule.SyncScheduleStart(ctx, ch.ID, now); err != nil {
			return fmt.Errorf("failed to sync schedule start: %w", err)
		}
		ch.ScheduleStart = &now
		ch.ScheduleSynced = true
	}

	if err := s.repos.Channels.TouchWebhook(ctx, ch.ID, now); err != nil {
		return fmt.Errorf("failed to record webhook call: %w", err)
	}
	ch.LastWebhookCall = &now

	return nil
}
