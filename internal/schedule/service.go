package schedule

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
	"gorm.io/gorm"
)

// Service handles business logic for schedule operations: insertion,
// rebalancing and re-anchoring of channel timelines
type Service struct {
	db      *db.DB
	repos   *db.Repositories
	metrics *metrics.Metrics
	locks   *channelLocks
}

// NewService creates a new schedule service instance
func NewService(database *db.DB, repos *db.Repositories, m *metrics.Metrics) *Service {
	return &Service{
		db:      database,
		repos:   repos,
		metrics: m,
		locks:   newChannelLocks(),
	}
}

// AddOptions controls how a new entry is placed on the timeline.
// BackToBack placement may still pin the anchor with Start; explicit
// placement requires both Start and End and persists them verbatim, with no
// duration check against the asset. That permissiveness is deliberate:
// manual scheduling exists to allow intentional overrides, overlaps
// included.
type AddOptions struct {
	Start      *time.Time
	End        *time.Time
	Position   *int
	BackToBack bool
}

// AddToSchedule computes placement for a VOD on a channel timeline and
// persists the resulting entry
func (s *Service) AddToSchedule(ctx context.Context, channelID, vodID uuid.UUID, opts AddOptions) (*models.ScheduleEntry, error) {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	vod, err := s.repos.VODs.GetByID(ctx, vodID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrVODNotFound
		}
		return nil, fmt.Errorf("failed to get vod: %w", err)
	}
	if vod.DurationMs <= 0 {
		return nil, fmt.Errorf("%w: vod duration must be positive", ErrInvalidInput)
	}

	maxPosition, err := s.repos.Schedule.MaxPosition(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max position: %w", err)
	}

	var start, end time.Time
	position := maxPosition + 1

	if opts.BackToBack {
		last, err := s.repos.Schedule.LastScheduled(ctx, channelID)
		if err != nil && !db.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get last scheduled entry: %w", err)
		}
		insertion := ComputeInsertion(ch, vod, last, maxPosition, opts.Start, time.Now().UTC())
		start = insertion.ScheduledStart
		end = insertion.ScheduledEnd
		position = insertion.Position
	} else {
		if opts.Start == nil || opts.End == nil {
			return nil, fmt.Errorf("%w: explicit scheduling requires both start and end", ErrInvalidInput)
		}
		start = opts.Start.UTC()
		end = opts.End.UTC()
	}

	if opts.Position != nil {
		position = *opts.Position
	}
	if position < 1 {
		return nil, fmt.Errorf("%w: position must be positive", ErrInvalidInput)
	}

	entry := models.NewScheduleEntry(channelID, vodID, position, start, end)
	if err := s.repos.Schedule.Create(ctx, entry); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("vod_id", vodID.String()).
			Msg("Failed to create schedule entry")
		return nil, fmt.Errorf("failed to create schedule entry: %w", err)
	}
	entry.VOD = vod
	s.metrics.IncScheduleInserts()

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Str("vod_id", vodID.String()).
		Int("position", entry.Position).
		Time("scheduled_start", entry.ScheduledStart).
		Time("scheduled_end", entry.ScheduledEnd).
		Bool("back_to_back", opts.BackToBack).
		Msg("Schedule entry created")

	return entry, nil
}

// Rebalance recomputes start/end for every active entry at or after
// fromPosition so the timeline is contiguous. Idempotent; a no-op when the
// range is empty. This is the single source of truth for "no gaps" -
// administrative rebalances and the playout loop-back path both land here.
func (s *Service) Rebalance(ctx context.Context, channelID uuid.UUID, fromPosition int) error {
	if fromPosition < 1 {
		fromPosition = 1
	}

	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	return s.rebalanceLocked(ctx, ch, fromPosition)
}

// rebalanceLocked is Rebalance without locking; callers hold the channel lock
func (s *Service) rebalanceLocked(ctx context.Context, ch *models.Channel, fromPosition int) error {
	entries, err := s.repos.Schedule.GetActiveFrom(ctx, ch.ID, fromPosition)
	if err != nil {
		return fmt.Errorf("failed to load schedule entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	anchor, err := s.rebalanceAnchor(ctx, ch, fromPosition)
	if err != nil {
		return err
	}

	RetimeSequence(entries, anchor)

	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repos.Schedule.UpdateTimesTx(tx, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to persist rebalanced entries: %w", err)
	}
	s.metrics.IncRebalances()

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Int("from_position", fromPosition).
		Int("entries", len(entries)).
		Time("anchor", anchor).
		Msg("Schedule rebalanced")

	return nil
}

// rebalanceAnchor determines the instant the retimed run starts from:
// the channel anchor (or now) for a full rebalance, otherwise the end of
// the entry immediately preceding fromPosition.
func (s *Service) rebalanceAnchor(ctx context.Context, ch *models.Channel, fromPosition int) (time.Time, error) {
	if fromPosition == 1 {
		if ch.ScheduleStart != nil {
			return ch.ScheduleStart.UTC(), nil
		}
		return time.Now().UTC(), nil
	}

	previous, err := s.repos.Schedule.GetByPosition(ctx, ch.ID, fromPosition-1)
	if err != nil {
		if db.IsNotFound(err) {
			return time.Now().UTC(), nil
		}
		return time.Time{}, fmt.Errorf("failed to get preceding entry: %w", err)
	}
	return previous.ScheduledEnd, nil
}

// SetScheduleStart moves a channel's nominal schedule start and retimes the
// whole timeline from it. The first-poll sync is re-armed: the next webhook
// poll will reconcile this nominal start with the actual playout instant.
func (s *Service) SetScheduleStart(ctx context.Context, channelID uuid.UUID, newStart time.Time) error {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	return s.reanchorLocked(ctx, ch, newStart.UTC(), false)
}

// SyncScheduleStart reconciles the channel's schedule start with the actual
// first-poll instant and marks the channel synced so it happens at most once
// per epoch
func (s *Service) SyncScheduleStart(ctx context.Context, channelID uuid.UUID, now time.Time) error {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	// Callers decide to sync from a channel snapshot read outside this
	// lock. Re-check under the lock so concurrent polls cannot move the
	// anchor twice in one epoch.
	if ch.ScheduleSynced {
		return nil
	}

	return s.reanchorLocked(ctx, ch, now.UTC(), true)
}

// ReanchorForLoop restarts an exhausted timeline at now, preserving the
// channel's sync state. Invoked by playout resolution when every active
// entry has already ended.
func (s *Service) ReanchorForLoop(ctx context.Context, channelID uuid.UUID, now time.Time) error {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	return s.reanchorLocked(ctx, ch, now.UTC(), ch.ScheduleSynced)
}

// reanchorLocked updates the channel anchor and retimes every active entry
// from it in a single transaction, so a crash cannot leave a moved anchor
// with stale entry times
func (s *Service) reanchorLocked(ctx context.Context, ch *models.Channel, anchor time.Time, synced bool) error {
	entries, err := s.repos.Schedule.GetActiveFrom(ctx, ch.ID, 1)
	if err != nil {
		return fmt.Errorf("failed to load schedule entries: %w", err)
	}

	RetimeSequence(entries, anchor)

	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repos.Channels.SetScheduleAnchorTx(tx, ch.ID, &anchor, synced); err != nil {
			return err
		}
		if len(entries) > 0 {
			return s.repos.Schedule.UpdateTimesTx(tx, entries)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to re-anchor schedule: %w", err)
	}
	s.metrics.IncRebalances()

	ch.ScheduleStart = &anchor
	ch.ScheduleSynced = synced

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Time("anchor", anchor).
		Bool("synced", synced).
		Int("entries", len(entries)).
		Msg("Schedule re-anchored")

	return nil
}

// GetSchedule returns a channel's full timeline ordered by position, with
// VOD data attached
func (s *Service) GetSchedule(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleEntry, error) {
	if _, err := s.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return nil, channel.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	entries, err := s.repos.Schedule.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return entries, nil
}

// GetEntry retrieves a single schedule entry
func (s *Service) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.ScheduleEntry, error) {
	entry, err := s.repos.Schedule.GetByID(ctx, entryID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get schedule entry: %w", err)
	}
	return entry, nil
}

// UpdateEntry persists changes to an existing schedule entry. Times are
// stored exactly as given; contiguity is only restored by an explicit
// rebalance.
func (s *Service) UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	mu := s.locks.get(entry.ChannelID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repos.Schedule.Update(ctx, entry); err != nil {
		if db.IsNotFound(err) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to update schedule entry: %w", err)
	}

	logger.Log.Info().
		Str("entry_id", entry.ID.String()).
		Str("channel_id", entry.ChannelID.String()).
		Msg("Schedule entry updated")

	return nil
}

// RemoveEntry deletes a schedule entry. Remaining entries keep their times
// until an explicit rebalance closes the gap.
func (s *Service) RemoveEntry(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}

	mu := s.locks.get(entry.ChannelID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repos.Schedule.Delete(ctx, entryID); err != nil {
		if db.IsNotFound(err) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to delete schedule entry: %w", err)
	}

	logger.Log.Info().
		Str("entry_id", entryID.String()).
		Str("channel_id", entry.ChannelID.String()).
		Msg("Schedule entry removed")

	return nil
}

// ClearSchedule removes every entry from a channel's timeline. The channel
// anchor and sync state are left alone.
func (s *Service) ClearSchedule(ctx context.Context, channelID uuid.UUID) error {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if err := s.repos.Schedule.DeleteByChannelID(ctx, channelID); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Msg("Schedule cleared")

	return nil
}

// ReorderSchedule assigns new positions to the given entries. Times are left
// alone; callers follow up with Rebalance when they want the new order
// reflected in the timeline.
func (s *Service) ReorderSchedule(ctx context.Context, channelID uuid.UUID, items []db.ReorderItem) error {
	mu := s.locks.get(channelID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return channel.ErrChannelNotFound
		}
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if err := s.repos.Schedule.Reorder(ctx, channelID, items); err != nil {
		return fmt.Errorf("failed to reorder schedule: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Int("entries", len(items)).
		Msg("Schedule reordered")

	return nil
}
