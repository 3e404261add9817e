package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/models"
	"gorm.io/gorm"
)

// ScheduleRepository handles database operations for schedule entries.
// It is the Timeline Store: an ordered, per-channel list of scheduled slots.
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ReorderItem represents a schedule entry position update
type ReorderItem struct {
	ID       uuid.UUID
	Position int
}

// Create inserts a new schedule entry into the database
func (r *ScheduleRepository) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	result := r.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to create schedule entry: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a schedule entry by its UUID
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&entry)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &entry, nil
}

// GetByChannelID retrieves all schedule entries for a channel ordered by
// position, with VOD data attached
func (r *ScheduleRepository) GetByChannelID(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleEntry, error) {
	var entries []*models.ScheduleEntry
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Order("position ASC").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get schedule entries by channel: %w", MapGormError(result.Error))
	}
	if err := r.attachVODs(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetActiveFrom retrieves active schedule entries with position >= fromPosition,
// ordered by position ascending, with VOD data attached. This is the
// rebalancer's working set.
func (r *ScheduleRepository) GetActiveFrom(ctx context.Context, channelID uuid.UUID, fromPosition int) ([]*models.ScheduleEntry, error) {
	var entries []*models.ScheduleEntry
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND is_active = ? AND position >= ?", channelID.String(), true, fromPosition).
		Order("position ASC").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get active schedule entries: %w", MapGormError(result.Error))
	}
	if err := r.attachVODs(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByPosition retrieves the entry at an exact position for a channel
func (r *ScheduleRepository) GetByPosition(ctx context.Context, channelID uuid.UUID, position int) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND position = ?", channelID.String(), position).
		First(&entry)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &entry, nil
}

// LastScheduled retrieves the entry with the latest scheduled end for a
// channel, breaking ties by the highest position. Back-to-back insertion
// anchors on this entry's end time.
func (r *ScheduleRepository) LastScheduled(ctx context.Context, channelID uuid.UUID) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Order("scheduled_end DESC, position DESC").
		First(&entry)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &entry, nil
}

// MaxPosition returns the highest position in use for a channel, 0 when the
// channel has no entries
func (r *ScheduleRepository) MaxPosition(ctx context.Context, channelID uuid.UUID) (int, error) {
	var max *int
	result := r.db.WithContext(ctx).Model(&models.ScheduleEntry{}).
		Where("channel_id = ?", channelID.String()).
		Select("MAX(position)").
		Scan(&max)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get max position: %w", MapGormError(result.Error))
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// Update updates an existing schedule entry
func (r *ScheduleRepository) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	updates := map[string]interface{}{
		"vod_id":          entry.VODID.String(),
		"position":        entry.Position,
		"scheduled_start": entry.ScheduledStart,
		"scheduled_end":   entry.ScheduledEnd,
		"is_active":       entry.IsActive,
	}

	result := r.db.WithContext(ctx).Model(&models.ScheduleEntry{}).
		Where("id = ?", entry.ID.String()).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule entry: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTimesTx rewrites scheduled start/end for each entry within an
// existing transaction. Positions are never touched here; retiming a
// timeline must be atomic so a poll never observes a half-rebalanced
// channel.
func (r *ScheduleRepository) UpdateTimesTx(tx *gorm.DB, entries []*models.ScheduleEntry) error {
	for _, entry := range entries {
		result := tx.Model(&models.ScheduleEntry{}).
			Where("id = ?", entry.ID.String()).
			Updates(map[string]interface{}{
				"scheduled_start": entry.ScheduledStart,
				"scheduled_end":   entry.ScheduledEnd,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to retime entry %s: %w", entry.ID, MapGormError(result.Error))
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("schedule entry %s not found: %w", entry.ID, ErrNotFound)
		}
	}
	return nil
}

// Delete deletes a schedule entry by its UUID
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.ScheduleEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule entry: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByChannelID deletes all schedule entries for a channel
func (r *ScheduleRepository) DeleteByChannelID(ctx context.Context, channelID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("channel_id = ?", channelID.String()).Delete(&models.ScheduleEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule entries by channel: %w", MapGormError(result.Error))
	}
	return nil
}

// Reorder updates positions for multiple schedule entries in a transaction
func (r *ScheduleRepository) Reorder(ctx context.Context, channelID uuid.UUID, items []ReorderItem) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, item := range items {
			result := tx.Model(&models.ScheduleEntry{}).
				Where("id = ? AND channel_id = ?", item.ID.String(), channelID.String()).
				Update("position", item.Position)
			if result.Error != nil {
				return fmt.Errorf("failed to update position for entry %s: %w", item.ID, MapGormError(result.Error))
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("schedule entry %s not found or does not belong to channel", item.ID)
			}
		}
		return nil
	})
}

// attachVODs populates the VOD field on each entry with a single lookup
func (r *ScheduleRepository) attachVODs(ctx context.Context, entries []*models.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]bool, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if !seen[entry.VODID] {
			seen[entry.VODID] = true
			ids = append(ids, entry.VODID)
		}
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	var vods []*models.VOD
	result := r.db.WithContext(ctx).Where("id IN ?", idStrings).Find(&vods)
	if result.Error != nil {
		return fmt.Errorf("failed to load vods for schedule entries: %w", MapGormError(result.Error))
	}

	byID := make(map[uuid.UUID]*models.VOD, len(vods))
	for _, v := range vods {
		byID[v.ID] = v
	}
	for _, entry := range entries {
		entry.VOD = byID[entry.VODID]
	}
	return nil
}
