package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/models"
)

// VODRepository handles database operations for VOD assets
type VODRepository struct {
	db *DB
}

// NewVODRepository creates a new VOD repository
func NewVODRepository(db *DB) *VODRepository {
	return &VODRepository{db: db}
}

// Create inserts a new VOD into the database
func (r *VODRepository) Create(ctx context.Context, vod *models.VOD) error {
	result := r.db.WithContext(ctx).Create(vod)
	if result.Error != nil {
		return fmt.Errorf("failed to create vod: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a VOD by its UUID
func (r *VODRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VOD, error) {
	var vod models.VOD
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&vod)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &vod, nil
}

// List retrieves all VODs with pagination
func (r *VODRepository) List(ctx context.Context, limit, offset int) ([]*models.VOD, error) {
	var vods []*models.VOD
	query := r.db.WithContext(ctx).Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	result := query.Find(&vods)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list vods: %w", MapGormError(result.Error))
	}
	return vods, nil
}

// Count returns the total number of VODs
func (r *VODRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.VOD{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count vods: %w", MapGormError(result.Error))
	}
	return count, nil
}

// Update updates an existing VOD
// Note: Uses map-based updates to support setting fields to zero values
func (r *VODRepository) Update(ctx context.Context, vod *models.VOD) error {
	vod.UpdatedAt = time.Now().UTC()

	updates := map[string]interface{}{
		"title":               vod.Title,
		"hls_url":             vod.HlsURL,
		"duration_ms":         vod.DurationMs,
		"preroll_url":         vod.PrerollURL,
		"preroll_duration_ms": vod.PrerollDurationMs,
		"updated_at":          vod.UpdatedAt,
	}

	result := r.db.WithContext(ctx).Model(&models.VOD{}).Where("id = ?", vod.ID.String()).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update vod: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a VOD by its UUID
func (r *VODRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.VOD{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete vod: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
