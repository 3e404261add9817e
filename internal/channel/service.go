package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/models"
)

// MatchKind reports which lookup tier resolved a channel reference.
type MatchKind string

const (
	// MatchID means the reference parsed as a channel UUID
	MatchID MatchKind = "id"
	// MatchName means the reference equals a stored channel name exactly
	MatchName MatchKind = "name"
	// MatchAlias means the reference equals a channel name lowercased with
	// non-alphanumerics stripped, the normalization external playout engines
	// apply to instance names
	MatchAlias MatchKind = "alias"
)

// Service handles business logic for channel operations
type Service struct {
	repos *db.Repositories
}

// NewService creates a new channel service instance
func NewService(repos *db.Repositories) *Service {
	return &Service{
		repos: repos,
	}
}

// CreateChannel creates a new channel with validation
func (s *Service) CreateChannel(ctx context.Context, name string, description *string, scheduleStart *time.Time) (*models.Channel, error) {
	// Validate name uniqueness
	if err := s.validateNameUniqueness(ctx, name, uuid.Nil); err != nil {
		logger.Log.Warn().
			Str("name", name).
			Msg("Channel creation failed: duplicate name")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	ch := models.NewChannel(name, normalizeStart(scheduleStart))
	ch.Description = description

	if err := s.repos.Channels.Create(ctx, ch); err != nil {
		logger.Log.Error().
			Err(err).
			Str("name", name).
			Msg("Failed to create channel in database")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Str("name", ch.Name).
		Msg("Channel created successfully")

	return ch, nil
}

// GetByID retrieves a channel by its ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	ch, err := s.repos.Channels.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to get channel by ID")
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

// List retrieves all channels
func (s *Service) List(ctx context.Context) ([]*models.Channel, error) {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	return channels, nil
}

// UpdateChannel updates channel metadata with validation. Schedule anchor
// changes go through the schedule service, which retimes the timeline and
// re-arms the first-poll sync.
func (s *Service) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	// Load existing channel
	existing, err := s.GetByID(ctx, ch.ID)
	if err != nil {
		return err
	}

	// Validate name uniqueness if name changed
	if !strings.EqualFold(existing.Name, ch.Name) {
		if err := s.validateNameUniqueness(ctx, ch.Name, ch.ID); err != nil {
			logger.Log.Warn().
				Str("channel_id", ch.ID.String()).
				Str("name", ch.Name).
				Msg("Channel update failed: duplicate name")
			return fmt.Errorf("failed to update channel: %w", err)
		}
	}

	if err := s.repos.Channels.Update(ctx, ch); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", ch.ID.String()).
			Msg("Failed to update channel in database")
		return fmt.Errorf("failed to update channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", ch.ID.String()).
		Str("name", ch.Name).
		Msg("Channel updated successfully")

	return nil
}

// DeleteChannel deletes a channel by its ID
func (s *Service) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	// Verify channel exists
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	// Delete from database (cascade to schedule entries handled by DB)
	if err := s.repos.Channels.Delete(ctx, id); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to delete channel from database")
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", id.String()).
		Msg("Channel deleted successfully")

	return nil
}

// Resolve finds a channel from an external reference, in order: by id, by
// exact name, then by sanitized-name alias. External engines are not
// guaranteed to echo back the stored id, so all three tiers are part of the
// poll contract.
func (s *Service) Resolve(ctx context.Context, ref string) (*models.Channel, MatchKind, error) {
	if id, err := uuid.Parse(ref); err == nil {
		ch, err := s.repos.Channels.GetByID(ctx, id)
		if err == nil {
			return ch, MatchID, nil
		}
		if !db.IsNotFound(err) {
			return nil, "", fmt.Errorf("failed to resolve channel by id: %w", err)
		}
	}

	ch, err := s.repos.Channels.GetByName(ctx, ref)
	if err == nil {
		return ch, MatchName, nil
	}
	if !db.IsNotFound(err) {
		return nil, "", fmt.Errorf("failed to resolve channel by name: %w", err)
	}

	// Alias tier: compare against every channel's sanitized name. Linear
	// scan; channel counts are small and the alias is not stored.
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve channel by alias: %w", err)
	}
	for _, candidate := range channels {
		if SanitizeName(candidate.Name) == ref {
			return candidate, MatchAlias, nil
		}
	}

	return nil, "", ErrChannelNotFound
}

// SanitizeName lowercases a channel name and strips every non-alphanumeric
// character, matching how external engines normalize instance names
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateNameUniqueness checks if a channel name is unique (case-insensitive)
// excludeID allows excluding a specific channel ID (for updates)
func (s *Service) validateNameUniqueness(ctx context.Context, name string, excludeID uuid.UUID) error {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate name uniqueness: %w", err)
	}

	nameLower := strings.ToLower(strings.TrimSpace(name))

	for _, ch := range channels {
		// Skip the channel being updated
		if ch.ID == excludeID {
			continue
		}

		existingNameLower := strings.ToLower(strings.TrimSpace(ch.Name))
		if existingNameLower == nameLower {
			return ErrDuplicateChannelName
		}
	}

	return nil
}

// normalizeStart converts an optional schedule start to UTC
func normalizeStart(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
