package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/lumen-tv/lumen/internal/playout"
	"github.com/lumen-tv/lumen/internal/schedule"
)

// Request/Response DTOs

// CreateChannelRequest represents a request to create a new channel
type CreateChannelRequest struct {
	Name          string     `json:"name" binding:"required"`
	Description   *string    `json:"description,omitempty"`
	ScheduleStart *time.Time `json:"schedule_start,omitempty"`
}

// UpdateChannelRequest represents a request to update channel metadata (partial update)
type UpdateChannelRequest struct {
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ScheduleStart *time.Time `json:"schedule_start,omitempty"`
}

// SetScheduleStartRequest represents a request to move a channel's schedule anchor
type SetScheduleStartRequest struct {
	ScheduleStart *time.Time `json:"schedule_start" binding:"required"`
}

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	ScheduleStart   *time.Time `json:"schedule_start,omitempty"`
	ScheduleSynced  bool       `json:"schedule_synced"`
	LastWebhookCall *time.Time `json:"last_webhook_call,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ChannelListResponse represents a list of channels
type ChannelListResponse struct {
	Channels []*ChannelResponse `json:"channels"`
}

// ChannelHandler handles channel-related API requests
type ChannelHandler struct {
	channelService  *channel.Service
	scheduleService *schedule.Service
	resolver        *playout.Resolver
}

// NewChannelHandler creates a new channel handler instance
func NewChannelHandler(channelService *channel.Service, scheduleService *schedule.Service, resolver *playout.Resolver) *ChannelHandler {
	return &ChannelHandler{
		channelService:  channelService,
		scheduleService: scheduleService,
		resolver:        resolver,
	}
}

// toChannelResponse converts a channel model to API response format
func toChannelResponse(ch *models.Channel) *ChannelResponse {
	return &ChannelResponse{
		ID:              ch.ID.String(),
		Name:            ch.Name,
		Description:     ch.Description,
		ScheduleStart:   ch.ScheduleStart,
		ScheduleSynced:  ch.ScheduleSynced,
		LastWebhookCall: ch.LastWebhookCall,
		CreatedAt:       ch.CreatedAt,
		UpdatedAt:       ch.UpdatedAt,
	}
}

// CreateChannel handles POST /api/channels
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	newChannel, err := h.channelService.CreateChannel(ctx, req.Name, req.Description, req.ScheduleStart)
	if err != nil {
		if errors.Is(err, channel.ErrDuplicateChannelName) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "duplicate_name",
				Message: "A channel with this name already exists",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("name", req.Name).
			Msg("Failed to create channel")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "create_failed",
			Message: "Failed to create channel",
		})
		return
	}

	c.JSON(http.StatusCreated, toChannelResponse(newChannel))
}

// ListChannels handles GET /api/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	channels, err := h.channelService.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel list",
		})
		return
	}

	responses := make([]*ChannelResponse, len(channels))
	for i, ch := range channels {
		responses[i] = toChannelResponse(ch)
	}

	c.JSON(http.StatusOK, ChannelListResponse{
		Channels: responses,
	})
}

// GetChannel handles GET /api/channels/:id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ch, err := h.channelService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to get channel by ID")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel",
		})
		return
	}

	c.JSON(http.StatusOK, toChannelResponse(ch))
}

// UpdateChannel handles PUT /api/channels/:id
func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Load existing channel
	ch, err := h.channelService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to get channel for update")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel",
		})
		return
	}

	// Apply metadata updates
	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Description != nil {
		ch.Description = req.Description
	}

	if err := h.channelService.UpdateChannel(ctx, ch); err != nil {
		if errors.Is(err, channel.ErrDuplicateChannelName) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "duplicate_name",
				Message: "A channel with this name already exists",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to update channel")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to update channel",
		})
		return
	}

	// Anchor change goes through the schedule service: it retimes the
	// timeline and re-arms the first-poll sync
	if req.ScheduleStart != nil {
		if err := h.scheduleService.SetScheduleStart(ctx, id, *req.ScheduleStart); err != nil {
			logger.Log.Error().
				Err(err).
				Str("channel_id", id.String()).
				Msg("Failed to update schedule start")

			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "update_failed",
				Message: "Failed to update schedule start",
			})
			return
		}
		start := req.ScheduleStart.UTC()
		ch.ScheduleStart = &start
		ch.ScheduleSynced = false
	}

	c.JSON(http.StatusOK, toChannelResponse(ch))
}

// DeleteChannel handles DELETE /api/channels/:id
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.channelService.DeleteChannel(ctx, id); err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to delete channel")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delete_failed",
			Message: "Failed to delete channel",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Channel deleted successfully",
	})
}

// SetScheduleStart handles PUT /api/channels/:id/schedule-start
func (h *ChannelHandler) SetScheduleStart(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req SetScheduleStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleService.SetScheduleStart(ctx, id, *req.ScheduleStart); err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to set schedule start")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to update schedule start time",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Schedule start updated and timeline rebalanced",
	})
}

// GetCurrentPlayout handles GET /api/channels/:id/current
// Administrative view of the resolver; no sync or webhook bookkeeping.
func (h *ChannelHandler) GetCurrentPlayout(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	current, err := h.resolver.ResolveCurrent(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) || errors.Is(err, playout.ErrNoSchedule) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: err.Error(),
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to resolve current playout")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "resolve_failed",
			Message: "Failed to resolve current playout",
		})
		return
	}

	c.JSON(http.StatusOK, current)
}

// parseChannelID validates the :id path parameter, writing the error
// response itself when the value is not a UUID
func parseChannelID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid channel ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// SetupChannelRoutes registers channel-related routes
func SetupChannelRoutes(apiGroup *gin.RouterGroup, channelService *channel.Service, scheduleService *schedule.Service, resolver *playout.Resolver) {
	handler := NewChannelHandler(channelService, scheduleService, resolver)

	// Channel CRUD endpoints
	apiGroup.POST("/channels", handler.CreateChannel)
	apiGroup.GET("/channels", handler.ListChannels)
	apiGroup.GET("/channels/:id", handler.GetChannel)
	apiGroup.PUT("/channels/:id", handler.UpdateChannel)
	apiGroup.DELETE("/channels/:id", handler.DeleteChannel)

	// Schedule anchor + current playout
	apiGroup.PUT("/channels/:id/schedule-start", handler.SetScheduleStart)
	apiGroup.GET("/channels/:id/current", handler.GetCurrentPlayout)
}
