package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/lumen-tv/lumen/internal/schedule"
)

// AddScheduleEntryRequest represents a request to place a VOD on a channel
// timeline. Omitting start/end selects back-to-back placement; providing
// both schedules the entry at exactly those times.
type AddScheduleEntryRequest struct {
	VODID          string     `json:"vod_id" binding:"required"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	Position       *int       `json:"position,omitempty"`
}

// UpdateScheduleEntryRequest represents a partial update to a schedule entry
type UpdateScheduleEntryRequest struct {
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	Position       *int       `json:"position,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

// ReorderScheduleRequest represents a request to reassign entry positions
type ReorderScheduleRequest struct {
	Items []ReorderScheduleItem `json:"items" binding:"required,min=1,dive"`
}

// ReorderScheduleItem pairs an entry with its new position
type ReorderScheduleItem struct {
	ID       string `json:"id" binding:"required"`
	Position int    `json:"position" binding:"required,min=1"`
}

// RebalanceRequest represents a request to retime a timeline from a position
type RebalanceRequest struct {
	FromPosition int `json:"from_position"`
}

// ScheduleEntryResponse represents a schedule entry in API responses
type ScheduleEntryResponse struct {
	ID             string       `json:"id"`
	ChannelID      string       `json:"channel_id"`
	VODID          string       `json:"vod_id"`
	Position       int          `json:"position"`
	ScheduledStart time.Time    `json:"scheduled_start"`
	ScheduledEnd   time.Time    `json:"scheduled_end"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	VOD            *VODResponse `json:"vod,omitempty"`
}

// ScheduleResponse represents a channel's full timeline
type ScheduleResponse struct {
	ChannelID string                   `json:"channel_id"`
	Entries   []*ScheduleEntryResponse `json:"entries"`
}

// ScheduleHandler handles schedule timeline API requests
type ScheduleHandler struct {
	scheduleService *schedule.Service
}

// NewScheduleHandler creates a new schedule handler instance
func NewScheduleHandler(scheduleService *schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// toScheduleEntryResponse converts a schedule entry model to API response format
func toScheduleEntryResponse(entry *models.ScheduleEntry) *ScheduleEntryResponse {
	resp := &ScheduleEntryResponse{
		ID:             entry.ID.String(),
		ChannelID:      entry.ChannelID.String(),
		VODID:          entry.VODID.String(),
		Position:       entry.Position,
		ScheduledStart: entry.ScheduledStart,
		ScheduledEnd:   entry.ScheduledEnd,
		IsActive:       entry.IsActive,
		CreatedAt:      entry.CreatedAt,
	}
	if entry.VOD != nil {
		resp.VOD = toVODResponse(entry.VOD)
	}
	return resp
}

// AddEntry handles POST /api/channels/:id/schedule
func (h *ScheduleHandler) AddEntry(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req AddScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	vodID, err := uuid.Parse(req.VODID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid VOD ID format",
		})
		return
	}

	opts := schedule.AddOptions{
		Start:      req.ScheduledStart,
		End:        req.ScheduledEnd,
		Position:   req.Position,
		BackToBack: req.ScheduledEnd == nil,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.scheduleService.AddToSchedule(ctx, channelID, vodID, opts)
	if err != nil {
		switch {
		case errors.Is(err, channel.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
		case errors.Is(err, schedule.ErrVODNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "VOD not found",
			})
		case errors.Is(err, schedule.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
		default:
			logger.Log.Error().
				Err(err).
				Str("channel_id", channelID.String()).
				Str("vod_id", vodID.String()).
				Msg("Failed to add schedule entry")

			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "create_failed",
				Message: "Failed to add schedule entry",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, toScheduleEntryResponse(entry))
}

// GetSchedule handles GET /api/channels/:id/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.scheduleService.GetSchedule(ctx, channelID)
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
			Str("channel_id", channelID.String()).
			Msg("Failed to get schedule")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve schedule",
		})
		return
	}

	responses := make([]*ScheduleEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = toScheduleEntryResponse(entry)
	}

	c.JSON(http.StatusOK, ScheduleResponse{
		ChannelID: channelID.String(),
		Entries:   responses,
	})
}

// UpdateEntry handles PUT /api/schedule/:id
func (h *ScheduleHandler) UpdateEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid schedule entry ID format",
		})
		return
	}

	var req UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.scheduleService.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, schedule.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Schedule entry not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("entry_id", entryID.String()).
			Msg("Failed to get schedule entry for update")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve schedule entry",
		})
		return
	}

	if req.ScheduledStart != nil {
		entry.ScheduledStart = req.ScheduledStart.UTC()
	}
	if req.ScheduledEnd != nil {
		entry.ScheduledEnd = req.ScheduledEnd.UTC()
	}
	if req.Position != nil {
		if *req.Position < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "position must be positive",
			})
			return
		}
		entry.Position = *req.Position
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := h.scheduleService.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, schedule.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Schedule entry not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("entry_id", entryID.String()).
			Msg("Failed to update schedule entry")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to update schedule entry",
		})
		return
	}

	c.JSON(http.StatusOK, toScheduleEntryResponse(entry))
}

// DeleteEntry handles DELETE /api/schedule/:id
func (h *ScheduleHandler) DeleteEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid schedule entry ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleService.RemoveEntry(ctx, entryID); err != nil {
		if errors.Is(err, schedule.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Schedule entry not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("entry_id", entryID.String()).
			Msg("Failed to delete schedule entry")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delete_failed",
			Message: "Failed to delete schedule entry",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Schedule entry deleted successfully",
	})
}

// ClearSchedule handles DELETE /api/channels/:id/schedule
func (h *ScheduleHandler) ClearSchedule(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleService.ClearSchedule(ctx, channelID); err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to clear schedule")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delete_failed",
			Message: "Failed to clear schedule",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Schedule cleared successfully",
	})
}

// Reorder handles PUT /api/channels/:id/schedule/reorder
func (h *ScheduleHandler) Reorder(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req ReorderScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	items := make([]db.ReorderItem, len(req.Items))
	for i, item := range req.Items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_id",
				Message: "Invalid schedule entry ID format: " + item.ID,
			})
			return
		}
		items[i] = db.ReorderItem{ID: id, Position: item.Position}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleService.ReorderSchedule(ctx, channelID, items); err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to reorder schedule")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to reorder schedule",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Schedule reordered; rebalance to recompute times",
	})
}

// Rebalance handles PUT /api/channels/:id/schedule/rebalance
func (h *ScheduleHandler) Rebalance(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	// Body is optional; an empty one rebalances from the top
	var req RebalanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request body",
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.scheduleService.Rebalance(ctx, channelID, req.FromPosition); err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Int("from_position", req.FromPosition).
			Msg("Failed to rebalance schedule")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "rebalance_failed",
			Message: "Failed to rebalance schedule",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Schedule rebalanced successfully",
	})
}

// SetupScheduleRoutes registers schedule timeline routes
func SetupScheduleRoutes(apiGroup *gin.RouterGroup, scheduleService *schedule.Service) {
	handler := NewScheduleHandler(scheduleService)

	apiGroup.POST("/channels/:id/schedule", handler.AddEntry)
	apiGroup.GET("/channels/:id/schedule", handler.GetSchedule)
	apiGroup.DELETE("/channels/:id/schedule", handler.ClearSchedule)
	apiGroup.PUT("/channels/:id/schedule/reorder", handler.Reorder)
	apiGroup.PUT("/channels/:id/schedule/rebalance", handler.Rebalance)
	apiGroup.PUT("/schedule/:id", handler.UpdateEntry)
	apiGroup.DELETE("/schedule/:id", handler.DeleteEntry)
}
