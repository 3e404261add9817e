package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/models"
)

// CreateVODRequest represents a request to register a VOD asset
type CreateVODRequest struct {
	Title             string  `json:"title" binding:"required"`
	HlsURL            string  `json:"hls_url" binding:"required"`
	DurationMs        int64   `json:"duration_ms" binding:"required,gt=0"`
	PrerollURL        *string `json:"preroll_url,omitempty"`
	PrerollDurationMs *int64  `json:"preroll_duration_ms,omitempty"`
}

// UpdateVODRequest represents a partial update to a VOD asset
type UpdateVODRequest struct {
	Title             *string `json:"title,omitempty"`
	HlsURL            *string `json:"hls_url,omitempty"`
	DurationMs        *int64  `json:"duration_ms,omitempty"`
	PrerollURL        *string `json:"preroll_url,omitempty"`
	PrerollDurationMs *int64  `json:"preroll_duration_ms,omitempty"`
}

// VODResponse represents a VOD asset in API responses
type VODResponse struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	HlsURL            string    `json:"hls_url"`
	DurationMs        int64     `json:"duration_ms"`
	Duration          string    `json:"duration"`
	PrerollURL        *string   `json:"preroll_url,omitempty"`
	PrerollDurationMs *int64    `json:"preroll_duration_ms,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VODListResponse represents a paginated list of VODs
type VODListResponse struct {
	VODs   []*VODResponse `json:"vods"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// VODHandler handles VOD catalog API requests
type VODHandler struct {
	repos *db.Repositories
}

// NewVODHandler creates a new VOD handler instance
func NewVODHandler(repos *db.Repositories) *VODHandler {
	return &VODHandler{repos: repos}
}

// toVODResponse converts a VOD model to API response format
func toVODResponse(vod *models.VOD) *VODResponse {
	return &VODResponse{
		ID:                vod.ID.String(),
		Title:             vod.Title,
		HlsURL:            vod.HlsURL,
		DurationMs:        vod.DurationMs,
		Duration:          vod.DurationString(),
		PrerollURL:        vod.PrerollURL,
		PrerollDurationMs: vod.PrerollDurationMs,
		CreatedAt:         vod.CreatedAt,
		UpdatedAt:         vod.UpdatedAt,
	}
}

// CreateVOD handles POST /api/vods
func (h *VODHandler) CreateVOD(c *gin.Context) {
	var req CreateVODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	vod := models.NewVOD(req.Title, req.HlsURL, req.DurationMs)
	vod.PrerollURL = req.PrerollURL
	vod.PrerollDurationMs = req.PrerollDurationMs

	if err := h.repos.VODs.Create(ctx, vod); err != nil {
		logger.Log.Error().
			Err(err).
			Str("title", req.Title).
			Msg("Failed to create vod")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "create_failed",
			Message: "Failed to create VOD",
		})
		return
	}

	c.JSON(http.StatusCreated, toVODResponse(vod))
}

// ListVODs handles GET /api/vods with limit/offset pagination
func (h *VODHandler) ListVODs(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	vods, err := h.repos.VODs.List(ctx, limit, offset)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list vods")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve VOD list",
		})
		return
	}

	total, err := h.repos.VODs.Count(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to count vods")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to count VODs",
		})
		return
	}

	responses := make([]*VODResponse, len(vods))
	for i, vod := range vods {
		responses[i] = toVODResponse(vod)
	}

	c.JSON(http.StatusOK, VODListResponse{
		VODs:   responses,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetVOD handles GET /api/vods/:id
func (h *VODHandler) GetVOD(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid VOD ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	vod, err := h.repos.VODs.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "VOD not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("vod_id", id.String()).
			Msg("Failed to get vod")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve VOD",
		})
		return
	}

	c.JSON(http.StatusOK, toVODResponse(vod))
}

// UpdateVOD handles PUT /api/vods/:id
//
// Changing duration_ms does not retime existing schedule entries; their
// stored intervals stay as they are until a rebalance recomputes them.
func (h *VODHandler) UpdateVOD(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid VOD ID format",
		})
		return
	}

	var req UpdateVODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	vod, err := h.repos.VODs.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "VOD not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("vod_id", id.String()).
			Msg("Failed to get vod for update")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve VOD",
		})
		return
	}

	if req.Title != nil {
		vod.Title = *req.Title
	}
	if req.HlsURL != nil {
		vod.HlsURL = *req.HlsURL
	}
	if req.DurationMs != nil {
		if *req.DurationMs <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "duration_ms must be positive",
			})
			return
		}
		vod.DurationMs = *req.DurationMs
	}
	if req.PrerollURL != nil {
		vod.PrerollURL = req.PrerollURL
	}
	if req.PrerollDurationMs != nil {
		vod.PrerollDurationMs = req.PrerollDurationMs
	}

	if err := h.repos.VODs.Update(ctx, vod); err != nil {
		logger.Log.Error().
			Err(err).
			Str("vod_id", id.String()).
			Msg("Failed to update vod")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "update_failed",
			Message: "Failed to update VOD",
		})
		return
	}

	c.JSON(http.StatusOK, toVODResponse(vod))
}

// DeleteVOD handles DELETE /api/vods/:id
func (h *VODHandler) DeleteVOD(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid VOD ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repos.VODs.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "VOD not found",
			})
			return
		}
		if db.IsForeignKey(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "vod_in_use",
				Message: "VOD is referenced by schedule entries and cannot be deleted",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("vod_id", id.String()).
			Msg("Failed to delete vod")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delete_failed",
			Message: "Failed to delete VOD",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "VOD deleted successfully",
	})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// SetupVODRoutes registers VOD catalog routes
func SetupVODRoutes(apiGroup *gin.RouterGroup, repos *db.Repositories) {
	handler := NewVODHandler(repos)

	apiGroup.POST("/vods", handler.CreateVOD)
	apiGroup.GET("/vods", handler.ListVODs)
	apiGroup.GET("/vods/:id", handler.GetVOD)
	apiGroup.PUT("/vods/:id", handler.UpdateVOD)
	apiGroup.DELETE("/vods/:id", handler.DeleteVOD)
}
