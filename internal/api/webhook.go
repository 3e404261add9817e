package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/metrics"
	"github.com/lumen-tv/lumen/internal/playout"
)

// WebhookHandler serves the playout engine's poll endpoint. The engine knows
// a channel by whatever reference it was provisioned with, so lookup accepts
// an ID, an exact name, or a sanitized alias.
type WebhookHandler struct {
	channelService *channel.Service
	resolver       *playout.Resolver
	sync           *playout.SyncCoordinator
	metrics        *metrics.Metrics
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(channelService *channel.Service, resolver *playout.Resolver, sync *playout.SyncCoordinator, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		channelService: channelService,
		resolver:       resolver,
		sync:           sync,
		metrics:        m,
	}
}

// NextVOD handles GET /webhook/nextVod?channelId=<ref>
//
// This is the hot path: the playout engine polls it at every asset boundary
// and expects a playable descriptor back every time the channel has any
// schedule at all.
func (h *WebhookHandler) NextVOD(c *gin.Context) {
	ref := c.Query("channelId")
	if ref == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "channelId query parameter is required",
		})
		return
	}

	h.metrics.IncPolls()
	now := time.Now().UTC()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ch, match, err := h.channelService.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			logger.Log.Warn().
				Str("channel_ref", ref).
				Msg("Webhook poll for unknown channel")

			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_ref", ref).
			Msg("Failed to resolve channel reference")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "lookup_failed",
			Message: "Failed to look up channel",
		})
		return
	}

	logger.Log.Debug().
		Str("channel_ref", ref).
		Str("channel_id", ch.ID.String()).
		Str("match", string(match)).
		Msg("Webhook poll received")

	if err := h.sync.MaybeSyncOnFirstPoll(ctx, ch, now); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", ch.ID.String()).
			Msg("First-poll sync failed")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "sync_failed",
			Message: "Failed to sync schedule start",
		})
		return
	}

	current, err := h.resolver.ResolveCurrent(ctx, ch.ID, now)
	if err != nil {
		if errors.Is(err, playout.ErrNoSchedule) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "no_schedule",
				Message: "No schedule configured for channel",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", ch.ID.String()).
			Msg("Failed to resolve playout")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "resolve_failed",
			Message: "Failed to resolve playout",
		})
		return
	}

	c.JSON(http.StatusOK, current)
}

// Health handles GET /webhook/health, a liveness probe for the playout
// engine's side of the integration
func (h *WebhookHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// SetupWebhookRoutes registers the playout engine's poll endpoints at the
// router root, outside the administrative /api group
func SetupWebhookRoutes(router *gin.Engine, channelService *channel.Service, resolver *playout.Resolver, sync *playout.SyncCoordinator, m *metrics.Metrics) {
	handler := NewWebhookHandler(channelService, resolver, sync, m)

	webhook := router.Group("/webhook")
	webhook.GET("/nextVod", handler.NextVOD)
	webhook.GET("/health", handler.Health)
}
