package handler

import (
	"errors"
	"net/http"

	"github.com/akarpovich/cardlink/internal/requestmeta"
	"github.com/akarpovich/cardlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TrackHandler struct {
	service service.TrackingService
	logger  *zap.Logger
}

func NewTrackHandler(service service.TrackingService, logger *zap.Logger) *TrackHandler {
	return &TrackHandler{
		service: service,
		logger:  logger,
	}
}

type TrackViewRequest struct {
	Slug   string `json:"slug"`
	Source string `json:"source,omitempty"`
}

type TrackClickRequest struct {
	Slug       string `json:"slug"`
	Type       string `json:"type"`
	TargetInfo string `json:"targetInfo,omitempty"`
}

// TrackView godoc
// @Summary Record a public card view
// @Description Record one view event; internal failures never block the visitor
// @Tags tracking
// @Accept json
// @Produce json
// @Param request body TrackViewRequest true "View payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/track-view [post]
func (h *TrackHandler) TrackView(c *gin.Context) {
	var req TrackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing slug"})
		return
	}

	if req.Slug == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing slug"})
		return
	}

	meta := requestmeta.FromRequest(c.Request)

	err := h.service.RecordView(c.Request.Context(), req.Slug, req.Source, meta)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
			return
		}
		// Сбой аналитики не должен мешать показу карточки:
		// отвечаем 200 с success:false
		h.logger.Warn("Failed to record view", zap.String("slug", req.Slug), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TrackClick godoc
// @Summary Record a click on a public card
// @Description Record one click event for a social link, contact action or media
// @Tags tracking
// @Accept json
// @Produce json
// @Param request body TrackClickRequest true "Click payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/track-click [post]
func (h *TrackHandler) TrackClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required fields"})
		return
	}

	err := h.service.RecordClick(
		c.Request.Context(),
		req.Slug,
		req.Type,
		req.TargetInfo,
		c.Request.UserAgent(),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingClickFields):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required fields"})
		case errors.Is(err, service.ErrCardNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		default:
			h.logger.Error("Failed to record click", zap.String("slug", req.Slug), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
