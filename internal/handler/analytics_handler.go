package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/akarpovich/cardlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  *zap.Logger
}

func NewAnalyticsHandler(service service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// GetAnalytics godoc
// @Summary Card analytics report
// @Description Totals, daily series, click breakdown, geo sample and device/source buckets
// @Tags analytics
// @Produce json
// @Param slug query string false "Card slug"
// @Param cardId query int false "Card id (alternative to slug)"
// @Param startDate query string false "Range start (YYYY-MM-DD or RFC3339)"
// @Param endDate query string false "Range end (YYYY-MM-DD or RFC3339)"
// @Success 200 {object} models.AnalyticsReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/get-analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	query := service.AnalyticsQuery{Slug: c.Query("slug")}

	if raw := c.Query("cardId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid cardId"})
			return
		}
		query.CardID = &id
	}

	if query.Slug == "" && query.CardID == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing cardId or slug"})
		return
	}

	var err error
	if query.StartDate, err = parseDateParam(c.Query("startDate")); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid startDate"})
		return
	}
	if query.EndDate, err = parseDateParam(c.Query("endDate")); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid endDate"})
		return
	}

	report, err := h.service.Report(c.Request.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCardNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		case errors.Is(err, service.ErrInvalidDateRange):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid date range"})
		default:
			h.logger.Error("Failed to build analytics report", zap.String("slug", query.Slug), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// parseDateParam принимает дату в формате YYYY-MM-DD или RFC3339
func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
