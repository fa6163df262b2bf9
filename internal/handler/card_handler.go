package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akarpovich/cardlink/internal/middleware"
	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CardHandler struct {
	service service.CardService
	logger  *zap.Logger
}

func NewCardHandler(service service.CardService, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		service: service,
		logger:  logger,
	}
}

type SaveCardRequest struct {
	CardData json.RawMessage `json:"cardData"`
	CardID   *int64          `json:"cardId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
}

type DeleteCardRequest struct {
	CardID *int64 `json:"cardId"`
	UserID string `json:"userId,omitempty"`
}

// CheckSlug godoc
// @Summary Check slug availability
// @Description Check whether a slug is free, reserved or already taken
// @Tags cards
// @Produce json
// @Param slug query string true "Candidate slug"
// @Param cardId query int false "Card id to exclude from the check"
// @Success 200 {object} models.SlugCheck
// @Failure 400 {object} ErrorResponse
// @Router /api/check-slug [get]
func (h *CardHandler) CheckSlug(c *gin.Context) {
	candidate := c.Query("slug")
	if candidate == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing slug parameter"})
		return
	}

	// Необязательное исключение текущей карточки из проверки
	var excludeID *int64
	if raw := c.Query("cardId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid cardId"})
			return
		}
		excludeID = &id
	}

	check, err := h.service.CheckSlug(c.Request.Context(), candidate, excludeID)
	if err != nil {
		h.logger.Error("Failed to check slug availability", zap.String("slug", candidate), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, check)
}

// SaveCard godoc
// @Summary Create or update a card
// @Description Create a new card or update an existing one by id
// @Tags cards
// @Accept json
// @Produce json
// @Param request body SaveCardRequest true "Card payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/save-card [post]
func (h *CardHandler) SaveCard(c *gin.Context) {
	var req SaveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if len(req.CardData) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing card data"})
		return
	}

	// Владелец — либо subject bearer-токена, либо userId из тела
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		ownerID = req.UserID
	}
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing userId"})
		return
	}

	card, err := h.service.Save(c.Request.Context(), &models.SaveCardInput{
		Data:    req.CardData,
		CardID:  req.CardID,
		OwnerID: ownerID,
	})
	if err != nil {
		h.respondSaveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card": card})
}

// respondSaveError переводит ошибки сервиса в HTTP-ответы save-card
func (h *CardHandler) respondSaveError(c *gin.Context, err error) {
	var conflict *service.SlugUnavailableError
	switch {
	case errors.As(err, &conflict):
		message := "Slug already taken"
		if conflict.Reason == service.ReasonReserved {
			message = "Slug is reserved"
		}
		c.JSON(http.StatusBadRequest, SlugConflictResponse{
			Error:      message,
			Suggestion: conflict.Suggestion,
		})
	case errors.Is(err, service.ErrMissingData):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing card data"})
	case errors.Is(err, service.ErrInvalidData):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid card data"})
	case errors.Is(err, service.ErrMissingOwner):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing userId"})
	case errors.Is(err, service.ErrInvalidSlug):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid slug format"})
	case errors.Is(err, service.ErrCardLimit):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Card limit reached",
			Details: "Delete an existing card or update it instead",
		})
	case errors.Is(err, service.ErrCardNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found or unauthorized"})
	default:
		h.logger.Error("Failed to save card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
	}
}

// GetCards godoc
// @Summary List caller's cards
// @Description Return all cards of the authenticated owner with view counts
// @Tags cards
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /api/get-cards [get]
func (h *CardHandler) GetCards(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		// Сюда не попадаем при включённом Require middleware
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Missing authorization header"})
		return
	}

	cards, err := h.service.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list cards", zap.String("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	if cards == nil {
		cards = []models.CardWithViews{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cards": cards})
}

// GetCardBySlug godoc
// @Summary Fetch a public card by slug
// @Tags cards
// @Produce json
// @Param slug path string true "Card slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/get-card-by-slug/{slug} [get]
func (h *CardHandler) GetCardBySlug(c *gin.Context) {
	// Слаг приходит либо как сегмент пути, либо как query-параметр
	candidate := c.Param("slug")
	if candidate == "" {
		candidate = c.Query("slug")
	}
	if candidate == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing slug"})
		return
	}

	card, err := h.service.GetBySlug(c.Request.Context(), candidate)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
			return
		}
		h.logger.Error("Failed to fetch card by slug", zap.String("slug", candidate), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card": card})
}

// DeleteCard godoc
// @Summary Delete a card with its analytics
// @Description Delete a card owned by the caller together with its view and click events
// @Tags cards
// @Accept json
// @Produce json
// @Param request body DeleteCardRequest true "Card id and owner"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/delete-card [post]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	var req DeleteCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if req.CardID == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing cardId"})
		return
	}

	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		ownerID = req.UserID
	}
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing userId"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), *req.CardID, ownerID); err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found or unauthorized"})
			return
		}
		h.logger.Error("Failed to delete card", zap.Int64("card_id", *req.CardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Card deleted successfully"})
}
