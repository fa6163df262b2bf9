package handler

import (
	"net/http"

	"github.com/akarpovich/cardlink/internal/middleware"
	"github.com/akarpovich/cardlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	cardService service.CardService,
	trackingService service.TrackingService,
	analyticsService service.AnalyticsService,
	auth *middleware.Auth,
	rateLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	// Неподдерживаемый метод на известном пути — 405, а не 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	})

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	// Rate limiting для всех запросов
	router.Use(rateLimiter.Middleware())

	cardHandler := NewCardHandler(cardService, logger)
	trackHandler := NewTrackHandler(trackingService, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsService, logger)

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)

		// Публичная поверхность: карточка и трекинг
		api.GET("/check-slug", cardHandler.CheckSlug)
		api.GET("/get-card-by-slug", cardHandler.GetCardBySlug)
		api.GET("/get-card-by-slug/:slug", cardHandler.GetCardBySlug)
		api.POST("/track-view", trackHandler.TrackView)
		api.POST("/track-click", trackHandler.TrackClick)
		api.GET("/get-analytics", analyticsHandler.GetAnalytics)

		// Владелец либо доказывается токеном, либо приходит в теле запроса
		api.POST("/save-card", auth.Optional(), cardHandler.SaveCard)
		api.POST("/delete-card", auth.Optional(), cardHandler.DeleteCard)
		api.DELETE("/delete-card", auth.Optional(), cardHandler.DeleteCard)

		// Список карточек доступен только аутентифицированному владельцу
		api.GET("/get-cards", auth.Require(), cardHandler.GetCards)
	}

	return router
}
