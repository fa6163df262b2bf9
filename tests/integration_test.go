package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/akarpovich/cardlink/internal/config"
	"github.com/akarpovich/cardlink/internal/handler"
	"github.com/akarpovich/cardlink/internal/middleware"
	"github.com/akarpovich/cardlink/internal/repository"
	"github.com/akarpovich/cardlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const testJWTSecret = "integration-test-secret"

// TestMain настраивает тестовое окружение
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEnv хранит окружение для интеграционных тестов
type TestEnv struct {
	router         *gin.Engine
	recorder       service.ViewRecorder
	rateLimiter    *middleware.RateLimiter
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
	db             *repository.PostgresDB
	redis          *repository.RedisDB
}

// setupTestEnv создаёт тестовое окружение с PostgreSQL и Redis контейнерами
func setupTestEnv(t *testing.T) *TestEnv {
	ctx := t.Context()

	// Запускаем контейнер PostgreSQL
	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("cardlink"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	// Запускаем контейнер Redis
	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err)

	// Получаем данные для подключения
	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	// Создаём подключение к БД (миграция схемы выполняется при подключении)
	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "cardlink",
	})
	require.NoError(t, err)

	// Создаём подключение к Redis
	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host:         redisHost,
		Port:         redisPort.Port(),
		PoolSize:     10,
		MinIdleConns: 2,
	})
	require.NoError(t, err)

	// Инициализируем репозитории и сервисы
	cardRepo := repository.NewCardRepository(db)
	eventRepo := repository.NewEventRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	recorder := service.NewViewRecorder(eventRepo, nil) // nil logger для тестов
	recorder.Start()

	cardService := service.NewCardService(cardRepo, eventRepo, cacheRepo, 2, nil)
	trackingService := service.NewTrackingService(cardRepo, eventRepo, recorder, nil)
	analyticsService := service.NewAnalyticsService(cardRepo, analyticsRepo)

	// Настраиваем роутер с middleware
	auth := middleware.NewAuth(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 100, // Высокий лимит для тестов
		BurstSize:         200,
		CleanupInterval:   time.Minute,
	})

	router := handler.NewRouter(cardService, trackingService, analyticsService, auth, rateLimiter, zap.NewNop())

	return &TestEnv{
		router:         router,
		recorder:       recorder,
		rateLimiter:    rateLimiter,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
		db:             db,
		redis:          redisClient,
	}
}

// teardown очищает ресурсы после теста
func (env *TestEnv) teardown(t *testing.T) {
	env.recorder.Stop()
	env.rateLimiter.Stop()
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

// signToken подписывает bearer-токен владельца для тестов
func signToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

// doRequest выполняет JSON-запрос к тестовому роутеру
func (env *TestEnv) doRequest(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// saveCard создаёт карточку и возвращает её id
func (env *TestEnv) saveCard(t *testing.T, userID, slug string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"cardData":{"name":"Integration","slug":%q},"userId":%q}`, slug, userID)
	w := env.doRequest("POST", "/api/save-card", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Card    struct {
			ID   int64   `json:"id"`
			Slug *string `json:"slug"`
		} `json:"card"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Card.ID
}

// TestIntegration_SaveCard тестирует создание и обновление карточек через API
func TestIntegration_SaveCard(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	// Создаём карточку
	cardID := env.saveCard(t, "user-1", "jane-doe")
	assert.Positive(t, cardID)

	// Обновляем её же: свой слаг не считается занятым
	body := fmt.Sprintf(`{"cardData":{"name":"Jane Updated","slug":"jane-doe"},"cardId":%d,"userId":"user-1"}`, cardID)
	w := env.doRequest("POST", "/api/save-card", body, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Jane Updated")

	// Чужая попытка занять слаг отклоняется с подсказкой
	w = env.doRequest("POST", "/api/save-card", `{"cardData":{"name":"Other","slug":"jane-doe"},"userId":"user-2"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var conflict struct {
		Error      string `json:"error"`
		Suggestion string `json:"suggestion"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.Equal(t, "Slug already taken", conflict.Error)
	assert.Equal(t, "jane-doe-2", conflict.Suggestion)

	// Лимит карточек: третья у того же владельца отклоняется
	env.saveCard(t, "user-1", "jane-second")
	w = env.doRequest("POST", "/api/save-card", `{"cardData":{"name":"Third","slug":"jane-third"},"userId":"user-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Card limit reached")
}

// TestIntegration_CheckSlug тестирует проверку доступности слага
func TestIntegration_CheckSlug(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	cardID := env.saveCard(t, "user-1", "taken-slug")

	t.Run("свободный слаг", func(t *testing.T) {
		w := env.doRequest("GET", "/api/check-slug?slug=free-slug", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"available":true`)
	})

	t.Run("занятый слаг с подсказкой", func(t *testing.T) {
		w := env.doRequest("GET", "/api/check-slug?slug=taken-slug", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"reason":"taken"`)
		assert.Contains(t, w.Body.String(), `"suggestion":"taken-slug-2"`)
	})

	t.Run("исключение собственной карточки", func(t *testing.T) {
		path := fmt.Sprintf("/api/check-slug?slug=taken-slug&cardId=%d", cardID)
		w := env.doRequest("GET", path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"available":true`)
	})

	t.Run("зарезервированный слаг", func(t *testing.T) {
		w := env.doRequest("GET", "/api/check-slug?slug=admin", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"reason":"reserved"`)
		assert.Contains(t, w.Body.String(), `"suggestion":"admin-card"`)
	})
}

// TestIntegration_GetCards тестирует выдачу карточек владельца по токену
func TestIntegration_GetCards(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	env.saveCard(t, "user-1", "owner-card")
	env.saveCard(t, "user-2", "other-card")

	t.Run("без токена", func(t *testing.T) {
		w := env.doRequest("GET", "/api/get-cards", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("с токеном владельца", func(t *testing.T) {
		w := env.doRequest("GET", "/api/get-cards", "", map[string]string{
			"Authorization": "Bearer " + signToken(t, "user-1"),
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "owner-card")
		assert.NotContains(t, w.Body.String(), "other-card")
		assert.Contains(t, w.Body.String(), `"viewCount"`)
	})
}

// TestIntegration_PublicCard тестирует публичную страницу и кэш
func TestIntegration_PublicCard(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	env.saveCard(t, "user-1", "public-card")

	// Первый запрос идёт в БД, второй — из кэша; ответы совпадают
	first := env.doRequest("GET", "/api/get-card-by-slug/public-card", "", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := env.doRequest("GET", "/api/get-card-by-slug/public-card", "", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Неизвестный слаг — 404
	w := env.doRequest("GET", "/api/get-card-by-slug/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Card not found")
}

// TestIntegration_Tracking тестирует запись просмотров и кликов
func TestIntegration_Tracking(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	env.saveCard(t, "user-1", "tracked-card")

	// Просмотры с разной меткой источника и гео-заголовками
	for i := 0; i < 3; i++ {
		w := env.doRequest("POST", "/api/track-view", `{"slug":"tracked-card","source":"qr"}`, map[string]string{
			"User-Agent":            "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) Mobile Safari",
			"X-Vercel-IP-City":      "Berlin",
			"X-Vercel-IP-Country":   "DE",
			"X-Vercel-IP-Latitude":  "52.52",
			"X-Vercel-IP-Longitude": "13.405",
			"X-Forwarded-For":       fmt.Sprintf("192.168.1.%d", i),
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	}

	// Клик записывается синхронно
	w := env.doRequest("POST", "/api/track-click", `{"slug":"tracked-card","type":"social","targetInfo":"linkedin"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Просмотр неизвестного слага — настоящий 404
	w = env.doRequest("POST", "/api/track-view", `{"slug":"nonexistent"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Card not found")

	// Даём worker pool время обработать просмотры
	time.Sleep(500 * time.Millisecond)

	// Отчёт отражает записанные события
	w = env.doRequest("GET", "/api/get-analytics?slug=tracked-card", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		TotalViews     int64   `json:"totalViews"`
		TotalClicks    int64   `json:"totalClicks"`
		CTR            float64 `json:"ctr"`
		DailyStats     []any   `json:"dailyStats"`
		ClickBreakdown []struct {
			Type       string `json:"type"`
			TargetInfo string `json:"targetInfo"`
			Count      int64  `json:"count"`
		} `json:"clickBreakdown"`
		GeoStats []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geoStats"`
		DeviceStats []struct {
			Label string `json:"label"`
			Count int64  `json:"count"`
		} `json:"deviceStats"`
		SourceStats []struct {
			Label string `json:"label"`
			Count int64  `json:"count"`
		} `json:"sourceStats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	assert.Equal(t, int64(3), report.TotalViews)
	assert.Equal(t, int64(1), report.TotalClicks)
	assert.InDelta(t, 33.33, report.CTR, 0.01)
	assert.Len(t, report.DailyStats, 30)

	require.Len(t, report.ClickBreakdown, 1)
	assert.Equal(t, "social", report.ClickBreakdown[0].Type)
	assert.Equal(t, "linkedin", report.ClickBreakdown[0].TargetInfo)

	require.NotEmpty(t, report.GeoStats)
	assert.InDelta(t, 52.52, report.GeoStats[0].Latitude, 0.001)

	require.Len(t, report.DeviceStats, 1)
	assert.Equal(t, "mobile", report.DeviceStats[0].Label)

	require.Len(t, report.SourceStats, 1)
	assert.Equal(t, "qr", report.SourceStats[0].Label)
}

// TestIntegration_DeleteCard тестирует каскадное удаление карточки
func TestIntegration_DeleteCard(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	cardID := env.saveCard(t, "user-1", "delete-me")

	// Накапливаем события для проверки каскада
	w := env.doRequest("POST", "/api/track-view", `{"slug":"delete-me"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.doRequest("POST", "/api/track-click", `{"slug":"delete-me","type":"contact","targetInfo":"email"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(500 * time.Millisecond)

	t.Run("чужой владелец", func(t *testing.T) {
		body := fmt.Sprintf(`{"cardId":%d,"userId":"intruder"}`, cardID)
		w := env.doRequest("POST", "/api/delete-card", body, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Card not found or unauthorized")
	})

	t.Run("законный владелец", func(t *testing.T) {
		body := fmt.Sprintf(`{"cardId":%d,"userId":"user-1"}`, cardID)
		w := env.doRequest("DELETE", "/api/delete-card", body, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Card deleted successfully")
	})

	t.Run("карточка и события удалены", func(t *testing.T) {
		w := env.doRequest("GET", "/api/get-card-by-slug/delete-me", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// Повторное удаление — уже not found
		body := fmt.Sprintf(`{"cardId":%d,"userId":"user-1"}`, cardID)
		w = env.doRequest("POST", "/api/delete-card", body, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestIntegration_HealthCheck тестирует endpoint проверки здоровья
func TestIntegration_HealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	w := env.doRequest("GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "cardlink", resp["service"])
}
