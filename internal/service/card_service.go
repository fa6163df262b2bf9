package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/repository"
	"github.com/akarpovich/cardlink/internal/slug"
)

// Ошибки сервиса
var (
	ErrMissingData  = errors.New("missing card data")
	ErrInvalidData  = errors.New("card data must be a JSON object")
	ErrMissingOwner = errors.New("missing owner id")
	ErrInvalidSlug  = errors.New("invalid slug format")
	ErrCardNotFound = errors.New("card not found")
	ErrCardLimit    = errors.New("card limit reached")
)

// Причины недоступности слага
const (
	ReasonReserved = "reserved"
	ReasonTaken    = "taken"
)

const (
	cardCacheTTL = 10 * time.Minute

	// Сколько числовых суффиксов перебираем, подбирая альтернативу
	// занятому слагу, прежде чем откатиться на случайный суффикс
	maxSuggestionTries = 5
)

// SlugUnavailableError слаг занят или зарезервирован; несёт
// альтернативу для пользователя
type SlugUnavailableError struct {
	Reason     string
	Suggestion string
}

func (e *SlugUnavailableError) Error() string {
	return "slug is not available: " + e.Reason
}

// CardService бизнес-операции над карточками
type CardService interface {
	CheckSlug(ctx context.Context, candidate string, excludeCardID *int64) (*models.SlugCheck, error)
	Save(ctx context.Context, input *models.SaveCardInput) (*models.Card, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.CardWithViews, error)
	GetBySlug(ctx context.Context, s string) (*models.Card, error)
	Delete(ctx context.Context, cardID int64, ownerID string) error
}

type cardService struct {
	cardRepo    repository.CardRepository
	eventRepo   repository.EventRepository
	cacheRepo   repository.CacheRepository
	maxPerOwner int
	logger      *zap.Logger
}

// NewCardService создаёт сервис карточек. maxPerOwner — лимит карточек
// на владельца (проверяется перед вставкой, не на уровне схемы).
func NewCardService(
	cardRepo repository.CardRepository,
	eventRepo repository.EventRepository,
	cacheRepo repository.CacheRepository,
	maxPerOwner int,
	logger *zap.Logger,
) CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cardService{
		cardRepo:    cardRepo,
		eventRepo:   eventRepo,
		cacheRepo:   cacheRepo,
		maxPerOwner: maxPerOwner,
		logger:      logger,
	}
}

// CheckSlug проверяет доступность слага. Проверка без побочных
// эффектов: повторный вызов для свободного слага снова даст available.
// excludeCardID исключает из проверки редактируемую карточку.
func (s *cardService) CheckSlug(ctx context.Context, candidate string, excludeCardID *int64) (*models.SlugCheck, error) {
	if slug.IsReserved(candidate) {
		return &models.SlugCheck{
			Available:  false,
			Reason:     ReasonReserved,
			Suggestion: candidate + "-card",
		}, nil
	}

	existing, err := s.cardRepo.GetBySlug(ctx, candidate)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return &models.SlugCheck{Available: true}, nil
		}
		return nil, err
	}

	if excludeCardID != nil && existing.ID == *excludeCardID {
		return &models.SlugCheck{Available: true}, nil
	}

	return &models.SlugCheck{
		Available:  false,
		Reason:     ReasonTaken,
		Suggestion: s.suggestAlternative(ctx, candidate),
	}, nil
}

// Save создаёт или обновляет карточку. При наличии слага сначала идёт
// проверка доступности, но источником истины остаётся уникальный
// индекс в базе: нарушение 23505 конвертируется в тот же ответ "taken".
func (s *cardService) Save(ctx context.Context, input *models.SaveCardInput) (*models.Card, error) {
	if len(input.Data) == 0 {
		return nil, ErrMissingData
	}
	if input.OwnerID == "" {
		return nil, ErrMissingOwner
	}
	if !isJSONObject(input.Data) {
		return nil, ErrInvalidData
	}

	cardSlug, err := extractSlug(input.Data)
	if err != nil {
		return nil, ErrInvalidData
	}

	var slugPtr *string
	if cardSlug != "" {
		if !slug.ValidateFormat(cardSlug) {
			return nil, ErrInvalidSlug
		}
		check, err := s.CheckSlug(ctx, cardSlug, input.CardID)
		if err != nil {
			return nil, err
		}
		if !check.Available {
			return nil, &SlugUnavailableError{Reason: check.Reason, Suggestion: check.Suggestion}
		}
		slugPtr = &cardSlug
	}

	if input.CardID != nil {
		return s.update(ctx, *input.CardID, input.OwnerID, input.Data, slugPtr)
	}
	return s.create(ctx, input.OwnerID, input.Data, slugPtr)
}

func (s *cardService) create(ctx context.Context, ownerID string, data json.RawMessage, slugPtr *string) (*models.Card, error) {
	count, err := s.cardRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.maxPerOwner) {
		return nil, ErrCardLimit
	}

	card := &models.Card{
		OwnerID: ownerID,
		Data:    data,
		Slug:    slugPtr,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, s.mapSlugConflict(ctx, err, slugPtr)
	}

	s.invalidateCache(ctx, slugPtr)
	return card, nil
}

func (s *cardService) update(ctx context.Context, cardID int64, ownerID string, data json.RawMessage, slugPtr *string) (*models.Card, error) {
	// Старая строка нужна для инвалидации кэша по прежнему слагу
	existing, err := s.cardRepo.GetByIDAndOwner(ctx, cardID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	card := &models.Card{
		ID:      cardID,
		OwnerID: ownerID,
		Data:    data,
		Slug:    slugPtr,
	}

	if err := s.cardRepo.Update(ctx, card); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, s.mapSlugConflict(ctx, err, slugPtr)
	}

	s.invalidateCache(ctx, existing.Slug)
	s.invalidateCache(ctx, slugPtr)
	return card, nil
}

func (s *cardService) ListByOwner(ctx context.Context, ownerID string) ([]models.CardWithViews, error) {
	return s.cardRepo.ListByOwner(ctx, ownerID)
}

// GetBySlug возвращает публичную карточку: сначала кэш, затем БД
func (s *cardService) GetBySlug(ctx context.Context, candidate string) (*models.Card, error) {
	if candidate == "" {
		return nil, ErrCardNotFound
	}

	card, err := s.cacheRepo.Get(ctx, candidate)
	if err == nil {
		return card, nil
	}

	card, err = s.cardRepo.GetBySlug(ctx, candidate)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, candidate, card, cardCacheTTL); err != nil {
		s.logger.Warn("Не удалось закэшировать карточку", zap.String("slug", candidate), zap.Error(err))
	}

	return card, nil
}

// Delete удаляет карточку владельца вместе с её аналитикой. Порядок
// важен: строки событий уходят раньше строки карточки, чтобы не
// оставить висячие ссылки в бэкендах без каскада.
func (s *cardService) Delete(ctx context.Context, cardID int64, ownerID string) error {
	card, err := s.cardRepo.GetByIDAndOwner(ctx, cardID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	if err := s.eventRepo.DeleteByCard(ctx, cardID); err != nil {
		return fmt.Errorf("failed to delete card events: %w", err)
	}

	if err := s.cardRepo.Delete(ctx, cardID, ownerID); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	s.invalidateCache(ctx, card.Slug)
	return nil
}

// suggestAlternative подбирает свободную альтернативу занятому слагу,
// инкрементируя числовой суффикс; сама альтернатива тоже проверяется
// на занятость. После исчерпания попыток — случайный суффикс.
func (s *cardService) suggestAlternative(ctx context.Context, base string) string {
	for counter := 2; counter < 2+maxSuggestionTries; counter++ {
		candidate := fmt.Sprintf("%s-%d", base, counter)
		if slug.IsReserved(candidate) {
			continue
		}
		_, err := s.cardRepo.GetBySlug(ctx, candidate)
		if errors.Is(err, repository.ErrCardNotFound) {
			return candidate
		}
		if err != nil {
			// При недоступности стора отдаём кандидата как есть:
			// предложение всё равно перепроверяется при сохранении
			return candidate
		}
	}
	return base + "-" + slug.RandomSuffix(4)
}

// mapSlugConflict конвертирует нарушение уникальности слага в ответ
// "taken" с подсказкой
func (s *cardService) mapSlugConflict(ctx context.Context, err error, slugPtr *string) error {
	if errors.Is(err, repository.ErrSlugExists) && slugPtr != nil {
		return &SlugUnavailableError{
			Reason:     ReasonTaken,
			Suggestion: s.suggestAlternative(ctx, *slugPtr),
		}
	}
	return err
}

func (s *cardService) invalidateCache(ctx context.Context, slugPtr *string) {
	if slugPtr == nil || *slugPtr == "" {
		return
	}
	if err := s.cacheRepo.Delete(ctx, *slugPtr); err != nil {
		s.logger.Warn("Не удалось инвалидировать кэш карточки", zap.String("slug", *slugPtr), zap.Error(err))
	}
}

// isJSONObject проверяет, что данные карточки — JSON-объект. Его
// внутренняя структура бэкенд не интересует.
func isJSONObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}

// extractSlug достаёт слаг из непрозрачного содержимого карточки
func extractSlug(data json.RawMessage) (string, error) {
	var payload struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	return payload.Slug, nil
}
