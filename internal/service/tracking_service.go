package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/repository"
)

// Источник трафика по умолчанию, когда клиент его не передал
const defaultSource = "direct"

var ErrMissingClickFields = errors.New("missing required fields")

// TrackingService запись событий аналитики публичной страницы.
// Просмотры и клики намеренно обрабатываются по-разному: сбой записи
// просмотра не виден посетителю, сбой клика возвращается как ошибка.
type TrackingService interface {
	RecordView(ctx context.Context, slug, source string, meta models.ViewMeta) error
	RecordClick(ctx context.Context, slug, clickType, targetInfo, userAgent string) error
}

type trackingService struct {
	cardRepo  repository.CardRepository
	eventRepo repository.EventRepository
	recorder  ViewRecorder
	logger    *zap.Logger
}

func NewTrackingService(
	cardRepo repository.CardRepository,
	eventRepo repository.EventRepository,
	recorder ViewRecorder,
	logger *zap.Logger,
) TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &trackingService{
		cardRepo:  cardRepo,
		eventRepo: eventRepo,
		recorder:  recorder,
		logger:    logger,
	}
}

// RecordView регистрирует загрузку публичной страницы. Слаг
// резолвится синхронно (неизвестный слаг — настоящий 404), сама
// вставка уходит в worker pool и не может задержать ответ.
func (s *trackingService) RecordView(ctx context.Context, slug, source string, meta models.ViewMeta) error {
	cardID, err := s.cardRepo.FindIDBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	if source == "" {
		source = defaultSource
	}

	view := &models.View{
		CardID:     cardID,
		Referrer:   meta.Referrer,
		UserAgent:  meta.UserAgent,
		DeviceType: meta.DeviceType,
		City:       meta.City,
		Region:     meta.Region,
		Country:    meta.Country,
		Latitude:   meta.Latitude,
		Longitude:  meta.Longitude,
		IPAddress:  meta.IPAddress,
		Source:     source,
		ViewedAt:   time.Now().UTC(),
	}

	if err := s.recorder.Enqueue(ctx, view); err != nil {
		// Просмотр потерян, но посетителя это не касается
		s.logger.Warn("Не удалось поставить просмотр в очередь",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}

	return nil
}

// RecordClick регистрирует взаимодействие на публичной карточке.
// В отличие от просмотров, запись синхронная и её ошибки всплывают.
func (s *trackingService) RecordClick(ctx context.Context, slug, clickType, targetInfo, userAgent string) error {
	if slug == "" || clickType == "" {
		return ErrMissingClickFields
	}

	cardID, err := s.cardRepo.FindIDBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	click := &models.Click{
		CardID:     cardID,
		Type:       clickType,
		TargetInfo: targetInfo,
		UserAgent:  userAgent,
		ClickedAt:  time.Now().UTC(),
	}

	return s.eventRepo.InsertClick(ctx, click)
}
