package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/repository"
)

const (
	// Отчёт по умолчанию покрывает скользящие 30 календарных дней
	defaultReportDays = 30

	// Размер гео-выборки: последние N просмотров с координатами
	geoSampleLimit = 100

	dayFormat = "2006-01-02"
)

var ErrInvalidDateRange = errors.New("start date is after end date")

// AnalyticsQuery параметры запроса отчёта: карточка по слагу или id
// плюс необязательный диапазон дат (включительно с обеих сторон)
type AnalyticsQuery struct {
	Slug      string
	CardID    *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// AnalyticsService построение отчёта по карточке
type AnalyticsService interface {
	Report(ctx context.Context, query AnalyticsQuery) (*models.AnalyticsReport, error)
}

type analyticsService struct {
	cardRepo      repository.CardRepository
	analyticsRepo repository.AnalyticsRepository
}

func NewAnalyticsService(cardRepo repository.CardRepository, analyticsRepo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{
		cardRepo:      cardRepo,
		analyticsRepo: analyticsRepo,
	}
}

// Report собирает полный отчёт: дневные ряды с нулями для пустых
// дней, суммарные показатели с CTR, разбивки по кликам, устройствам
// и источникам, гео-выборку. Вся арифметика дат — календарные дни UTC.
func (s *analyticsService) Report(ctx context.Context, query AnalyticsQuery) (*models.AnalyticsReport, error) {
	cardID, err := s.resolveCard(ctx, query)
	if err != nil {
		return nil, err
	}

	dateRange, err := resolveRange(query.StartDate, query.EndDate, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	dailyViews, err := s.analyticsRepo.DailyViewCounts(ctx, cardID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}
	dailyClicks, err := s.analyticsRepo.DailyClickCounts(ctx, cardID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}

	daily := mergeDaily(dateRange, dailyViews, dailyClicks)

	var totalViews, totalClicks int64
	for _, d := range daily {
		totalViews += d.Views
		totalClicks += d.Clicks
	}

	breakdown, err := s.analyticsRepo.ClickBreakdown(ctx, cardID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}
	geo, err := s.analyticsRepo.RecentGeoViews(ctx, cardID, geoSampleLimit)
	if err != nil {
		return nil, err
	}
	devices, err := s.analyticsRepo.DeviceCounts(ctx, cardID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}
	sources, err := s.analyticsRepo.SourceCounts(ctx, cardID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}

	return &models.AnalyticsReport{
		TotalViews:     totalViews,
		TotalClicks:    totalClicks,
		CTR:            ctr(totalViews, totalClicks),
		DailyStats:     daily,
		ClickBreakdown: breakdown,
		GeoStats:       geo,
		DeviceStats:    devices,
		SourceStats:    sources,
	}, nil
}

func (s *analyticsService) resolveCard(ctx context.Context, query AnalyticsQuery) (int64, error) {
	if query.Slug != "" {
		cardID, err := s.cardRepo.FindIDBySlug(ctx, query.Slug)
		if err != nil {
			if errors.Is(err, repository.ErrCardNotFound) {
				return 0, ErrCardNotFound
			}
			return 0, err
		}
		return cardID, nil
	}
	if query.CardID != nil {
		return *query.CardID, nil
	}
	return 0, ErrCardNotFound
}

// resolveRange нормализует диапазон: по умолчанию скользящие 30 дней,
// конец всегда прижимается к концу дня
func resolveRange(start, end *time.Time, now time.Time) (models.DateRange, error) {
	endDay := now
	if end != nil {
		endDay = end.UTC()
	}
	endDay = time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)

	var startDay time.Time
	if start != nil {
		t := start.UTC()
		startDay = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		startDay = endDay.AddDate(0, 0, -(defaultReportDays - 1))
		startDay = time.Date(startDay.Year(), startDay.Month(), startDay.Day(), 0, 0, 0, 0, time.UTC)
	}

	if startDay.After(endDay) {
		return models.DateRange{}, ErrInvalidDateRange
	}

	return models.DateRange{Start: startDay, End: endDay}, nil
}

// mergeDaily раскладывает пред-агрегированные счётчики по всем
// календарным дням диапазона, заполняя пропуски нулями
func mergeDaily(r models.DateRange, views, clicks []repository.DailyCount) []models.DailyStat {
	viewsByDay := countsByDay(views)
	clicksByDay := countsByDay(clicks)

	var daily []models.DailyStat
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayFormat)
		daily = append(daily, models.DailyStat{
			Date:   key,
			Views:  viewsByDay[key],
			Clicks: clicksByDay[key],
		})
	}
	return daily
}

func countsByDay(counts []repository.DailyCount) map[string]int64 {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day.Format(dayFormat)] = c.Count
	}
	return byDay
}

// ctr возвращает click-through rate в процентах с двумя знаками;
// без просмотров всегда ноль
func ctr(views, clicks int64) float64 {
	if views == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(views)*100*100) / 100
}
