package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akarpovich/cardlink/internal/models"
)

// DailyCount пред-агрегированный счётчик событий за один день
type DailyCount struct {
	Day   time.Time
	Count int64
}

// AnalyticsRepository read-side запросы по таблицам событий. Кэша нет:
// каждый вызов заново выполняет группирующие запросы — объёмы событий
// одной визитки это позволяют.
type AnalyticsRepository interface {
	DailyViewCounts(ctx context.Context, cardID int64, from, to time.Time) ([]DailyCount, error)
	DailyClickCounts(ctx context.Context, cardID int64, from, to time.Time) ([]DailyCount, error)
	ClickBreakdown(ctx context.Context, cardID int64, from, to time.Time) ([]models.ClickBreakdownItem, error)
	RecentGeoViews(ctx context.Context, cardID int64, limit int) ([]models.GeoPoint, error)
	DeviceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error)
	SourceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error)
}

type analyticsRepository struct {
	db *PostgresDB
}

func NewAnalyticsRepository(db *PostgresDB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) DailyViewCounts(ctx context.Context, cardID int64, from, to time.Time) ([]DailyCount, error) {
	query := `
		SELECT DATE_TRUNC('day', viewed_at)::date AS day, COUNT(*)
		FROM card_views
		WHERE card_id = $1 AND viewed_at >= $2 AND viewed_at <= $3
		GROUP BY day
		ORDER BY day
	`
	return r.dailyCounts(ctx, query, cardID, from, to)
}

func (r *analyticsRepository) DailyClickCounts(ctx context.Context, cardID int64, from, to time.Time) ([]DailyCount, error) {
	query := `
		SELECT DATE_TRUNC('day', clicked_at)::date AS day, COUNT(*)
		FROM card_clicks
		WHERE card_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		GROUP BY day
		ORDER BY day
	`
	return r.dailyCounts(ctx, query, cardID, from, to)
}

func (r *analyticsRepository) dailyCounts(ctx context.Context, query string, cardID int64, from, to time.Time) ([]DailyCount, error) {
	rows, err := r.db.Pool.Query(ctx, query, cardID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily counts: %w", err)
	}

	return counts, nil
}

// ClickBreakdown клики по парам (type, target_info), самые частые первыми
func (r *analyticsRepository) ClickBreakdown(ctx context.Context, cardID int64, from, to time.Time) ([]models.ClickBreakdownItem, error) {
	query := `
		SELECT type, COALESCE(target_info, ''), COUNT(*)
		FROM card_clicks
		WHERE card_id = $1 AND clicked_at >= $2 AND clicked_at <= $3
		GROUP BY type, target_info
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, cardID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get click breakdown: %w", err)
	}
	defer rows.Close()

	items := []models.ClickBreakdownItem{}
	for rows.Next() {
		var item models.ClickBreakdownItem
		if err := rows.Scan(&item.Type, &item.TargetInfo, &item.Count); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breakdown: %w", err)
	}

	return items, nil
}

// RecentGeoViews последние просмотры с координатами. Широта и долгота
// хранятся текстом (как отдала edge-инфраструктура) и приводятся к
// float здесь; некорректные значения пропускаются.
func (r *analyticsRepository) RecentGeoViews(ctx context.Context, cardID int64, limit int) ([]models.GeoPoint, error) {
	query := `
		SELECT city, region, country, latitude, longitude, viewed_at
		FROM card_views
		WHERE card_id = $1 AND latitude IS NOT NULL
		ORDER BY viewed_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get geo views: %w", err)
	}
	defer rows.Close()

	points := []models.GeoPoint{}
	for rows.Next() {
		var (
			p        models.GeoPoint
			lat, lng *string
		)
		if err := rows.Scan(&p.City, &p.Region, &p.Country, &lat, &lng, &p.ViewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geo view: %w", err)
		}

		if lat == nil || lng == nil {
			continue
		}
		latF, errLat := strconv.ParseFloat(*lat, 64)
		lngF, errLng := strconv.ParseFloat(*lng, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		p.Latitude = latF
		p.Longitude = lngF
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating geo views: %w", err)
	}

	return points, nil
}

func (r *analyticsRepository) DeviceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error) {
	query := `
		SELECT COALESCE(device_type, 'unknown'), COUNT(*)
		FROM card_views
		WHERE card_id = $1 AND viewed_at >= $2 AND viewed_at <= $3
		GROUP BY device_type
		ORDER BY COUNT(*) DESC
	`
	return r.bucketCounts(ctx, query, cardID, from, to)
}

func (r *analyticsRepository) SourceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error) {
	query := `
		SELECT COALESCE(source, 'direct'), COUNT(*)
		FROM card_views
		WHERE card_id = $1 AND viewed_at >= $2 AND viewed_at <= $3
		GROUP BY source
		ORDER BY COUNT(*) DESC
	`
	return r.bucketCounts(ctx, query, cardID, from, to)
}

func (r *analyticsRepository) bucketCounts(ctx context.Context, query string, cardID int64, from, to time.Time) ([]models.BucketCount, error) {
	rows, err := r.db.Pool.Query(ctx, query, cardID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket counts: %w", err)
	}
	defer rows.Close()

	counts := []models.BucketCount{}
	for rows.Next() {
		var c models.BucketCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan bucket count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bucket counts: %w", err)
	}

	return counts, nil
}
