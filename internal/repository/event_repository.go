package repository

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/akarpovich/cardlink/internal/models"
)

// EventRepository append-only запись событий аналитики и их каскадное
// удаление вместе с карточкой
type EventRepository interface {
	InsertView(ctx context.Context, view *models.View) error
	InsertClick(ctx context.Context, click *models.Click) error
	DeleteByCard(ctx context.Context, cardID int64) error
}

type eventRepository struct {
	db *PostgresDB
}

func NewEventRepository(db *PostgresDB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) InsertView(ctx context.Context, view *models.View) error {
	query := `
		INSERT INTO card_views (
			card_id, referrer, user_agent, device_type,
			city, region, country, latitude, longitude,
			ip_address, source, viewed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		view.CardID,
		view.Referrer,
		view.UserAgent,
		view.DeviceType,
		view.City,
		view.Region,
		view.Country,
		view.Latitude,
		view.Longitude,
		view.IPAddress,
		view.Source,
		view.ViewedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}

	return nil
}

func (r *eventRepository) InsertClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO card_clicks (card_id, type, target_info, user_agent, clicked_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		click.CardID,
		click.Type,
		click.TargetInfo,
		click.UserAgent,
		click.ClickedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

// DeleteByCard удаляет просмотры и клики карточки. Между двумя
// таблицами нет зависимости по порядку, поэтому удаления идут
// параллельно; строка карточки удаляется строго после обоих.
func (r *eventRepository) DeleteByCard(ctx context.Context, cardID int64) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := r.db.Pool.Exec(ctx, `DELETE FROM card_views WHERE card_id = $1`, cardID); err != nil {
			return fmt.Errorf("failed to delete views: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if _, err := r.db.Pool.Exec(ctx, `DELETE FROM card_clicks WHERE card_id = $1`, cardID); err != nil {
			return fmt.Errorf("failed to delete clicks: %w", err)
		}
		return nil
	})

	return g.Wait()
}
