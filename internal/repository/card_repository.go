package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrSlugExists   = errors.New("slug already exists")
)

const cardColumns = `id, uid, user_id, data, slug, is_active, created_at, updated_at`

// CardRepository операции над строками business_cards
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	Update(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Card, error)
	GetBySlug(ctx context.Context, slug string) (*models.Card, error)
	FindIDBySlug(ctx context.Context, slug string) (int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.CardWithViews, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Delete(ctx context.Context, id int64, ownerID string) error
}

type cardRepository struct {
	db *PostgresDB
}

func NewCardRepository(db *PostgresDB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO business_cards (uid, user_id, data, slug)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uid, is_active, created_at, updated_at
	`

	card.UID = uuid.NewString()

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		card.UID,
		card.OwnerID,
		card.Data,
		card.Slug,
	).Scan(&card.ID, &card.UID, &card.IsActive, &card.CreatedAt, &card.UpdatedAt)

	if err != nil {
		if isSlugViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// Update обновляет содержимое и слаг строго по паре (id, владелец),
// чтобы чужую карточку нельзя было перезаписать по одному только id
func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE business_cards
		SET data = $1, slug = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
		RETURNING ` + cardColumns

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		card.Data,
		card.Slug,
		card.ID,
		card.OwnerID,
	).Scan(
		&card.ID, &card.UID, &card.OwnerID, &card.Data,
		&card.Slug, &card.IsActive, &card.CreatedAt, &card.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCardNotFound
		}
		if isSlugViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to update card: %w", err)
	}

	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE id = $1`
	return r.scanCard(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *cardRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE id = $1 AND user_id = $2`
	return r.scanCard(r.db.Pool.QueryRow(ctx, query, id, ownerID))
}

func (r *cardRepository) GetBySlug(ctx context.Context, slug string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE slug = $1`
	return r.scanCard(r.db.Pool.QueryRow(ctx, query, slug))
}

func (r *cardRepository) FindIDBySlug(ctx context.Context, slug string) (int64, error) {
	query := `SELECT id FROM business_cards WHERE slug = $1`

	var cardID int64
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(&cardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCardNotFound
		}
		return 0, fmt.Errorf("failed to get card ID: %w", err)
	}

	return cardID, nil
}

// ListByOwner возвращает карточки владельца с числом просмотров,
// от недавно обновлённых к старым
func (r *cardRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.CardWithViews, error) {
	query := `
		SELECT c.id, c.uid, c.user_id, c.data, c.slug, c.is_active, c.created_at, c.updated_at,
			COUNT(v.id) AS view_count
		FROM business_cards c
		LEFT JOIN card_views v ON v.card_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.updated_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.CardWithViews{}
	for rows.Next() {
		var c models.CardWithViews
		if err := rows.Scan(
			&c.ID, &c.UID, &c.OwnerID, &c.Data,
			&c.Slug, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&c.ViewCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

func (r *cardRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COUNT(*) FROM business_cards WHERE user_id = $1`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}

	return count, nil
}

// Delete удаляет строку карточки по паре (id, владелец). Зависимые
// события должны быть удалены до вызова, см. EventRepository.DeleteByCard.
func (r *cardRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	query := `DELETE FROM business_cards WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCardNotFound
	}

	return nil
}

func (r *cardRepository) scanCard(row pgx.Row) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(
		&card.ID, &card.UID, &card.OwnerID, &card.Data,
		&card.Slug, &card.IsActive, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// isSlugViolation распознаёт нарушение уникального индекса слага
// (23505 в терминах postgres)
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "business_cards_slug_key"
}
