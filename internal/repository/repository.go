package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/akarpovich/cardlink/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	// Настройка пула соединений
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{Pool: pool}

	if err := db.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}

// migrate идемпотентно создаёт схему. Уникальный индекс на slug —
// последняя линия защиты от гонки check-then-act при сохранении.
func (db *PostgresDB) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS business_cards (
			id SERIAL PRIMARY KEY,
			uid UUID NOT NULL UNIQUE,
			user_id TEXT,
			data JSONB NOT NULL,
			slug TEXT UNIQUE,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_business_cards_user_id ON business_cards(user_id);

		CREATE TABLE IF NOT EXISTS card_views (
			id SERIAL PRIMARY KEY,
			card_id INTEGER NOT NULL REFERENCES business_cards(id),
			referrer TEXT,
			user_agent TEXT,
			device_type TEXT,
			city TEXT,
			region TEXT,
			country TEXT,
			latitude TEXT,
			longitude TEXT,
			ip_address TEXT,
			source TEXT,
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_card_views_card_id_viewed_at ON card_views(card_id, viewed_at);

		CREATE TABLE IF NOT EXISTS card_clicks (
			id SERIAL PRIMARY KEY,
			card_id INTEGER NOT NULL REFERENCES business_cards(id),
			type TEXT NOT NULL,
			target_info TEXT,
			user_agent TEXT,
			clicked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_card_clicks_card_id_clicked_at ON card_clicks(card_id, clicked_at);
	`

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return err
	}

	return nil
}
