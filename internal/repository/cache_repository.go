package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akarpovich/cardlink/internal/models"
)

// CacheRepository кэш публичных карточек по слагу. Горячий путь —
// загрузка публичной страницы; запись инвалидируется при сохранении
// и удалении карточки.
type CacheRepository interface {
	Get(ctx context.Context, slug string) (*models.Card, error)
	Set(ctx context.Context, slug string, card *models.Card, ttl time.Duration) error
	Delete(ctx context.Context, slug string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, slug string) (*models.Card, error) {
	data, err := r.redis.Client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		return nil, err
	}

	var card models.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card: %w", err)
	}

	return &card, nil
}

func (r *cacheRepository) Set(ctx context.Context, slug string, card *models.Card, ttl time.Duration) error {
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(slug), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, slug string) error {
	return r.redis.Client.Del(ctx, r.key(slug)).Err()
}

func (r *cacheRepository) key(slug string) string {
	return "card:slug:" + slug
}
