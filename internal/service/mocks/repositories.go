package mocks

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/repository"
	"github.com/google/uuid"
)

// MockCardRepository implements repository.CardRepository for testing
type MockCardRepository struct {
	mu               sync.RWMutex
	cards            map[int64]*models.Card
	nextID           int64
	slugConflictNext bool
}

func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{
		cards:  make(map[int64]*models.Card),
		nextID: 1,
	}
}

// FailNextWriteWithSlugConflict makes the next Create or Update return
// repository.ErrSlugExists regardless of stored state, emulating a
// concurrent slug claim committing between the availability check and
// the write.
func (m *MockCardRepository) FailNextWriteWithSlugConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slugConflictNext = true
}

func (m *MockCardRepository) Create(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slugConflictNext {
		m.slugConflictNext = false
		return repository.ErrSlugExists
	}

	if card.Slug != nil {
		for _, c := range m.cards {
			if c.Slug != nil && *c.Slug == *card.Slug {
				return repository.ErrSlugExists
			}
		}
	}

	card.ID = m.nextID
	m.nextID++
	card.UID = uuid.NewString()
	card.IsActive = true
	card.CreatedAt = time.Now().UTC()
	card.UpdatedAt = card.CreatedAt

	stored := *card
	m.cards[card.ID] = &stored
	return nil
}

func (m *MockCardRepository) Update(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.cards[card.ID]
	if !ok || existing.OwnerID != card.OwnerID {
		return repository.ErrCardNotFound
	}

	if m.slugConflictNext {
		m.slugConflictNext = false
		return repository.ErrSlugExists
	}

	if card.Slug != nil {
		for id, c := range m.cards {
			if id != card.ID && c.Slug != nil && *c.Slug == *card.Slug {
				return repository.ErrSlugExists
			}
		}
	}

	existing.Data = card.Data
	existing.Slug = card.Slug
	existing.UpdatedAt = time.Now().UTC()
	*card = *existing
	return nil
}

func (m *MockCardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MockCardRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[id]
	if !ok || card.OwnerID != ownerID {
		return nil, repository.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MockCardRepository) GetBySlug(ctx context.Context, slug string) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, card := range m.cards {
		if card.Slug != nil && *card.Slug == slug {
			copied := *card
			return &copied, nil
		}
	}
	return nil, repository.ErrCardNotFound
}

func (m *MockCardRepository) FindIDBySlug(ctx context.Context, slug string) (int64, error) {
	card, err := m.GetBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	return card.ID, nil
}

func (m *MockCardRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.CardWithViews, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cards := []models.CardWithViews{}
	for _, card := range m.cards {
		if card.OwnerID == ownerID {
			cards = append(cards, models.CardWithViews{Card: *card})
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].UpdatedAt.After(cards[j].UpdatedAt)
	})
	return cards, nil
}

func (m *MockCardRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, card := range m.cards {
		if card.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *MockCardRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[id]
	if !ok || card.OwnerID != ownerID {
		return repository.ErrCardNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *MockCardRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = make(map[int64]*models.Card)
	m.nextID = 1
}

// MockEventRepository implements repository.EventRepository for testing.
// Stored events are shared with MockAnalyticsRepository.
type MockEventRepository struct {
	mu     sync.RWMutex
	views  []models.View
	clicks []models.Click
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) InsertView(ctx context.Context, view *models.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	view.ID = int64(len(m.views) + 1)
	m.views = append(m.views, *view)
	return nil
}

func (m *MockEventRepository) InsertClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	click.ID = int64(len(m.clicks) + 1)
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MockEventRepository) DeleteByCard(ctx context.Context, cardID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := m.views[:0]
	for _, v := range m.views {
		if v.CardID != cardID {
			views = append(views, v)
		}
	}
	m.views = views

	clicks := m.clicks[:0]
	for _, c := range m.clicks {
		if c.CardID != cardID {
			clicks = append(clicks, c)
		}
	}
	m.clicks = clicks
	return nil
}

func (m *MockEventRepository) Views(cardID int64) []models.View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var views []models.View
	for _, v := range m.views {
		if v.CardID == cardID {
			views = append(views, v)
		}
	}
	return views
}

func (m *MockEventRepository) Clicks(cardID int64) []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var clicks []models.Click
	for _, c := range m.clicks {
		if c.CardID == cardID {
			clicks = append(clicks, c)
		}
	}
	return clicks
}

// MockAnalyticsRepository implements repository.AnalyticsRepository
// over the events stored in a MockEventRepository
type MockAnalyticsRepository struct {
	events *MockEventRepository
}

func NewMockAnalyticsRepository(events *MockEventRepository) *MockAnalyticsRepository {
	return &MockAnalyticsRepository{events: events}
}

func (m *MockAnalyticsRepository) DailyViewCounts(ctx context.Context, cardID int64, from, to time.Time) ([]repository.DailyCount, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	byDay := make(map[time.Time]int64)
	for _, v := range m.events.views {
		if v.CardID == cardID && inRange(v.ViewedAt, from, to) {
			byDay[truncateDay(v.ViewedAt)]++
		}
	}
	return dailyCounts(byDay), nil
}

func (m *MockAnalyticsRepository) DailyClickCounts(ctx context.Context, cardID int64, from, to time.Time) ([]repository.DailyCount, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	byDay := make(map[time.Time]int64)
	for _, c := range m.events.clicks {
		if c.CardID == cardID && inRange(c.ClickedAt, from, to) {
			byDay[truncateDay(c.ClickedAt)]++
		}
	}
	return dailyCounts(byDay), nil
}

func (m *MockAnalyticsRepository) ClickBreakdown(ctx context.Context, cardID int64, from, to time.Time) ([]models.ClickBreakdownItem, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	counts := make(map[string]*models.ClickBreakdownItem)
	for _, c := range m.events.clicks {
		if c.CardID != cardID || !inRange(c.ClickedAt, from, to) {
			continue
		}
		key := c.Type + "\x00" + c.TargetInfo
		if item, ok := counts[key]; ok {
			item.Count++
		} else {
			counts[key] = &models.ClickBreakdownItem{Type: c.Type, TargetInfo: c.TargetInfo, Count: 1}
		}
	}

	items := []models.ClickBreakdownItem{}
	for _, item := range counts {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return strings.Compare(items[i].Type+items[i].TargetInfo, items[j].Type+items[j].TargetInfo) < 0
	})
	return items, nil
}

func (m *MockAnalyticsRepository) RecentGeoViews(ctx context.Context, cardID int64, limit int) ([]models.GeoPoint, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	var withGeo []models.View
	for _, v := range m.events.views {
		if v.CardID == cardID && v.Latitude != nil && v.Longitude != nil {
			withGeo = append(withGeo, v)
		}
	}
	sort.Slice(withGeo, func(i, j int) bool {
		return withGeo[i].ViewedAt.After(withGeo[j].ViewedAt)
	})
	if len(withGeo) > limit {
		withGeo = withGeo[:limit]
	}

	points := []models.GeoPoint{}
	for _, v := range withGeo {
		lat, errLat := parseCoord(*v.Latitude)
		lng, errLng := parseCoord(*v.Longitude)
		if errLat != nil || errLng != nil {
			continue
		}
		points = append(points, models.GeoPoint{
			City:      v.City,
			Region:    v.Region,
			Country:   v.Country,
			Latitude:  lat,
			Longitude: lng,
			ViewedAt:  v.ViewedAt,
		})
	}
	return points, nil
}

func (m *MockAnalyticsRepository) DeviceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	byLabel := make(map[string]int64)
	for _, v := range m.events.views {
		if v.CardID == cardID && inRange(v.ViewedAt, from, to) {
			label := v.DeviceType
			if label == "" {
				label = "unknown"
			}
			byLabel[label]++
		}
	}
	return bucketCounts(byLabel), nil
}

func (m *MockAnalyticsRepository) SourceCounts(ctx context.Context, cardID int64, from, to time.Time) ([]models.BucketCount, error) {
	m.events.mu.RLock()
	defer m.events.mu.RUnlock()

	byLabel := make(map[string]int64)
	for _, v := range m.events.views {
		if v.CardID == cardID && inRange(v.ViewedAt, from, to) {
			label := v.Source
			if label == "" {
				label = "direct"
			}
			byLabel[label]++
		}
	}
	return bucketCounts(byLabel), nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Card
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Card),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, slug string) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cache[slug]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, slug string, card *models.Card, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *card
	m.cache[slug] = &copied
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, slug)
	return nil
}

func (m *MockCacheRepository) Contains(slug string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[slug]
	return ok
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*models.Card)
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dailyCounts(byDay map[time.Time]int64) []repository.DailyCount {
	counts := []repository.DailyCount{}
	for day, count := range byDay {
		counts = append(counts, repository.DailyCount{Day: day, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Day.Before(counts[j].Day)
	})
	return counts
}

func bucketCounts(byLabel map[string]int64) []models.BucketCount {
	counts := []models.BucketCount{}
	for label, count := range byLabel {
		counts = append(counts, models.BucketCount{Label: label, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	return counts
}

func parseCoord(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
