package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akarpovich/cardlink/internal/models"
	"github.com/akarpovich/cardlink/internal/repository"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	maxInsertRetries     = 3    // Максимальное количество попыток записи
)

// ViewRecorder асинхронная запись просмотров через worker pool.
// Запись просмотра никогда не должна задерживать отдачу публичной
// страницы, поэтому вставка уходит в фоновый канал, а сбои
// логируются и не возвращаются вызывающему.
type ViewRecorder interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, view *models.View) error
}

type viewRecorder struct {
	eventRepo   repository.EventRepository
	logger      *zap.Logger
	viewChannel chan *models.View
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewViewRecorder создаёт новый пул записи просмотров
func NewViewRecorder(eventRepo repository.EventRepository, logger *zap.Logger) ViewRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &viewRecorder{
		eventRepo:   eventRepo,
		logger:      logger,
		viewChannel: make(chan *models.View, defaultChannelBuffer),
		workerCount: defaultWorkerCount,
	}
}

// Start запускает воркеров
func (p *viewRecorder) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров записи просмотров", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает пул
func (p *viewRecorder) Stop() {
	p.logger.Info("Остановка записи просмотров...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Запись просмотров остановлена")
}

func (p *viewRecorder) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер просмотров запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Воркер просмотров остановлен", zap.Int("id", id))
			return

		case view, ok := <-p.viewChannel:
			if !ok {
				return
			}
			p.processView(view)
		}
	}
}

// processView вставляет один просмотр с retry-логикой
func (p *viewRecorder) processView(view *models.View) {
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()

	var err error
	for i := 0; i < maxInsertRetries; i++ {
		if err = p.eventRepo.InsertView(ctx, view); err == nil {
			return
		}
		if i < maxInsertRetries-1 {
			p.logger.Debug("Повторная попытка записи просмотра",
				zap.Int64("card_id", view.CardID),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	p.logger.Error("Не удалось записать просмотр после всех попыток",
		zap.Int64("card_id", view.CardID),
		zap.Error(err),
	)
}

// Enqueue отправляет просмотр в пул (неблокирующая операция)
func (p *viewRecorder) Enqueue(ctx context.Context, view *models.View) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.viewChannel <- view:
		return nil
	default:
		// Канал заполнен: теряем событие, но не блокируем запрос
		p.logger.Warn("Буфер канала просмотров заполнен, событие потеряно",
			zap.Int64("card_id", view.CardID),
		)
		return nil
	}
}
