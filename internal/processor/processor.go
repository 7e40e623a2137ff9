// Package processor реализует ядро конвейера: назначение номеров тиражей,
// накопление истории игроков, расчёт метрик и консолидацию.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
	"github.com/mmeshcher/lottery-pipeline/internal/validation"
)

// ErrDuplicateBatch возвращается для пакета, дата которого уже есть в реестре.
var ErrDuplicateBatch = errors.New("batch date already processed")

// ErrOutOfOrderBatch возвращается для пакета с датой раньше уже обработанных.
// Нумерация тиражей и окно последних тиражей чувствительны к порядку,
// поэтому нарушение порядка отклоняется до любых изменений состояния.
var ErrOutOfOrderBatch = errors.New("batch date earlier than already processed batches")

// Sink описывает контракт внешнего хранилища: апсерт игроков и добавление
// метрик в рамках одной транзакции на пакет.
type Sink interface {
	SaveBatch(ctx context.Context, players []model.Player, metrics []model.MetricEntry) error
}

// Outcome — итог обработки одного файла.
type Outcome string

const (
	OutcomeProcessed        Outcome = "PROCESSED"
	OutcomeValidationFailed Outcome = "VALIDATION_FAILED"
	OutcomeDuplicate        Outcome = "DUPLICATE_BATCH"
	OutcomeOutOfOrder       Outcome = "OUT_OF_ORDER_BATCH"
	OutcomeFailed           Outcome = "FAILED"
)

// Result описывает итог обработки файла для вызывающей стороны,
// которая решает, куда переместить файл.
type Result struct {
	Outcome          Outcome
	ValidationErrors []validation.Error
	Consolidated     *Consolidated
	Err              error
}

// Processor — контроллер конвейера. Обрабатывает по одному файлу за раз:
// проверка → регистрация тиражей → накопление истории → расчёт метрик →
// консолидация → запись в хранилище → фиксация состояния. Всё изменение
// разделяемого состояния происходит только внутри этого потока управления.
type Processor struct {
	mu     sync.Mutex
	store  *state.Store
	state  *state.ProcessorState
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

// New создаёт контроллер конвейера и загружает сохранённое состояние.
func New(store *state.Store, sink Sink, logger *zap.Logger) *Processor {
	return &Processor{
		store:  store,
		state:  store.Load(),
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot возвращает сводку текущего состояния конвейера.
func (p *Processor) Snapshot() state.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Summary()
}

// ProcessFile проводит один файл через весь конвейер. Пакет либо полностью
// обновляет реестр тиражей, историю и реестр обработанных дат, либо — при
// любой ошибке до фиксации — не оставляет следов в сохранённом состоянии.
func (p *Processor) ProcessFile(ctx context.Context, path string) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := validation.ValidateFile(path)
	if !res.Valid {
		return Result{Outcome: OutcomeValidationFailed, ValidationErrors: res.Errors}
	}
	batch := res.Batch
	date := batch.DateKey()

	if p.state.DateProcessed(date) {
		return Result{Outcome: OutcomeDuplicate, Err: fmt.Errorf("%w: %s", ErrDuplicateBatch, date)}
	}
	if latest, ok := p.state.LatestProcessedDate(); ok && date < latest {
		return Result{Outcome: OutcomeOutOfOrder, Err: fmt.Errorf("%w: %s after %s", ErrOutOfOrderBatch, date, latest)}
	}

	// Все изменения выполняются на копии: копия принимается только после
	// успешной записи в хранилище и фиксации состояния на диске.
	next := p.state.Clone()

	drawMapping := AssignDrawNumbers(next, batch)
	p.logger.Info("draw numbers assigned",
		zap.String("date", date), zap.Any("mapping", drawMapping))

	ApplyHistory(next, batch, drawMapping, p.logger)

	consolidated := BuildConsolidated(next, batch)
	players, metrics := p.sinkRows(consolidated)

	if err := p.sink.SaveBatch(ctx, players, metrics); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("persist batch: %w", err)}
	}

	next.MarkProcessed(date)
	if err := p.store.Save(next); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("commit state: %w", err)}
	}

	p.state = next
	p.logger.Info("batch processed",
		zap.String("date", date),
		zap.Int("players", len(consolidated.Rows)),
		zap.Int("lastDrawNumber", next.LastDrawNumber))

	return Result{Outcome: OutcomeProcessed, Consolidated: consolidated}
}

// sinkRows превращает консолидированные строки в записи для хранилища:
// по одному игроку на строку и по одной метрике на каждый ненулевой
// счётчик билетов.
func (p *Processor) sinkRows(c *Consolidated) ([]model.Player, []model.MetricEntry) {
	now := p.now().UTC()

	players := make([]model.Player, 0, len(c.Rows))
	var metrics []model.MetricEntry
	for _, row := range c.Rows {
		players = append(players, model.Player{
			Mobile:             row.Mobile,
			LastName:           row.LastName,
			OtherNames:         row.OtherNames,
			PromotionalConsent: row.PromotionalConsent,
			CreatedAt:          row.Created,
		})
		for i, count := range row.Tickets {
			if count == 0 {
				continue
			}
			metrics = append(metrics, model.MetricEntry{
				Mobile:       row.Mobile,
				DrawNumber:   c.FirstDraw + i,
				TicketsCount: count,
				EScore:       row.EScore,
				Segment:      row.Segment,
				Gear:         row.Gear,
				UpdatedAt:    now,
			})
		}
	}
	return players, metrics
}
