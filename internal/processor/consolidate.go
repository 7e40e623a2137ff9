package processor

import (
	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

// defaultConsent — согласие на рекламу по умолчанию для впервые
// встреченного игрока; профиль игрока этим конвейером не ведётся.
const defaultConsent = "Y"

// Consolidated — широкая консолидированная проекция состояния для игроков
// текущего пакета: по одной колонке билетов на каждый известный номер тиража.
type Consolidated struct {
	FirstDraw int
	LastDraw  int
	Rows      []model.ConsolidatedRow
}

// BuildConsolidated строит консолидированные строки для игроков текущего
// пакета. Колонки идут от первого номера тиража до текущего максимума,
// отсутствующая история заполняется нулями. Строки прежних пакетов здесь
// не перегенерируются: запись в хранилище выполняется апсертом ниже по
// конвейеру.
func BuildConsolidated(s *state.ProcessorState, batch *model.Batch) *Consolidated {
	firstRecord := make(map[string]model.TicketRecord)
	for _, r := range batch.Records {
		if _, ok := firstRecord[r.Mobile]; !ok {
			firstRecord[r.Mobile] = r
		}
	}

	c := &Consolidated{
		FirstDraw: state.FirstDrawNumber,
		LastDraw:  s.LastDrawNumber,
	}

	for _, mobile := range batch.Mobiles() {
		rec := firstRecord[mobile]
		h := s.HistoryFor(mobile)

		tickets := make([]int, 0, c.LastDraw-c.FirstDraw+1)
		for num := c.FirstDraw; num <= c.LastDraw; num++ {
			count := 0
			if h != nil {
				count = h.Tickets[num]
			}
			tickets = append(tickets, count)
		}

		c.Rows = append(c.Rows, model.ConsolidatedRow{
			LastName:           rec.LastName(),
			OtherNames:         rec.OtherNames(),
			Mobile:             mobile,
			PromotionalConsent: defaultConsent,
			Created:            rec.Created,
			EScore:             CalculateEScore(s, mobile),
			Segment:            CalculateSegment(s, mobile),
			Gear:               CalculateGear(s, mobile),
			Tickets:            tickets,
		})
	}

	return c
}
