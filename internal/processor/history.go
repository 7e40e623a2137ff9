package processor

import (
	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

// ApplyHistory сворачивает билеты пакета в персистентную историю игроков.
// Для каждой пары (игрок, тираж) выставляется факт участия и число билетов
// по номеру тиража из переданного отображения. Пара (игрок, номер тиража)
// заполняется ровно один раз за всю жизнь системы: номер тиража рождается
// ровно из одного пакета. Повторная запись указывает на дефект реестра —
// она логируется и существующее значение не перезаписывается.
func ApplyHistory(s *state.ProcessorState, batch *model.Batch, drawMapping map[string]int, logger *zap.Logger) {
	counts := make(map[string]map[string]int)
	for _, r := range batch.Records {
		byDraw, ok := counts[r.Mobile]
		if !ok {
			byDraw = make(map[string]int)
			counts[r.Mobile] = byDraw
		}
		byDraw[r.DrawID]++
	}

	for _, mobile := range batch.Mobiles() {
		h := s.EnsureHistory(mobile)
		for drawID, tickets := range counts[mobile] {
			num := drawMapping[drawID]
			if _, exists := h.Tickets[num]; exists {
				logger.Warn("player history already set for draw, keeping existing value",
					zap.String("mobile", mobile),
					zap.String("drawID", drawID),
					zap.Int("drawNumber", num))
				continue
			}
			h.Participation[num] = true
			h.Tickets[num] = tickets
		}
	}
}
