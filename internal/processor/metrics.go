package processor

import (
	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

// recentWindowSize — размер скользящего окна метрик:
// 4 игровых цикла по 2 тиража в день.
const recentWindowSize = 8

// maxGear — максимальное значение показателя пропусков.
const maxGear = 4

// CalculateEScore возвращает накопительный счёт вовлечённости игрока:
// сумму его билетов по всем известным номерам тиражей.
func CalculateEScore(s *state.ProcessorState, mobile string) int {
	h := s.HistoryFor(mobile)
	if h == nil {
		return 0
	}
	total := 0
	for _, tickets := range h.Tickets {
		total += tickets
	}
	return total
}

// CalculateSegment возвращает сегмент игрока от A до E по последним
// четырём циклам. Пока известно меньше восьми тиражей, истории недостаточно
// для оценки и игрок получает сегмент E. Цикл засчитывается, если игрок
// участвовал хотя бы в одном из двух его тиражей.
func CalculateSegment(s *state.ProcessorState, mobile string) model.Segment {
	known := s.KnownDrawNumbers()
	if len(known) < recentWindowSize {
		return model.SegmentE
	}

	window := known[len(known)-recentWindowSize:]
	h := s.HistoryFor(mobile)

	cycles := 0
	for i := 0; i < len(window); i += 2 {
		if participated(h, window[i]) || participated(h, window[i+1]) {
			cycles++
		}
	}

	switch cycles {
	case 4:
		return model.SegmentA
	case 3:
		return model.SegmentB
	case 2:
		return model.SegmentC
	case 1:
		return model.SegmentD
	default:
		return model.SegmentE
	}
}

// CalculateGear возвращает число пропущенных тиражей в концептуальном окне
// из восьми последних. Тиражи, которых ещё не существует, считаются
// пропущенными, поэтому для пустой истории значение равно максимуму.
// Результат ограничен сверху значением maxGear.
func CalculateGear(s *state.ProcessorState, mobile string) int {
	known := s.KnownDrawNumbers()
	window := known
	if len(window) > recentWindowSize {
		window = window[len(window)-recentWindowSize:]
	}

	h := s.HistoryFor(mobile)
	missed := recentWindowSize - len(window)
	for _, num := range window {
		if !participated(h, num) {
			missed++
		}
	}

	if missed > maxGear {
		return maxGear
	}
	return missed
}

func participated(h *state.PlayerHistory, drawNumber int) bool {
	return h != nil && h.Participation[drawNumber]
}
