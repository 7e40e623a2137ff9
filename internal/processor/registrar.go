package processor

import (
	"sort"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

// AssignDrawNumbers назначает постоянные номера тиражам пакета, которые
// встречаются впервые. Уже известные идентификаторы переиспользуют прежний
// номер: назначение идемпотентно по идентификатору. Тиражи обрабатываются
// по возрастанию среднего часа покупки (дневной тираж получает меньший
// номер), при равенстве — по идентификатору. Возвращается отображение
// идентификатор→номер, ограниченное тиражами текущего пакета.
func AssignDrawNumbers(s *state.ProcessorState, batch *model.Batch) map[string]int {
	type drawOrder struct {
		id       string
		meanHour float64
	}

	hours := make(map[string][]int)
	for _, r := range batch.Records {
		hours[r.DrawID] = append(hours[r.DrawID], r.Created.Hour())
	}

	draws := make([]drawOrder, 0, len(hours))
	for _, id := range batch.DrawIDs() {
		draws = append(draws, drawOrder{id: id, meanHour: meanHour(hours[id])})
	}
	sort.Slice(draws, func(i, j int) bool {
		if draws[i].meanHour != draws[j].meanHour {
			return draws[i].meanHour < draws[j].meanHour
		}
		return draws[i].id < draws[j].id
	})

	mapping := make(map[string]int, len(draws))
	for _, d := range draws {
		if num, ok := s.DrawMapping[d.id]; ok {
			mapping[d.id] = num
			continue
		}
		s.LastDrawNumber++
		s.DrawMapping[d.id] = s.LastDrawNumber
		mapping[d.id] = s.LastDrawNumber
	}
	return mapping
}

func meanHour(hours []int) float64 {
	if len(hours) == 0 {
		return 0
	}
	sum := 0
	for _, h := range hours {
		sum += h
	}
	return float64(sum) / float64(len(hours))
}
