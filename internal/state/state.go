// Package state содержит персистентное состояние конвейера и его хранилище.
package state

import "sort"

// FirstDrawNumber — первый назначаемый номер тиража.
const FirstDrawNumber = 301

// PlayerHistory хранит историю игрока по известным номерам тиражей:
// факт участия и количество билетов. История только растёт, значение
// для уже известного номера тиража никогда не пересматривается.
type PlayerHistory struct {
	Participation map[int]bool
	Tickets       map[int]int
}

func newPlayerHistory() *PlayerHistory {
	return &PlayerHistory{
		Participation: make(map[int]bool),
		Tickets:       make(map[int]int),
	}
}

// ProcessorState — корневой персистентный агрегат конвейера: счётчик номеров
// тиражей, реестр обработанных дат, отображение идентификаторов тиражей в
// номера и истории всех игроков. В памяти ключи целочисленные, строковыми
// они становятся только на границе сериализации.
type ProcessorState struct {
	LastDrawNumber int
	ProcessedDates []string
	PlayerHistory  map[string]*PlayerHistory
	DrawMapping    map[string]int
}

// New создаёт пустое начальное состояние.
func New() *ProcessorState {
	return &ProcessorState{
		LastDrawNumber: FirstDrawNumber - 1,
		ProcessedDates: []string{},
		PlayerHistory:  make(map[string]*PlayerHistory),
		DrawMapping:    make(map[string]int),
	}
}

// Clone возвращает глубокую копию состояния. Контроллер изменяет копию и
// принимает её только после успешной фиксации пакета.
func (s *ProcessorState) Clone() *ProcessorState {
	c := &ProcessorState{
		LastDrawNumber: s.LastDrawNumber,
		ProcessedDates: make([]string, len(s.ProcessedDates)),
		PlayerHistory:  make(map[string]*PlayerHistory, len(s.PlayerHistory)),
		DrawMapping:    make(map[string]int, len(s.DrawMapping)),
	}
	copy(c.ProcessedDates, s.ProcessedDates)
	for id, num := range s.DrawMapping {
		c.DrawMapping[id] = num
	}
	for mobile, h := range s.PlayerHistory {
		ch := newPlayerHistory()
		for k, v := range h.Participation {
			ch.Participation[k] = v
		}
		for k, v := range h.Tickets {
			ch.Tickets[k] = v
		}
		c.PlayerHistory[mobile] = ch
	}
	return c
}

// DateProcessed сообщает, была ли дата пакета уже обработана.
func (s *ProcessorState) DateProcessed(date string) bool {
	for _, d := range s.ProcessedDates {
		if d == date {
			return true
		}
	}
	return false
}

// LatestProcessedDate возвращает самую позднюю обработанную дату.
// Даты хранятся в формате ISO и сравниваются лексикографически.
func (s *ProcessorState) LatestProcessedDate() (string, bool) {
	latest := ""
	for _, d := range s.ProcessedDates {
		if d > latest {
			latest = d
		}
	}
	return latest, latest != ""
}

// MarkProcessed добавляет дату пакета в реестр обработанных.
func (s *ProcessorState) MarkProcessed(date string) {
	s.ProcessedDates = append(s.ProcessedDates, date)
}

// KnownDrawNumbers возвращает все назначенные номера тиражей по возрастанию.
func (s *ProcessorState) KnownDrawNumbers() []int {
	res := make([]int, 0, len(s.DrawMapping))
	for _, num := range s.DrawMapping {
		res = append(res, num)
	}
	sort.Ints(res)
	return res
}

// HistoryFor возвращает историю игрока или nil, если игрок ещё не встречался.
func (s *ProcessorState) HistoryFor(mobile string) *PlayerHistory {
	return s.PlayerHistory[mobile]
}

// EnsureHistory возвращает историю игрока, создавая пустую при необходимости.
func (s *ProcessorState) EnsureHistory(mobile string) *PlayerHistory {
	h, ok := s.PlayerHistory[mobile]
	if !ok {
		h = newPlayerHistory()
		s.PlayerHistory[mobile] = h
	}
	return h
}

// Snapshot — сводка состояния для инспекционного API.
type Snapshot struct {
	LastDrawNumber   int    `json:"last_draw_number"`
	ProcessedBatches int    `json:"processed_batches"`
	LatestBatchDate  string `json:"latest_batch_date,omitempty"`
	KnownPlayers     int    `json:"known_players"`
}

// Summary возвращает сводку состояния.
func (s *ProcessorState) Summary() Snapshot {
	latest, _ := s.LatestProcessedDate()
	return Snapshot{
		LastDrawNumber:   s.LastDrawNumber,
		ProcessedBatches: len(s.ProcessedDates),
		LatestBatchDate:  latest,
		KnownPlayers:     len(s.PlayerHistory),
	}
}
