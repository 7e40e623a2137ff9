// Package model содержит доменные сущности конвейера лотерейных тиражей.
package model

import (
	"strings"
	"time"
)

// CreatedLayout — формат поля CREATED во входных файлах.
const CreatedLayout = "02/01/2006 15:04"

// BatchDateLayout — формат даты пакета в реестре обработанных файлов.
const BatchDateLayout = "2006-01-02"

// TicketRecord представляет одну проверенную строку дневного файла билетов.
type TicketRecord struct {
	Mobile     string
	DrawID     string
	PlayerName string
	Ticket     string
	Price      string
	Created    time.Time
}

// LastName возвращает фамилию игрока (первое слово поля PLAYER_NAME).
func (r TicketRecord) LastName() string {
	parts := strings.Fields(r.PlayerName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// OtherNames возвращает остальные части имени игрока.
func (r TicketRecord) OtherNames() string {
	parts := strings.Fields(r.PlayerName)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// Batch представляет один проверенный дневной пакет билетов.
type Batch struct {
	Date    time.Time
	Records []TicketRecord
}

// DateKey возвращает дату пакета в виде ключа реестра обработанных файлов.
func (b *Batch) DateKey() string {
	return b.Date.Format(BatchDateLayout)
}

// Mobiles возвращает номера игроков пакета в порядке первого появления.
func (b *Batch) Mobiles() []string {
	seen := make(map[string]bool)
	var res []string
	for _, r := range b.Records {
		if !seen[r.Mobile] {
			seen[r.Mobile] = true
			res = append(res, r.Mobile)
		}
	}
	return res
}

// DrawIDs возвращает идентификаторы тиражей пакета в порядке первого появления.
func (b *Batch) DrawIDs() []string {
	seen := make(map[string]bool)
	var res []string
	for _, r := range b.Records {
		if !seen[r.DrawID] {
			seen[r.DrawID] = true
			res = append(res, r.DrawID)
		}
	}
	return res
}

// DrawType описывает тип тиража по временному окну продаж.
type DrawType string

const (
	DrawTypeAfternoon DrawType = "AFTERNOON"
	DrawTypeEvening   DrawType = "EVENING"
	DrawTypeUnknown   DrawType = "UNKNOWN"
)

// DrawTypeForHour определяет тип тиража по часу покупки билета.
// Дневное окно — 12:00-15:59, вечернее — 18:00-21:59.
func DrawTypeForHour(hour int) DrawType {
	switch {
	case hour >= 12 && hour <= 15:
		return DrawTypeAfternoon
	case hour >= 18 && hour <= 21:
		return DrawTypeEvening
	default:
		return DrawTypeUnknown
	}
}

// Segment описывает сегмент вовлечённости игрока от A (лучший) до E (худший).
type Segment string

const (
	SegmentA Segment = "A"
	SegmentB Segment = "B"
	SegmentC Segment = "C"
	SegmentD Segment = "D"
	SegmentE Segment = "E"
)

// Player описывает запись игрока для хранилища.
type Player struct {
	Mobile             string
	LastName           string
	OtherNames         string
	PromotionalConsent string
	CreatedAt          time.Time
}

// MetricEntry описывает одну запись метрик игрока по тиражу.
// Записи только добавляются, существующие никогда не изменяются.
type MetricEntry struct {
	Mobile       string
	DrawNumber   int
	TicketsCount int
	EScore       int
	Segment      Segment
	Gear         int
	UpdatedAt    time.Time
}

// ConsolidatedRow представляет одну строку широкой консолидированной таблицы:
// идентность игрока, производные метрики и количество билетов по каждому
// известному номеру тиража начиная с первого (плотно, с нулями).
type ConsolidatedRow struct {
	LastName           string
	OtherNames         string
	Mobile             string
	PromotionalConsent string
	Created            time.Time
	EScore             int
	Segment            Segment
	Gear               int
	Tickets            []int
}
