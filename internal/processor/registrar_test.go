package processor

import (
	"testing"
	"time"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

func ticketAt(mobile, drawID string, hour int) model.TicketRecord {
	return model.TicketRecord{
		Mobile:     mobile,
		DrawID:     drawID,
		PlayerName: "Mensah Kofi",
		Ticket:     "787-000000001A",
		Price:      "GHS 2.00",
		Created:    time.Date(2025, 1, 15, hour, 0, 0, 0, time.UTC),
	}
}

func TestAssignDrawNumbers_AfternoonFirst(t *testing.T) {
	s := state.New()
	// Вечерний тираж идёт в файле первым, но меньший номер
	// должен получить дневной.
	batch := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "draw-evening", 19),
		ticketAt("233200000001", "draw-afternoon", 13),
	}}

	mapping := AssignDrawNumbers(s, batch)

	if mapping["draw-afternoon"] != 301 {
		t.Fatalf("afternoon draw = %d, want 301", mapping["draw-afternoon"])
	}
	if mapping["draw-evening"] != 302 {
		t.Fatalf("evening draw = %d, want 302", mapping["draw-evening"])
	}
	if s.LastDrawNumber != 302 {
		t.Fatalf("LastDrawNumber = %d, want 302", s.LastDrawNumber)
	}
}

func TestAssignDrawNumbers_IdempotentPerID(t *testing.T) {
	s := state.New()
	batch := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "draw-a", 13),
		ticketAt("233200000001", "draw-b", 19),
	}}

	first := AssignDrawNumbers(s, batch)
	second := AssignDrawNumbers(s, batch)

	if first["draw-a"] != second["draw-a"] || first["draw-b"] != second["draw-b"] {
		t.Fatalf("reassignment changed numbers: %v vs %v", first, second)
	}
	if s.LastDrawNumber != 302 {
		t.Fatalf("LastDrawNumber = %d, want 302 after reassignment", s.LastDrawNumber)
	}
}

func TestAssignDrawNumbers_MonotonicAcrossBatches(t *testing.T) {
	s := state.New()

	day1 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "day1-a", 13),
		ticketAt("233200000001", "day1-b", 19),
	}}
	day2 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "day2-a", 13),
		ticketAt("233200000001", "day2-b", 19),
	}}

	m1 := AssignDrawNumbers(s, day1)
	m2 := AssignDrawNumbers(s, day2)

	for _, n1 := range m1 {
		for _, n2 := range m2 {
			if n1 >= n2 {
				t.Fatalf("draw numbers must be monotonic across batches: %v then %v", m1, m2)
			}
		}
	}
}

func TestAssignDrawNumbers_TieBreakByID(t *testing.T) {
	s := state.New()
	batch := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "draw-z", 13),
		ticketAt("233200000001", "draw-a", 13),
	}}

	mapping := AssignDrawNumbers(s, batch)

	if mapping["draw-a"] != 301 || mapping["draw-z"] != 302 {
		t.Fatalf("tie break by id failed: %v", mapping)
	}
}
