package processor

import (
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
)

func TestBuildConsolidated_ZeroFillsUnplayedDraws(t *testing.T) {
	s := state.New()

	day1 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "day1-a", 13),
		ticketAt("233200000001", "day1-b", 19),
	}}
	ApplyHistory(s, day1, AssignDrawNumbers(s, day1), zap.NewNop())

	// Новый игрок появляется только во втором пакете: колонки первого дня
	// должны быть заполнены нулями.
	day2 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "day2-a", 13),
		ticketAt("233200000002", "day2-a", 14),
		ticketAt("233200000002", "day2-b", 19),
	}}
	ApplyHistory(s, day2, AssignDrawNumbers(s, day2), zap.NewNop())

	c := BuildConsolidated(s, day2)

	if c.FirstDraw != 301 || c.LastDraw != 304 {
		t.Fatalf("draw range = %d..%d, want 301..304", c.FirstDraw, c.LastDraw)
	}
	if len(c.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(c.Rows))
	}

	byMobile := make(map[string]model.ConsolidatedRow)
	for _, row := range c.Rows {
		byMobile[row.Mobile] = row
	}

	veteran := byMobile["233200000001"]
	if got := veteran.Tickets; len(got) != 4 || got[0] != 1 || got[1] != 1 || got[2] != 1 || got[3] != 0 {
		t.Fatalf("veteran tickets = %v, want [1 1 1 0]", got)
	}
	if veteran.EScore != 3 {
		t.Fatalf("veteran e-score = %d, want 3", veteran.EScore)
	}

	newcomer := byMobile["233200000002"]
	if got := newcomer.Tickets; len(got) != 4 || got[0] != 0 || got[1] != 0 || got[2] != 1 || got[3] != 1 {
		t.Fatalf("newcomer tickets = %v, want [0 0 1 1]", got)
	}
	if newcomer.EScore != 2 {
		t.Fatalf("newcomer e-score = %d, want 2", newcomer.EScore)
	}
	if newcomer.PromotionalConsent != "Y" {
		t.Fatalf("consent = %q, want Y", newcomer.PromotionalConsent)
	}
}

func TestBuildConsolidated_RowsOnlyForBatchPlayers(t *testing.T) {
	s := state.New()

	day1 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000001", "day1-a", 13),
		ticketAt("233200000001", "day1-b", 19),
	}}
	ApplyHistory(s, day1, AssignDrawNumbers(s, day1), zap.NewNop())

	day2 := &model.Batch{Records: []model.TicketRecord{
		ticketAt("233200000002", "day2-a", 13),
		ticketAt("233200000002", "day2-b", 19),
	}}
	ApplyHistory(s, day2, AssignDrawNumbers(s, day2), zap.NewNop())

	c := BuildConsolidated(s, day2)

	if len(c.Rows) != 1 || c.Rows[0].Mobile != "233200000002" {
		t.Fatalf("rows = %+v, want only the current batch player", c.Rows)
	}
}
