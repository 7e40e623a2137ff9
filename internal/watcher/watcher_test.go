package watcher

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/processor"
	"github.com/mmeshcher/lottery-pipeline/internal/validation"
)

type stubFileProcessor struct {
	result processor.Result
	paths  []string
}

func (s *stubFileProcessor) ProcessFile(ctx context.Context, path string) processor.Result {
	s.paths = append(s.paths, path)
	return s.result
}

func newTestWatcher(t *testing.T, proc FileProcessor) (*Watcher, string, string, string) {
	t.Helper()

	base := t.TempDir()
	inputDir := filepath.Join(base, "input")
	processedDir := filepath.Join(base, "processed")
	failedDir := filepath.Join(base, "failed")

	w, err := New(inputDir, processedDir, failedDir, time.Second, proc, zap.NewNop())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w, inputDir, processedDir, failedDir
}

func dropFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("PLAYER_MOBILE\n"), 0o644); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	return path
}

// movedFile ищет в каталоге единственный файл с временной меткой
// в префиксе и исходным именем в суффиксе.
func movedFile(t *testing.T, dir, origName string) string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "_"+origName) {
			continue
		}
		prefix := strings.TrimSuffix(e.Name(), "_"+origName)
		if _, err := time.Parse("20060102_150405", prefix); err != nil {
			t.Fatalf("move prefix %q is not a timestamp: %v", prefix, err)
		}
		return e.Name()
	}
	t.Fatalf("no moved copy of %s in %s", origName, dir)
	return ""
}

func TestHandleFile_ProcessedMovesAndWritesArtifact(t *testing.T) {
	created, _ := time.Parse(model.CreatedLayout, "15/01/2025 13:00")
	proc := &stubFileProcessor{result: processor.Result{
		Outcome: processor.OutcomeProcessed,
		Consolidated: &processor.Consolidated{
			FirstDraw: 301,
			LastDraw:  302,
			Rows: []model.ConsolidatedRow{
				{
					LastName:           "Mensah",
					OtherNames:         "Kofi",
					Mobile:             "233200000001",
					PromotionalConsent: "Y",
					Created:            created,
					EScore:             5,
					Segment:            model.SegmentE,
					Gear:               4,
					Tickets:            []int{3, 2},
				},
			},
		},
	}}
	w, inputDir, processedDir, _ := newTestWatcher(t, proc)
	path := dropFile(t, inputDir, "batch_20250115.csv")

	if ok := w.HandleFile(context.Background(), path); !ok {
		t.Fatalf("expected success")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("input file must be moved out of the input directory")
	}
	movedFile(t, processedDir, "batch_20250115.csv")

	f, err := os.Open(filepath.Join(processedDir, "consolidated_batch_20250115.csv"))
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("artifact rows = %d, want header + 1", len(records))
	}

	wantHeader := []string{"LAST_NAME", "OTHER_NAMES", "MOBILE", "PROMOTIONAL_CONSENT", "CREATED", "E-Score", "Indicative Segment", "Gear", "D301", "D302"}
	if strings.Join(records[0], ",") != strings.Join(wantHeader, ",") {
		t.Fatalf("header = %v, want %v", records[0], wantHeader)
	}

	wantRow := []string{"Mensah", "Kofi", "233200000001", "Y", "15/01/2025 13:00", "5", "E", "4", "3", "2"}
	if strings.Join(records[1], ",") != strings.Join(wantRow, ",") {
		t.Fatalf("row = %v, want %v", records[1], wantRow)
	}
}

func TestHandleFile_ValidationFailureMovesToFailed(t *testing.T) {
	proc := &stubFileProcessor{result: processor.Result{
		Outcome: processor.OutcomeValidationFailed,
		ValidationErrors: []validation.Error{
			{Type: validation.ErrorTypeFormat, Message: "invalid ticket number format", Details: []string{"787-1X"}},
		},
	}}
	w, inputDir, processedDir, failedDir := newTestWatcher(t, proc)
	path := dropFile(t, inputDir, "bad.csv")

	if ok := w.HandleFile(context.Background(), path); ok {
		t.Fatalf("expected failure")
	}

	movedFile(t, failedDir, "bad.csv")
	entries, err := os.ReadDir(processedDir)
	if err != nil {
		t.Fatalf("read processed dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("processed dir must stay empty, got %v", entries)
	}
}

func TestHandleFile_DuplicateMovesToFailed(t *testing.T) {
	proc := &stubFileProcessor{result: processor.Result{
		Outcome: processor.OutcomeDuplicate,
		Err:     processor.ErrDuplicateBatch,
	}}
	w, inputDir, _, failedDir := newTestWatcher(t, proc)
	path := dropFile(t, inputDir, "repeat.csv")

	if ok := w.HandleFile(context.Background(), path); ok {
		t.Fatalf("expected rejection")
	}
	movedFile(t, failedDir, "repeat.csv")
}

func TestScan_ProcessesFilesInNameOrder(t *testing.T) {
	proc := &stubFileProcessor{result: processor.Result{
		Outcome: processor.OutcomeFailed,
		Err:     context.DeadlineExceeded,
	}}
	w, inputDir, _, _ := newTestWatcher(t, proc)

	dropFile(t, inputDir, "b.csv")
	dropFile(t, inputDir, "a.csv")
	dropFile(t, inputDir, "notes.txt")
	if err := os.Mkdir(filepath.Join(inputDir, "sub.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w.scan(context.Background())

	if len(proc.paths) != 2 {
		t.Fatalf("processed %d files, want 2: %v", len(proc.paths), proc.paths)
	}
	if filepath.Base(proc.paths[0]) != "a.csv" || filepath.Base(proc.paths[1]) != "b.csv" {
		t.Fatalf("wrong order: %v", proc.paths)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	proc := &stubFileProcessor{result: processor.Result{Outcome: processor.OutcomeFailed}}
	base := t.TempDir()
	w, err := New(
		filepath.Join(base, "input"),
		filepath.Join(base, "processed"),
		filepath.Join(base, "failed"),
		10*time.Millisecond, proc, zap.NewNop())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
