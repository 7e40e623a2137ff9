// Package watcher следит за каталогом входных файлов и управляет их
// жизненным циклом: передаёт файлы конвейеру и раскладывает их по
// каталогам processed и failed.
package watcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
	"github.com/mmeshcher/lottery-pipeline/internal/processor"
)

// movePrefixLayout — формат временной метки в имени перемещённого файла.
const movePrefixLayout = "20060102_150405"

// FileProcessor описывает контракт конвейера, используемый наблюдателем.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) processor.Result
}

// Watcher опрашивает входной каталог и обрабатывает появившиеся CSV-файлы
// по одному, в порядке имён файлов.
type Watcher struct {
	inputDir     string
	processedDir string
	failedDir    string
	interval     time.Duration
	proc         FileProcessor
	logger       *zap.Logger
}

// New создаёт наблюдатель и гарантирует существование всех каталогов.
func New(inputDir, processedDir, failedDir string, interval time.Duration, proc FileProcessor, logger *zap.Logger) (*Watcher, error) {
	for _, dir := range []string{inputDir, processedDir, failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Watcher{
		inputDir:     inputDir,
		processedDir: processedDir,
		failedDir:    failedDir,
		interval:     interval,
		proc:         proc,
		logger:       logger,
	}, nil
}

// Run запускает цикл опроса входного каталога до отмены контекста.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching directory", zap.String("dir", w.inputDir))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan обрабатывает накопившиеся CSV-файлы. Файлы обрабатываются строго
// по одному: конвейер не рассчитан на параллельные пакеты.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		w.logger.Error("read input directory", zap.Error(err))
		return
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.handleFile(ctx, filepath.Join(w.inputDir, name))
	}
}

// HandleFile проводит один файл через конвейер и перемещает его в
// соответствующий каталог. Возвращает true при успешной обработке.
func (w *Watcher) HandleFile(ctx context.Context, path string) bool {
	return w.handleFile(ctx, path)
}

func (w *Watcher) handleFile(ctx context.Context, path string) bool {
	name := filepath.Base(path)
	w.logger.Info("processing new file", zap.String("file", name))

	res := w.proc.ProcessFile(ctx, path)

	switch res.Outcome {
	case processor.OutcomeProcessed:
		w.logger.Info("file processed",
			zap.String("file", name),
			zap.Int("players", len(res.Consolidated.Rows)))

		if err := w.writeConsolidated(name, res.Consolidated); err != nil {
			// Артефакт вторичен: состояние уже зафиксировано, файл уходит в processed.
			w.logger.Error("write consolidated artifact", zap.Error(err))
		}
		w.moveFile(path, w.processedDir)
		return true

	case processor.OutcomeValidationFailed:
		w.logger.Error("validation failed", zap.String("file", name))
		for _, e := range res.ValidationErrors {
			w.logger.Error("validation error",
				zap.String("type", string(e.Type)),
				zap.String("message", e.Message),
				zap.Strings("details", e.Details))
		}
		w.moveFile(path, w.failedDir)
		return false

	case processor.OutcomeDuplicate, processor.OutcomeOutOfOrder:
		w.logger.Warn("file rejected", zap.String("file", name), zap.Error(res.Err))
		w.moveFile(path, w.failedDir)
		return false

	default:
		w.logger.Error("file processing failed", zap.String("file", name), zap.Error(res.Err))
		w.moveFile(path, w.failedDir)
		return false
	}
}

// moveFile перемещает файл в каталог назначения с временной меткой в имени.
// Файлы никогда не удаляются на месте.
func (w *Watcher) moveFile(path, destDir string) {
	name := filepath.Base(path)
	newName := time.Now().Format(movePrefixLayout) + "_" + name
	if err := os.Rename(path, filepath.Join(destDir, newName)); err != nil {
		w.logger.Error("move file", zap.String("file", name), zap.Error(err))
		return
	}
	w.logger.Info("file moved",
		zap.String("file", name),
		zap.String("dest", filepath.Join(filepath.Base(destDir), newName)))
}

// writeConsolidated сохраняет консолидированную проекцию пакета
// в CSV-артефакт в каталоге processed.
func (w *Watcher) writeConsolidated(sourceName string, c *processor.Consolidated) error {
	stem := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	path := filepath.Join(w.processedDir, "consolidated_"+stem+".csv")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	header := []string{"LAST_NAME", "OTHER_NAMES", "MOBILE", "PROMOTIONAL_CONSENT", "CREATED", "E-Score", "Indicative Segment", "Gear"}
	for num := c.FirstDraw; num <= c.LastDraw; num++ {
		header = append(header, "D"+strconv.Itoa(num))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range c.Rows {
		record := []string{
			row.LastName,
			row.OtherNames,
			row.Mobile,
			row.PromotionalConsent,
			row.Created.Format(model.CreatedLayout),
			strconv.Itoa(row.EScore),
			string(row.Segment),
			strconv.Itoa(row.Gear),
		}
		for _, count := range row.Tickets {
			record = append(record, strconv.Itoa(count))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush artifact: %w", err)
	}

	w.logger.Info("consolidated artifact saved", zap.String("path", path))
	return nil
}
