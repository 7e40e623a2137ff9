package state

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Store отвечает за атомарную загрузку и сохранение состояния конвейера
// в JSON-файле с резервной копией на случай повреждения.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore создаёт хранилище состояния по указанному пути.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Дисковое представление: все числовые ключи сериализуются строками
// для стабильности формата.
type diskHistory struct {
	Participation map[string]bool `json:"participation"`
	Tickets       map[string]int  `json:"tickets"`
}

type diskState struct {
	LastDrawNumber int                    `json:"last_draw_number"`
	ProcessedFiles []string               `json:"processed_files"`
	PlayerHistory  map[string]diskHistory `json:"player_history"`
	DrawMapping    map[string]int         `json:"draw_mapping"`
}

var requiredKeys = []string{"last_draw_number", "processed_files", "player_history", "draw_mapping"}

// Load читает сохранённое состояние. Отсутствующий, нечитаемый или неполный
// документ не считается ошибкой: возвращается свежее начальное состояние.
func (st *Store) Load() *ProcessorState {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			st.logger.Warn("state file unreadable, creating new state",
				zap.String("path", st.path), zap.Error(err))
		}
		return New()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		st.logger.Warn("state file corrupted, creating new state",
			zap.String("path", st.path), zap.Error(err))
		return New()
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			st.logger.Warn("state file missing required key, creating new state",
				zap.String("path", st.path), zap.String("key", key))
			return New()
		}
	}

	var ds diskState
	if err := json.Unmarshal(data, &ds); err != nil {
		st.logger.Warn("state file invalid, creating new state",
			zap.String("path", st.path), zap.Error(err))
		return New()
	}

	s, err := fromDisk(&ds)
	if err != nil {
		st.logger.Warn("state file has malformed keys, creating new state",
			zap.String("path", st.path), zap.Error(err))
		return New()
	}
	return s
}

// Save записывает состояние на диск. Перед перезаписью существующий файл
// копируется в резервную копию; при ошибке записи резервная копия
// восстанавливается поверх основного файла, а ошибка возвращается наверх —
// пакет в этом случае считается незафиксированным.
func (st *Store) Save(s *ProcessorState) error {
	backupPath := st.path + ".bak"
	hasBackup := false
	if _, err := os.Stat(st.path); err == nil {
		if err := copyFile(st.path, backupPath); err != nil {
			st.logger.Warn("could not create state backup", zap.Error(err))
		} else {
			hasBackup = true
		}
	}

	data, err := json.MarshalIndent(toDisk(s), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(st.path, data, 0o644); err != nil {
		if hasBackup {
			st.logger.Warn("state write failed, restoring backup", zap.Error(err))
			if restoreErr := copyFile(backupPath, st.path); restoreErr != nil {
				st.logger.Error("state backup restore failed", zap.Error(restoreErr))
			}
		}
		return fmt.Errorf("save state: %w", err)
	}

	return nil
}

func toDisk(s *ProcessorState) *diskState {
	ds := &diskState{
		LastDrawNumber: s.LastDrawNumber,
		ProcessedFiles: append([]string{}, s.ProcessedDates...),
		PlayerHistory:  make(map[string]diskHistory, len(s.PlayerHistory)),
		DrawMapping:    make(map[string]int, len(s.DrawMapping)),
	}
	for id, num := range s.DrawMapping {
		ds.DrawMapping[id] = num
	}
	for mobile, h := range s.PlayerHistory {
		dh := diskHistory{
			Participation: make(map[string]bool, len(h.Participation)),
			Tickets:       make(map[string]int, len(h.Tickets)),
		}
		for num, v := range h.Participation {
			dh.Participation[strconv.Itoa(num)] = v
		}
		for num, v := range h.Tickets {
			dh.Tickets[strconv.Itoa(num)] = v
		}
		ds.PlayerHistory[mobile] = dh
	}
	return ds
}

func fromDisk(ds *diskState) (*ProcessorState, error) {
	s := New()
	s.LastDrawNumber = ds.LastDrawNumber
	s.ProcessedDates = append(s.ProcessedDates, ds.ProcessedFiles...)
	for id, num := range ds.DrawMapping {
		s.DrawMapping[id] = num
	}
	for mobile, dh := range ds.PlayerHistory {
		h := s.EnsureHistory(mobile)
		for key, v := range dh.Participation {
			num, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("participation key %q: %w", key, err)
			}
			h.Participation[num] = v
		}
		for key, v := range dh.Tickets {
			num, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("tickets key %q: %w", key, err)
			}
			h.Tickets[num] = v
		}
	}
	return s, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
