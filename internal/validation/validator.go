// Package validation содержит проверку дневных файлов билетов.
package validation

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mmeshcher/lottery-pipeline/internal/model"
)

// ErrorType классифицирует ошибку проверки входного файла.
type ErrorType string

const (
	ErrorTypeFile       ErrorType = "FILE_ERROR"
	ErrorTypeSchema     ErrorType = "SCHEMA_ERROR"
	ErrorTypeData       ErrorType = "DATA_ERROR"
	ErrorTypeFormat     ErrorType = "FORMAT_ERROR"
	ErrorTypeDateFormat ErrorType = "DATE_FORMAT_ERROR"
	ErrorTypeDuplicate  ErrorType = "DUPLICATE_ERROR"
	ErrorTypeDraw       ErrorType = "DRAW_ERROR"
	ErrorTypeTime       ErrorType = "TIME_ERROR"
	ErrorTypeName       ErrorType = "NAME_ERROR"
)

// maxDetails ограничивает число примеров некорректных значений в одной ошибке.
const maxDetails = 5

// Error описывает одну ошибку проверки файла.
type Error struct {
	Type    ErrorType
	Message string
	Details []string
}

func (e Error) String() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, strings.Join(e.Details, ", "))
}

// Result содержит итог проверки файла: либо проверенный пакет,
// либо упорядоченный список ошибок.
type Result struct {
	Valid  bool
	Errors []Error
	Batch  *model.Batch
}

var requiredColumns = []string{"PLAYER_MOBILE", "DRAW_ID", "PLAYER_NAME", "TICKET", "PRICE", "CREATED"}

var (
	ticketPattern = regexp.MustCompile(`^787-\d{9}[A-Z]$`)
	mobilePattern = regexp.MustCompile(`^233\d{9}$`)
	pricePattern  = regexp.MustCompile(`^GHS \d+\.\d{2}$`)
)

// validator накапливает ошибки проверки одного файла.
// Экземпляр одноразовый: на каждый файл создаётся новый.
type validator struct {
	errors  []Error
	columns map[string]int
	rows    [][]string
}

// ValidateFile читает CSV-файл дневного пакета и выполняет все проверки.
// Ошибки не прерывают проверку внутри своего уровня: сначала собираются все
// ошибки схемы, затем, если схема корректна, все ошибки форматов и бизнес-правил.
func ValidateFile(path string) Result {
	v := &validator{}
	return v.run(path)
}

func (v *validator) run(path string) Result {
	if err := v.read(path); err != nil {
		v.addError(ErrorTypeFile, fmt.Sprintf("error reading file: %s", err), nil)
		return Result{Valid: false, Errors: v.errors}
	}

	v.validateSchema()
	var batch *model.Batch
	if len(v.errors) == 0 {
		v.validateFormats()
		batch = v.validateBusinessRules()
	}

	if len(v.errors) > 0 {
		return Result{Valid: false, Errors: v.errors}
	}
	return Result{Valid: true, Batch: batch}
}

// read загружает файл и обрезает пробелы во всех значениях.
func (v *validator) read(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("file is empty")
	}

	v.columns = make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		v.columns[strings.TrimSpace(name)] = i
	}

	for _, row := range records[1:] {
		trimmed := make([]string, len(row))
		for i, cell := range row {
			trimmed[i] = strings.TrimSpace(cell)
		}
		v.rows = append(v.rows, trimmed)
	}

	if len(v.rows) == 0 {
		return fmt.Errorf("file contains no data rows")
	}

	return nil
}

func (v *validator) addError(t ErrorType, message string, details []string) {
	if len(details) > maxDetails {
		details = details[:maxDetails]
	}
	v.errors = append(v.errors, Error{Type: t, Message: message, Details: details})
}

// cell возвращает значение колонки в строке; отсутствующие ячейки считаются пустыми.
func (v *validator) cell(row []string, column string) string {
	idx, ok := v.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (v *validator) validateSchema() {
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := v.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		v.addError(ErrorTypeSchema, "missing required columns", missing)
	}
}

// validateFormats проверяет отсутствие пустых значений и форматы
// билета, мобильного номера и цены. Каждое нарушение — отдельная ошибка.
func (v *validator) validateFormats() {
	nullColumns := make(map[string]bool)
	for _, row := range v.rows {
		for _, col := range requiredColumns {
			if v.cell(row, col) == "" {
				nullColumns[col] = true
			}
		}
	}
	if len(nullColumns) > 0 {
		cols := make([]string, 0, len(nullColumns))
		for col := range nullColumns {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		v.addError(ErrorTypeData, "null values found in data", cols)
	}

	var badTickets, badMobiles, badPrices []string
	for _, row := range v.rows {
		if t := v.cell(row, "TICKET"); !ticketPattern.MatchString(t) {
			badTickets = append(badTickets, t)
		}
		if m := v.cell(row, "PLAYER_MOBILE"); !mobilePattern.MatchString(m) {
			badMobiles = append(badMobiles, m)
		}
		if p := v.cell(row, "PRICE"); !pricePattern.MatchString(p) {
			badPrices = append(badPrices, p)
		}
	}
	if len(badTickets) > 0 {
		v.addError(ErrorTypeFormat, "invalid ticket number format", badTickets)
	}
	if len(badMobiles) > 0 {
		v.addError(ErrorTypeFormat, "invalid mobile number format", badMobiles)
	}
	if len(badPrices) > 0 {
		v.addError(ErrorTypeFormat, "invalid price format", badPrices)
	}
}

// validateBusinessRules проверяет даты, дубликаты билетов, состав тиражей,
// временные окна и имена игроков. Ошибка разбора даты прекращает дальнейшие
// бизнес-проверки: даты являются их предусловием.
func (v *validator) validateBusinessRules() *model.Batch {
	records := make([]model.TicketRecord, 0, len(v.rows))
	var badDates []string
	for _, row := range v.rows {
		created, err := time.Parse(model.CreatedLayout, v.cell(row, "CREATED"))
		if err != nil {
			badDates = append(badDates, v.cell(row, "CREATED"))
			continue
		}
		records = append(records, model.TicketRecord{
			Mobile:     v.cell(row, "PLAYER_MOBILE"),
			DrawID:     v.cell(row, "DRAW_ID"),
			PlayerName: v.cell(row, "PLAYER_NAME"),
			Ticket:     v.cell(row, "TICKET"),
			Price:      v.cell(row, "PRICE"),
			Created:    created,
		})
	}
	if len(badDates) > 0 {
		v.addError(ErrorTypeDateFormat, "invalid date format in CREATED column", badDates)
		return nil
	}

	seenTickets := make(map[string]int)
	for _, r := range records {
		seenTickets[r.Ticket]++
	}
	var duplicates []string
	for _, r := range records {
		if seenTickets[r.Ticket] > 1 {
			duplicates = append(duplicates, r.Ticket)
			seenTickets[r.Ticket] = 0
		}
	}
	if len(duplicates) > 0 {
		v.addError(ErrorTypeDuplicate, "duplicate ticket numbers found", duplicates)
	}

	fileDate := records[0].Created
	batchDate := time.Date(fileDate.Year(), fileDate.Month(), fileDate.Day(), 0, 0, 0, 0, time.UTC)

	drawHours := make(map[string][]int)
	var drawIDs []string
	for _, r := range records {
		if _, ok := drawHours[r.DrawID]; !ok {
			drawIDs = append(drawIDs, r.DrawID)
		}
		drawHours[r.DrawID] = append(drawHours[r.DrawID], r.Created.Hour())
	}
	if len(drawIDs) != 2 {
		v.addError(ErrorTypeDraw,
			fmt.Sprintf("invalid number of draws for date %s: %d", batchDate.Format(model.BatchDateLayout), len(drawIDs)),
			drawIDs)
	}

	for _, drawID := range drawIDs {
		if !inKnownWindow(drawHours[drawID]) {
			v.addError(ErrorTypeTime,
				fmt.Sprintf("invalid draw time window for draw %s", drawID),
				[]string{hourRange(drawHours[drawID])})
		}
	}

	var badNames []string
	for _, r := range records {
		if len(r.PlayerName) < 3 || !strings.Contains(r.PlayerName, " ") {
			badNames = append(badNames, r.PlayerName)
		}
	}
	if len(badNames) > 0 {
		v.addError(ErrorTypeName, "invalid player names found", badNames)
	}

	if len(v.errors) > 0 {
		return nil
	}

	return &model.Batch{Date: batchDate, Records: records}
}

// inKnownWindow сообщает, попадает ли хотя бы один час покупки
// в дневное или вечернее окно тиража.
func inKnownWindow(hours []int) bool {
	for _, h := range hours {
		if model.DrawTypeForHour(h) != model.DrawTypeUnknown {
			return true
		}
	}
	return false
}

func hourRange(hours []int) string {
	minHour, maxHour := hours[0], hours[0]
	for _, h := range hours[1:] {
		if h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}
	return fmt.Sprintf("%d:00 - %d:00", minHour, maxHour)
}
