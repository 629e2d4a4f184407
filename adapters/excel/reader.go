package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goamr/adapters/payload"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"
	"goamr/ports"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    "Sheet1",
		logger:   internal.DefaultLogger.With("excel"),
	}
}

// WithSheet selects the workbook sheet to read
func (r *DataReader) WithSheet(sheet string) *DataReader {
	if sheet != "" {
		r.sheet = sheet
	}
	return r
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); err != nil {
		return nil, fmt.Errorf("%s file not readable: %w", strings.ToUpper(r.fileType), err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the configured sheet into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	r.logger.Debug("%s read in %v (%d rows)", r.sheet, time.Since(startTime), len(rows))

	if len(rows) < 2 {
		return nil, core.NewMalformedInputError("Excel file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewMalformedInputError(fmt.Sprintf("failed to read CSV file: %v", err))
	}

	if len(rows) < 2 {
		return nil, core.NewMalformedInputError("CSV file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowData := make(RawRowData)
		empty := true

		for j, cell := range row {
			if j < len(headers) {
				cell = strings.TrimSpace(cell)
				rowData[headers[j]] = cell
				if cell != "" {
					empty = false
				}
			}
		}

		if !empty {
			dataRows = append(dataRows, rowData)
		}
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// DetectTargetColumn finds the column holding target ids: a known target
// header first, else the first column when its values are unique.
func (r *DataReader) DetectTargetColumn(data *ExcelData) (string, error) {
	if len(data.Rows) == 0 {
		return "", fmt.Errorf("no data rows found")
	}

	for _, header := range data.Headers {
		if payload.IsTargetKey(header) && r.isValidTargetColumn(data, header) {
			return header, nil
		}
	}

	if len(data.Headers) > 0 {
		firstCol := data.Headers[0]
		if _, known := payload.CanonicalField(firstCol); !known && r.isValidTargetColumn(data, firstCol) {
			return firstCol, nil
		}
	}

	return "", fmt.Errorf("could not detect a target column")
}

// isValidTargetColumn checks that a column has unique, non-empty values
func (r *DataReader) isValidTargetColumn(data *ExcelData, columnName string) bool {
	seen := make(map[string]bool, len(data.Rows))
	for _, row := range data.Rows {
		value := strings.ToLower(row[columnName])
		if value == "" || seen[value] {
			return false
		}
		seen[value] = true
	}
	return true
}

// ToRecords converts spreadsheet rows into raw metrics records. Cells that
// do not parse are reported as decode errors on the record.
func ToRecords(data *ExcelData, targetColumn string) map[string]metrics.RawMetricsRecord {
	columns := make(map[string]string) // canonical field -> header
	for _, header := range data.Headers {
		if field, ok := payload.CanonicalField(header); ok {
			if _, taken := columns[field]; !taken {
				columns[field] = header
			}
		}
	}

	out := make(map[string]metrics.RawMetricsRecord, len(data.Rows))
	for i, row := range data.Rows {
		id := row[targetColumn]
		if id == "" {
			id = fmt.Sprintf("row %d", i+2)
		}
		out[id] = rowToRecord(row, columns)
	}
	return out
}

func rowToRecord(row RawRowData, columns map[string]string) metrics.RawMetricsRecord {
	var rec metrics.RawMetricsRecord
	cell := func(field string) string {
		header, ok := columns[field]
		if !ok {
			return ""
		}
		return row[header]
	}
	fail := func(field, reason string) {
		rec.DecodeErrors = append(rec.DecodeErrors, metrics.FieldError{Field: field, Reason: reason})
	}
	number := func(field string) *float64 {
		raw := cell(field)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fail(field, fmt.Sprintf("must be a number, got %q", raw))
			return nil
		}
		return &v
	}
	integer := func(field string) *int {
		v := number(field)
		if v == nil {
			return nil
		}
		if *v != math.Trunc(*v) {
			fail(field, "must be an integer")
			return nil
		}
		i := int(*v)
		return &i
	}

	if status := strings.ToLower(cell("status")); status != "" {
		rec.Status = &status
	}
	rec.Reason = cell("reason")
	rec.NSamples = integer("n_samples")
	rec.NResistant = integer("n_resistant")
	rec.NSusceptible = integer("n_susceptible")
	rec.Accuracy = number("accuracy")
	rec.F1 = number("f1")
	rec.AUC = number("auc")
	rec.FoldCount = integer("fold_count")

	if raw := cell("top_features"); raw != "" {
		features, err := parseFeatures(raw)
		if err != nil {
			fail("top_features", err.Error())
		} else {
			rec.TopFeatures = features
		}
	}
	return rec
}

// parseFeatures reads "name:importance" pairs separated by semicolons
func parseFeatures(raw string) ([]metrics.FeatureImportance, error) {
	var out []metrics.FeatureImportance
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("expected name:importance, got %q", part)
		}
		importance, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("importance of %q is not a number", name)
		}
		out = append(out, metrics.FeatureImportance{Feature: strings.TrimSpace(name), Importance: importance})
	}
	return out, nil
}

// Source implements ports.MetricsSource over an xlsx or csv file
type Source struct {
	config ExcelConfig
}

var _ ports.MetricsSource = (*Source)(nil)

func NewSource(config ExcelConfig) *Source {
	return &Source{config: config}
}

func (s *Source) Name() string {
	return "excel:" + filepath.Base(s.config.FilePath)
}

func (s *Source) FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := NewDataReader(s.config.FilePath).WithSheet(s.config.Sheet)
	data, err := reader.ReadData()
	if err != nil {
		if core.IsInputError(err) {
			return nil, err
		}
		return nil, core.NewSourceError(s.Name(), err)
	}

	column := s.config.TargetColumn
	if column == "" {
		column, err = reader.DetectTargetColumn(data)
		if err != nil {
			return nil, core.NewMalformedInputError(err.Error())
		}
	}

	return ToRecords(data, column), nil
}
