// Package excel reads and writes the tabular formats of the pipeline: CSV and
// XLSX inputs, and the CSV/XLSX result artifacts.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus string cells, column order preserved.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of the first header matching one of the candidates
// (case-insensitive, in candidate order).
func (t *Table) Column(candidates ...string) (int, bool) {
	for _, c := range candidates {
		for i, h := range t.Headers {
			if strings.EqualFold(h, c) {
				return i, true
			}
		}
	}
	return -1, false
}

// Cell returns row[col], or "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader; the file type follows the extension
// (.csv, .tsv or .txt are delimited text, anything else is xlsx).
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".tsv", ".txt":
		fileType = "tsv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the file into a Table.
func (r *DataReader) ReadTable() (*Table, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv", "tsv":
		file, err := os.Open(r.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
		}
		defer file.Close()
		delim := ','
		if r.fileType == "tsv" {
			delim = '\t'
		}
		return ReadDelimited(file, delim)
	default:
		return r.readExcel()
	}
}

// readExcel reads the first worksheet.
func (r *DataReader) readExcel() (*Table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		sheet = "Sheet1"
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	return processRows(rows)
}

// ReadDelimited parses CSV (delim ',') or TSV (delim '\t') text.
func ReadDelimited(rd io.Reader, delim rune) (*Table, error) {
	reader := csv.NewReader(rd)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited file: %w", err)
	}
	return processRows(rows)
}

// processRows trims cells and splits off the header row.
func processRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have at least a header row and one data row")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}
		data = append(data, cells)
	}
	return &Table{Headers: headers, Rows: data}, nil
}
