package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes the table as comma separated text.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// CSVBytes renders the table to memory.
func CSVBytes(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Sheet is one named worksheet.
type Sheet struct {
	Name  string
	Table *Table
}

// WriteXLSX writes one worksheet per sheet, the first becoming active.
// Cells that parse as numbers are stored as numbers.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
		if err := writeSheet(f, s); err != nil {
			return fmt.Errorf("sheet %s: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, s Sheet) error {
	for i, h := range s.Table.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(s.Name, cell, h); err != nil {
			return err
		}
	}
	for r, row := range s.Table.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			var value interface{} = v
			if n, err := ParseFloat(v); err == nil && v != "" && !isNaNString(v) {
				value = n
			}
			if err := f.SetCellValue(s.Name, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNaNString(v string) bool {
	switch v {
	case "NA", "NaN", "nan", "na", "null":
		return true
	}
	return false
}
