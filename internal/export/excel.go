package export

import (
	"fmt"
	"io"
	"time"

	"crewtime/internal/model"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes rows as a single-sheet workbook named after the month.
func WriteXLSX(w io.Writer, sheetName string, rows []model.Entry, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	// Excel caps sheet names at 31 characters.
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}
	f.SetSheetName("Sheet1", sheetName)

	if err := writeRow(f, sheetName, 1, headerValues()); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(Header), 1)
		_ = f.SetCellStyle(sheetName, start, end, style)
	}

	for i, e := range rows {
		if err := writeRow(f, sheetName, i+2, rowValues(e, loc)); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func headerValues() []interface{} {
	vals := make([]interface{}, len(Header))
	for i, h := range Header {
		vals[i] = h
	}
	return vals
}

func rowValues(e model.Entry, loc *time.Location) []interface{} {
	rec := record(e, loc)
	vals := make([]interface{}, len(rec))
	for i, v := range rec {
		vals[i] = v
	}
	// Headcount as a number so spreadsheet sums work.
	vals[4] = e.Headcount()
	return vals
}

func writeRow(f *excelize.File, sheet string, row int, vals []interface{}) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
