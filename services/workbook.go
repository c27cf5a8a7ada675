package services

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const xlsxTimestamp = "20060102150405"

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// buildTable writes a header row followed by rows into a fresh single-sheet
// workbook. The caller closes the returned file.
func buildTable(sheet string, header []interface{}, rows [][]interface{}) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		f.Close()
		return nil, err
	}
	for i, values := range rows {
		if err := setRow(f, sheet, i+2, values); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ExportFilename returns "<prefix>_export_<timestamp>.xlsx".
func ExportFilename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_export_%s.xlsx", prefix, at.Format(xlsxTimestamp))
}
