package services

import (
	"fmt"
	"time"

	"cctv-monitoring/be/models"

	"github.com/xuri/excelize/v2"
)

const historyReportSheet = "Laporan Kerusakan CCTV"

var historyReportHeader = []interface{}{
	"Titik Letak", "Ip Address", "Lokasi Dvr", "Status Perbaikan", "Catatan", "Tanggal dan Waktu",
}

// HistoryReport describes one incident export.
type HistoryReport struct {
	From       time.Time
	To         time.Time
	ExportedBy string
	ExportedAt time.Time
	Rows       []models.HistoryView
}

func (r HistoryReport) Filename() string {
	return fmt.Sprintf("Laporan_kerusakan_dari_%s_sampai_%s.xlsx",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// BuildHistoryWorkbook renders the report as a single-sheet workbook: a
// metadata block, a blank row, then a header row and one row per incident.
func BuildHistoryWorkbook(report HistoryReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", historyReportSheet); err != nil {
		f.Close()
		return nil, err
	}

	metadata := [][]interface{}{
		{"Laporan Kerusakan CCTV"},
		{fmt.Sprintf("Periode: %s sampai %s", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))},
		{fmt.Sprintf("Dibuat oleh: %s", report.ExportedBy)},
		{fmt.Sprintf("Tanggal Ekspor: %s", report.ExportedAt.Format("2006-01-02 15:04:05"))},
		{""},
	}

	row := 1
	for _, values := range metadata {
		if err := setRow(f, historyReportSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	if err := setRow(f, historyReportSheet, row, historyReportHeader); err != nil {
		f.Close()
		return nil, err
	}
	row++

	for _, h := range report.Rows {
		note := ""
		if h.Note != nil {
			note = *h.Note
		}
		values := []interface{}{
			h.CameraName,
			h.CameraIP,
			h.LocationName,
			serviceLabel(h.Service),
			note,
			h.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := setRow(f, historyReportSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	return f, nil
}

func serviceLabel(serviced bool) string {
	if serviced {
		return "Sudah diperbaiki"
	}
	return "Belum diperbaiki"
}
