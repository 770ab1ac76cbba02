// Package export renders a business day's records and statistics as an
// Excel workbook or CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"dock-stats-backend/internal/model"
	"dock-stats-backend/internal/stats"
)

// DailyReport is everything that goes into one day's export.
type DailyReport struct {
	Date     string // YYYY-MM-DD
	Location *time.Location
	Arrivals []model.ArrivalRecord
	Snapshot stats.Snapshot
	Sorting  []model.SortingRecord
}

var arrivalHeaders = []string{
	"ID", "Dock", "Vehicle Type", "Plate", "Unit", "Load", "Pieces",
	"Time Bucket", "Shift", "Arrived At", "Duration (min)", "Remark",
}

// Workbook renders the report as an Excel file with an arrivals sheet, a
// summary sheet and a sorting sheet.
func Workbook(r *DailyReport) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeArrivalsSheet(f, r); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, r); err != nil {
		return nil, err
	}
	if err := writeSortingSheet(f, r); err != nil {
		return nil, err
	}

	// The workbook is created with a default "Sheet1"; drop it once the
	// real sheets exist.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	return f, nil
}

func writeArrivalsSheet(f *excelize.File, r *DailyReport) error {
	const sheet = "Arrivals"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return err
	}
	f.SetCellValue(sheet, "A1", fmt.Sprintf("Inbound arrivals %s", r.Date))
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for col, h := range arrivalHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, rec := range r.Arrivals {
		row := i + 4
		values := arrivalRow(&rec, r.Location)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r *DailyReport) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	snap := r.Snapshot
	f.SetCellValue(sheet, "A1", "Total vehicles")
	f.SetCellValue(sheet, "B1", snap.TotalVehicles)
	f.SetCellValue(sheet, "A2", "Total pieces")
	f.SetCellValue(sheet, "B2", snap.TotalPieces)
	f.SetCellValue(sheet, "A3", "Total pallets")
	f.SetCellValue(sheet, "B3", snap.TotalPallets)

	f.SetCellValue(sheet, "A5", "Vehicle Type")
	f.SetCellValue(sheet, "B5", "Count")
	f.SetCellValue(sheet, "C5", "Pieces")

	types := make([]string, 0, len(snap.ByVehicleType))
	for vt := range snap.ByVehicleType {
		types = append(types, vt)
	}
	sort.Strings(types)
	for i, vt := range types {
		ts := snap.ByVehicleType[vt]
		row := strconv.Itoa(i + 6)
		f.SetCellValue(sheet, "A"+row, vt)
		f.SetCellValue(sheet, "B"+row, ts.Count)
		f.SetCellValue(sheet, "C"+row, ts.TotalPieces)
	}

	base := 7 + len(types)
	f.SetCellValue(sheet, "A"+strconv.Itoa(base), "Arrivals 19:00-20:00")
	f.SetCellValue(sheet, "B"+strconv.Itoa(base), snap.Bucket19.Count)
	f.SetCellValue(sheet, "A"+strconv.Itoa(base+1), "Arrivals 20:00-21:00")
	f.SetCellValue(sheet, "B"+strconv.Itoa(base+1), snap.Bucket20.Count)
	f.SetCellValue(sheet, "A"+strconv.Itoa(base+2), "Arrivals past 24:00")
	f.SetCellValue(sheet, "B"+strconv.Itoa(base+2), snap.BucketAfter24.Count)
	return nil
}

func writeSortingSheet(f *excelize.File, r *DailyReport) error {
	const sheet = "Sorting"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Time Bucket")
	f.SetCellValue(sheet, "B1", "Pieces")
	f.SetCellValue(sheet, "C1", "Remark")
	for i, rec := range r.Sorting {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, rec.TimeBucket)
		f.SetCellValue(sheet, "B"+row, rec.Pieces)
		f.SetCellValue(sheet, "C"+row, rec.Remark)
	}
	return nil
}

// CSV writes the arrivals as CSV with the same columns as the workbook's
// arrivals sheet.
func CSV(w io.Writer, arrivals []model.ArrivalRecord, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(arrivalHeaders); err != nil {
		return err
	}
	for i := range arrivals {
		row := arrivalRow(&arrivals[i], loc)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func arrivalRow(rec *model.ArrivalRecord, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	dock := ""
	if rec.DockNumber != nil {
		dock = strconv.Itoa(*rec.DockNumber)
	}
	duration := ""
	if rec.DurationMinutes != nil {
		duration = strconv.Itoa(*rec.DurationMinutes)
	}
	return []any{
		rec.ID, dock, rec.VehicleType, rec.VehiclePlate, rec.Unit,
		rec.LoadAmount, rec.Pieces, rec.TimeBucket, rec.Shift,
		rec.CreatedAt.In(loc).Format("2006-01-02 15:04:05"), duration, rec.Remark,
	}
}
