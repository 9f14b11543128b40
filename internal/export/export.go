// Package export writes appointment lists as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"queueaway/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Appointments"

var headers = []string{"Business", "Service", "Date", "Time", "Status", "Queue position", "Estimated wait (min)", "Notes", "Booked at"}

// Appointments writes one row per appointment to w, in the given order.
func Appointments(w io.Writer, appointments []*models.Appointment, loc *time.Location) error {
	f, err := build(appointments, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveAppointments stores the workbook under dir and returns its path.
func SaveAppointments(dir, userID string, appointments []*models.Appointment, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := build(appointments, now.Location())
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(userID, now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// FileName is the download name of a user's export.
func FileName(userID string, now time.Time) string {
	return fmt.Sprintf("appointments_%s_%s.xlsx", userID, now.Format("2006-01-02"))
}

func build(appointments []*models.Appointment, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	cancelledStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
	})

	for i, a := range appointments {
		row := i + 2
		at := a.AppointmentDate.In(loc)
		values := []interface{}{
			a.BusinessName,
			a.Service,
			at.Format("2006-01-02"),
			at.Format("15:04"),
			a.Status,
			a.QueuePosition,
			a.EstimatedWaitTime,
			a.Notes,
			a.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if a.Status == models.StatusCancelled {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, start, end, cancelledStyle)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "I", 18)
	return f, nil
}
