// Package report exports the registry collections to an Excel workbook for
// the administrator.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

// Exporter writes one sheet per registry collection.
type Exporter struct {
	catalog store.Catalog
	dir     string
	logger  zerolog.Logger
}

// NewExporter creates an exporter writing workbooks into dir.
func NewExporter(catalog store.Catalog, dir string, logger zerolog.Logger) *Exporter {
	return &Exporter{
		catalog: catalog,
		dir:     dir,
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// Filename names the workbook for the given day.
func Filename(t time.Time) string {
	return fmt.Sprintf("registry_%s.xlsx", t.Format("2006-01-02"))
}

// Export writes the appointments, availability and bills sheets and
// returns the workbook path.
func (e *Exporter) Export(ctx context.Context, now time.Time) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeAppointments(ctx, f); err != nil {
		return "", err
	}
	if err := e.writeAvailability(ctx, f); err != nil {
		return "", err
	}
	if err := e.writeBills(ctx, f); err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(e.dir, Filename(now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("path", path).Msg("registry exported")
	return path, nil
}

func (e *Exporter) writeAppointments(ctx context.Context, f *excelize.File) error {
	records, err := e.catalog.Appointments().Load(ctx)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		a, err := models.AppointmentFromRow(rec)
		if err != nil {
			return fmt.Errorf("decode appointment: %w", err)
		}
		rows = append(rows, []any{a.ID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, string(a.Status)})
	}
	return writeSheet(f, "Appointments", true,
		[]string{"ID", "Doctor", "Patient", "Date", "Time Slot", "Status"}, rows)
}

func (e *Exporter) writeAvailability(ctx context.Context, f *excelize.File) error {
	records, err := e.catalog.Availability().Load(ctx)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		s, err := models.SlotFromRow(rec)
		if err != nil {
			return fmt.Errorf("decode availability: %w", err)
		}
		rows = append(rows, []any{s.DoctorID, s.DoctorName, s.Date, s.TimeSlot, string(s.Status)})
	}
	return writeSheet(f, "Availability", false,
		[]string{"Doctor", "Name", "Date", "Time Slot", "Status"}, rows)
}

func (e *Exporter) writeBills(ctx context.Context, f *excelize.File) error {
	records, err := e.catalog.Bills().Load(ctx)
	if err != nil {
		return fmt.Errorf("load bills: %w", err)
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		b, err := models.BillFromRow(rec)
		if err != nil {
			return fmt.Errorf("decode bill: %w", err)
		}
		rows = append(rows, []any{b.ID, b.PatientID, b.AppointmentID, b.Amount, b.Settled})
	}
	return writeSheet(f, "Bills", false,
		[]string{"ID", "Patient", "Appointment", "Amount", "Settled"}, rows)
}

// writeSheet writes a header row plus data rows. The first sheet replaces
// the default Sheet1.
func writeSheet(f *excelize.File, name string, first bool, header []string, rows [][]any) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}
	if first {
		f.SetSheetName("Sheet1", name)
	} else {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := setRow(f, name, 1, headerCells); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(name, startCell, endCell, style)
	}

	for i, row := range rows {
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}
