package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/dto"
	"github.com/dutywatch/dutywatch/internal/models"
	"github.com/dutywatch/dutywatch/pkg/export"
)

const exportTimeLayout = "2006-01-02 15:04"

// ExportService renders the dashboard table as downloadable files.
type ExportService struct {
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an export service.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ScheduleCSV renders the table as CSV. The second return value is the
// suggested filename.
func (s *ExportService) ScheduleCSV(table *dto.ScheduleTable) ([]byte, string, error) {
	data := scheduleDataset(table)
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, "", fmt.Errorf("render schedule csv: %w", err)
	}
	return payload, exportFilename(table, "csv"), nil
}

// SchedulePDF renders the table as a landscape PDF.
func (s *ExportService) SchedulePDF(table *dto.ScheduleTable) ([]byte, string, error) {
	data := scheduleDataset(table)
	payload, err := s.pdf.Render(data, "Duty Schedule")
	if err != nil {
		return nil, "", fmt.Errorf("render schedule pdf: %w", err)
	}
	return payload, exportFilename(table, "pdf"), nil
}

func exportFilename(table *dto.ScheduleTable, ext string) string {
	stamp := table.GeneratedAtUTC
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	return fmt.Sprintf("schedule_%s.%s", stamp.Format("20060102T1504"), ext)
}

var scheduleHeaders = []string{"Type", "Pairing", "Report", "Release", "Days", "Legs", "Info"}

func scheduleDataset(table *dto.ScheduleTable) export.Dataset {
	data := export.Dataset{Headers: scheduleHeaders}
	for _, row := range table.Rows {
		switch row.Kind {
		case models.RowKindOff:
			data.Rows = append(data.Rows, offExportRow(row.Off))
		case models.RowKindPairing:
			data.Rows = append(data.Rows, pairingExportRow(row.Pairing))
		}
	}
	return data
}

func pairingExportRow(pr *models.PairingRow) map[string]string {
	kind := "event"
	if pr.IsPairing {
		kind = "pairing"
	}

	report, release := "", ""
	if pr.ReportLocal != nil {
		report = pr.ReportLocal.Format(exportTimeLayout)
	}
	if pr.ReleaseLocal != nil {
		release = pr.ReleaseLocal.Format(exportTimeLayout)
	}

	info := ""
	switch {
	case pr.InProgress:
		info = "in progress"
	case pr.HasLegs && !pr.IsComplete:
		info = "incomplete"
	}
	if pr.OutOfBaseAirport != "" {
		if info != "" {
			info += ", "
		}
		info += "starts " + pr.OutOfBaseAirport
	}

	return map[string]string{
		"Type":    kind,
		"Pairing": pr.PairingID,
		"Report":  report,
		"Release": release,
		"Days":    strconv.Itoa(pr.NumDays),
		"Legs":    strconv.Itoa(pr.TotalLegs),
		"Info":    info,
	}
}

func offExportRow(off *models.OffRow) map[string]string {
	info := off.Duration
	if off.IsCurrent && off.Remaining != "" {
		info += " (" + off.Remaining + " remaining)"
	}
	return map[string]string{
		"Type":    "off",
		"Report":  off.StartLocal.Format(exportTimeLayout),
		"Release": off.EndLocal.Format(exportTimeLayout),
		"Info":    info,
	}
}
