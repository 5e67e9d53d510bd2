package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/textra-dev/textra/internal/jobs"
)

// Service produces XLSX bytes summarizing job history. It reads jobs and
// never mutates them.
type Service struct {
	store  *jobs.Store
	logger *slog.Logger
}

func NewService(store *jobs.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// JobsXLSX returns a workbook with one row per job, ordered by upload time.
func (s *Service) JobsXLSX() ([]byte, error) {
	start := time.Now()
	list := s.store.List()

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Uploaded At",
		"Name",
		"MIME Type",
		"Size (bytes)",
		"Status",
		"Method",
		"Pages",
		"Characters",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range list {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, j.UploadedAt.Format("2006-01-02 15:04:05"))
		write(2, j.SourceName)
		write(3, j.DeclaredMime)
		write(4, j.DeclaredSize)
		write(5, string(j.Status))
		write(6, j.Method)
		write(7, j.Pages)
		write(8, len(j.ExtractedText))
		if j.ErrorMessage != "" {
			write(9, truncate(fmt.Sprintf("%s: %s", j.ErrorCode, j.ErrorMessage), 140))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "C", "C", 18)
	_ = f.SetColWidth(sheet, "E", "F", 12)
	_ = f.SetColWidth(sheet, "I", "I", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok", "rows", len(list), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
