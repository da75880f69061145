package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	contextutils "feedbackapp/internal/utils"
)

// utf8BOM makes spreadsheet applications detect the CSV encoding correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvHeader is the column order of the CSV export.
var csvHeader = []string{
	"ID", "Name", "Email", "Rating", "Comment", "Status",
	"Response", "Responded By", "Responded At", "Created At", "Updated At",
}

// ExportService renders the currently filtered view into downloadable
// documents. It exports the view it is given, not the whole collection, so
// what the caller sees is exactly what is exported.
type ExportService struct {
	logger *observability.Logger

	now func() time.Time
}

// NewExportService creates the export service.
func NewExportService(logger *observability.Logger) *ExportService {
	if logger == nil {
		panic("NewExportService: logger is nil")
	}
	return &ExportService{logger: logger, now: time.Now}
}

// ExportCSV renders the view as a UTF-8 CSV with a BOM prefix. Quoting and
// escaping follow RFC 4180: embedded quotes are doubled, fields containing
// separators or newlines are quoted.
func (s *ExportService) ExportCSV(ctx context.Context, view []models.Feedback) (data []byte, filename string, err error) {
	ctx, span := observability.TraceFunction(ctx, "export", "export_csv")
	defer observability.FinishSpan(span, &err)

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, "", contextutils.WrapError(err, "failed to write CSV header")
	}

	for _, fb := range view {
		record := []string{
			fb.ID,
			fb.Submitter.Name,
			fb.Submitter.Email,
			strconv.Itoa(fb.Rating),
			fb.Comment,
			string(fb.Status),
			"", "", "",
			formatExportTime(fb.CreatedAt),
			formatExportTime(fb.UpdatedAt),
		}
		if fb.Response != nil {
			record[6] = fb.Response.Text
			record[7] = fb.Response.RespondedBy
			record[8] = formatExportTime(fb.Response.RespondedAt)
		}
		if err := w.Write(record); err != nil {
			return nil, "", contextutils.WrapError(err, "failed to write CSV record")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", contextutils.WrapError(err, "failed to flush CSV")
	}

	filename = s.exportFilename("csv")
	s.logger.Info(ctx, "CSV export generated", map[string]interface{}{
		"records":  len(view),
		"filename": filename,
	})
	return buf.Bytes(), filename, nil
}

// ExportJSON renders the view as an indented JSON envelope carrying export
// metadata alongside the records.
func (s *ExportService) ExportJSON(ctx context.Context, view []models.Feedback, filters models.FilterSpec) (data []byte, filename string, err error) {
	ctx, span := observability.TraceFunction(ctx, "export", "export_json")
	defer observability.FinishSpan(span, &err)

	filters.Normalize()
	export := models.ExportData{
		Metadata: models.ExportMetadata{
			ExportDate:   s.now(),
			TotalRecords: len(view),
			Filters:      filters,
		},
		Feedbacks: view,
	}

	data, err = json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, "", contextutils.WrapError(err, "failed to marshal JSON export")
	}

	filename = s.exportFilename("json")
	s.logger.Info(ctx, "JSON export generated", map[string]interface{}{
		"records":  len(view),
		"filename": filename,
	})
	return data, filename, nil
}

// exportFilename embeds the generation date and time so repeated exports do
// not overwrite each other.
func (s *ExportService) exportFilename(ext string) string {
	return fmt.Sprintf("feedbacks_%s.%s", s.now().Format("2006-01-02_15-04-05"), ext)
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
