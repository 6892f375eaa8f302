// Package export renders saved documents as an XLSX workbook.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/akolanti/DocScanAPI/internal/content"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Documents"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxCellLength = 32767
)

var fixedHeaders = []string{"File Name", "Document Type", "Status", "Confidence", "Scanned At", "Created At"}

var logger = logger_i.NewLogger("Export")

// SavedDocuments returns the workbook bytes. One row per document; after the
// fixed columns comes one column per field key found in any document, sorted.
func SavedDocuments(ctx context.Context, docs []documentModel.Document) ([]byte, error) {
	start := time.Now()

	rows := make([]map[string]any, len(docs))
	keySet := make(map[string]struct{})
	for i, d := range docs {
		rows[i] = make(map[string]any)
		for _, field := range content.FieldRows(d.Content) {
			rows[i][field.Key] = field.Value
			keySet[field.Key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := append(append([]string(nil), fixedHeaders...), keys...)
	if err := writeRow(f, 1, toAny(headers)); err != nil {
		return nil, err
	}

	for i, d := range docs {
		values := []any{
			d.FileName,
			d.DocumentType,
			string(d.Status),
			confidence(d.ConfidenceScore),
			formatTime(d.ScannedAt),
			formatTime(d.CreatedAt),
		}
		for _, k := range keys {
			values = append(values, cellValue(rows[i][k]))
		}
		if err := writeRow(f, i+2, values); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32)
	_ = f.SetColWidth(SheetName, "B", "C", 16)
	_ = f.SetColWidth(SheetName, "E", "F", 22)
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		logger.Warn("Could not freeze header row", "error", err)
	}

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.WithContext(ctx).Info("Export written", "rows", len(docs), "columns", len(headers), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func confidence(score *float64) any {
	if score == nil {
		return ""
	}
	return *score
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// cellValue keeps scalars as they are and writes anything else as JSON.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return truncate(val)
	case bool, float64, int, int64:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return truncate(fmt.Sprint(val))
		}
		return truncate(string(b))
	}
}

func truncate(s string) string {
	if len(s) <= maxCellLength {
		return s
	}
	return s[:maxCellLength-3] + "..."
}
