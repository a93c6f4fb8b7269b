// Package export renders report views as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"flex_reviews/internal/domain"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	PerformanceSheet = "Performance"
	TrendsSheet      = "Trends"
)

// WritePerformance writes one row per listing under a header row.
func WritePerformance(w io.Writer, rows []domain.ListingPerformance) error {
	return writeSheet(w, PerformanceSheet,
		[]any{"Listing", "Avg rating", "Reviews", "Approved", "Published"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.ListingName, avgCell(r.AvgRating), r.Total, r.ApprovedCount, r.PublishedCount}
		})
}

// WriteTrends writes one row per bucket, oldest first.
func WriteTrends(w io.Writer, points []domain.TrendPoint) error {
	return writeSheet(w, TrendsSheet,
		[]any{"Period", "Avg rating", "Reviews"},
		len(points),
		func(i int) []any {
			p := points[i]
			return []any{p.Day, avgCell(p.AvgRating), p.Count}
		})
}

func writeSheet(w io.Writer, sheet string, header []any, n int, row func(int) []any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := row(i)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return f.Write(w)
}

// avgCell leaves the cell empty for unrated groups and rounds to 2 places.
func avgCell(p *float64) any {
	if p == nil {
		return nil
	}
	return float64(int64(*p*100+0.5)) / 100
}
