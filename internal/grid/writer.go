package grid

import (
	"fmt"
	"log/slog"

	"csvgrid/internal/exporter"
)

// rowWriter owns the currently open file of a run and rotates it at the row cap.
type rowWriter struct {
	grid     *Grid
	result   *exporter.Result
	current  *exporter.File
	dataRows int
}

func (w *rowWriter) writeRecord(rec any, key any, index int) error {
	if w.current == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	cells, err := composeRow(w.grid.columns, rec, key, index)
	if err != nil {
		return err
	}
	if err := w.current.WriteRow(cells); err != nil {
		return err
	}
	w.dataRows++
	w.grid.metrics.RowWritten()

	if limit := w.grid.maxRowsPerFile; limit > 0 && w.dataRows >= limit {
		slog.Debug("Row cap reached, rotating file", "path", w.current.Name(), "rows", w.dataRows)
		return w.closeCurrent()
	}
	return nil
}

// finish writes the footer of a still open file and closes it.
func (w *rowWriter) finish() error {
	if w.current == nil {
		return nil
	}
	return w.closeCurrent()
}

// writeEmpty produces the single header/footer-only file of a run without records.
func (w *rowWriter) writeEmpty() error {
	g := w.grid
	if g.columns == nil && len(g.columnDefs) > 0 {
		cols, err := resolveColumns(g.columnDefs, &g.cellContext)
		if err != nil {
			return err
		}
		g.columns = cols
	}
	if err := w.open(); err != nil {
		return err
	}
	return w.closeCurrent()
}

func (w *rowWriter) open() error {
	f := w.result.NewFile(w.grid.fileOpts...)
	if err := f.Open(); err != nil {
		return err
	}
	w.current = f
	w.dataRows = 0

	if w.grid.showHeader {
		if err := f.WriteRow(composeHeader(w.grid.columns)); err != nil {
			return err
		}
	}
	return nil
}

func (w *rowWriter) closeCurrent() error {
	f := w.current
	w.current = nil

	if w.grid.showFooter {
		if err := f.WriteRow(composeFooter(w.grid.columns)); err != nil {
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.grid.metrics.FileWritten()
	slog.Debug("Export file closed", "path", f.Name(), "rows", f.Rows())
	return nil
}

func composeRow(cols []Column, rec any, key any, index int) ([]string, error) {
	cells := make([]string, len(cols))
	for i, col := range cols {
		cell, err := col.DataCell(rec, key, index)
		if err != nil {
			return nil, fmt.Errorf("render row %d column %d: %w", index, i, err)
		}
		cells[i] = cell
	}
	return cells, nil
}

func composeHeader(cols []Column) []string {
	cells := make([]string, len(cols))
	for i, col := range cols {
		cells[i] = col.HeaderCell()
	}
	return cells
}

func composeFooter(cols []Column) []string {
	cells := make([]string, len(cols))
	for i, col := range cols {
		cells[i] = col.FooterCell()
	}
	return cells
}
