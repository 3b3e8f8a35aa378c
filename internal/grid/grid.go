// Package grid drives an export run: it pulls record batches, resolves columns, renders
// rows and streams them into the delimited files of an exporter.Result.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"csvgrid/internal/exporter"
	"csvgrid/internal/format"
	"csvgrid/internal/metrics"
	"csvgrid/internal/record"
)

// State is the phase an export run is in.
type State int

const (
	NotStarted State = iota
	ColumnsPending
	Streaming
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case ColumnsPending:
		return "columns_pending"
	case Streaming:
		return "streaming"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const DefaultBatchSize = 100

var (
	ErrAlreadyExported = errors.New("grid already exported")
	errNoSource        = errors.New("either a record source or a pager is required")
)

// Grid exports the records of one source. A Grid runs once; build a new one per export.
type Grid struct {
	source     BatchSource
	pager      Pager
	batchSize  int
	columnDefs []ColumnDef

	showHeader     bool
	showFooter     bool
	maxRowsPerFile int
	reclaimMemory  bool

	basePath    string
	fileOpts    []exporter.FileOption
	resultOpts  []exporter.ResultOption
	metrics     *metrics.Collector
	cellContext cellContext

	state   State
	columns []Column
	rows    int
}

// Option configures a Grid.
type Option func(*Grid)

// WithSource sets a batch-iterable record source. It takes precedence over WithPager.
func WithSource(src BatchSource) Option {
	return func(g *Grid) { g.source = src }
}

func WithPager(p Pager) Option {
	return func(g *Grid) { g.pager = p }
}

func WithBatchSize(n int) Option {
	return func(g *Grid) { g.batchSize = n }
}

// WithColumns sets explicit columns. Without it, columns are guessed from the first record.
func WithColumns(defs ...ColumnDef) Option {
	return func(g *Grid) { g.columnDefs = defs }
}

func WithShowHeader(show bool) Option {
	return func(g *Grid) { g.showHeader = show }
}

func WithShowFooter(show bool) Option {
	return func(g *Grid) { g.showFooter = show }
}

// WithEmptyCell sets the text of header and footer cells that have no content.
func WithEmptyCell(s string) Option {
	return func(g *Grid) { g.cellContext.emptyCell = s }
}

// WithNullDisplay sets the text of data cells whose value is nil.
func WithNullDisplay(s string) Option {
	return func(g *Grid) { g.cellContext.nullDisplay = s }
}

// WithMaxRowsPerFile starts a new file every n data rows. n <= 0 disables splitting.
func WithMaxRowsPerFile(n int) Option {
	return func(g *Grid) { g.maxRowsPerFile = n }
}

// WithFileOptions overrides delimiters, enclosure or BOM of every output file.
func WithFileOptions(opts ...exporter.FileOption) Option {
	return func(g *Grid) { g.fileOpts = append(g.fileOpts, opts...) }
}

func WithResultOptions(opts ...exporter.ResultOption) Option {
	return func(g *Grid) { g.resultOpts = append(g.resultOpts, opts...) }
}

// WithBasePath sets where the temporary export directory is created.
func WithBasePath(dir string) Option {
	return func(g *Grid) { g.basePath = dir }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(g *Grid) { g.metrics = c }
}

// WithReclaimMemory runs the garbage collector after every consumed batch.
func WithReclaimMemory(on bool) Option {
	return func(g *Grid) { g.reclaimMemory = on }
}

// New builds a Grid. A nil formatter falls back to format.Default().
func New(formatter format.Formatter, opts ...Option) *Grid {
	if formatter == nil {
		formatter = format.Default()
	}
	g := &Grid{
		batchSize:  DefaultBatchSize,
		showHeader: true,
		basePath:   filepath.Join(os.TempDir(), "csv-grid"),
		cellContext: cellContext{
			formatter: formatter,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Grid) State() State { return g.state }

// Columns returns the resolved columns; empty until the first record arrived.
func (g *Grid) Columns() []Column { return g.columns }

// Rows returns the number of data rows written by the last run.
func (g *Grid) Rows() int { return g.rows }

// Export runs the whole pipeline and returns the result owning the written files.
// The caller owns the result and must Delete or Move it. On error the partial result is
// deleted before returning.
func (g *Grid) Export(ctx context.Context) (res *exporter.Result, err error) {
	if g.state != NotStarted {
		return nil, ErrAlreadyExported
	}
	start := time.Now()

	cur, err := g.cursor()
	if err != nil {
		return nil, err
	}

	g.state = ColumnsPending
	r := exporter.NewResult(g.basePath, g.resultOpts...)
	defer func() {
		g.metrics.ExportFinished(time.Since(start), err)
		if err == nil {
			return
		}
		if delErr := r.Delete(); delErr != nil {
			slog.Warn("Failed to clean up after export error", "dir", r.Dir(), "error", delErr)
		}
		res = nil
	}()

	w := &rowWriter{grid: g, result: r}
	rowIndex := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, keys, err := cur.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		g.metrics.BatchFetched()

		if g.state == ColumnsPending && len(records) > 0 {
			if err := g.initColumns(records[0]); err != nil {
				return nil, err
			}
			g.state = Streaming
		}

		for i, rec := range records {
			var key any = i
			if i < len(keys) {
				key = keys[i]
			}
			if err := w.writeRecord(rec, key, rowIndex); err != nil {
				return nil, err
			}
			rowIndex++
		}

		if g.reclaimMemory {
			runtime.GC()
		}
	}

	g.state = Finalizing
	if err := w.finish(); err != nil {
		return nil, err
	}
	if len(r.Files()) == 0 {
		if err := w.writeEmpty(); err != nil {
			return nil, err
		}
	}

	g.state = Done
	g.rows = rowIndex
	slog.Info("Export finished",
		"rows", rowIndex,
		"files", len(r.Files()),
		"dir", r.Dir(),
		"duration", time.Since(start),
	)
	return r, nil
}

func (g *Grid) cursor() (cursor, error) {
	batchSize := g.batchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	switch {
	case g.source != nil:
		if g.pager != nil {
			slog.Warn("Both record source and pager configured, pager is ignored")
		}
		return &batchCursor{src: g.source, size: batchSize}, nil
	case g.pager != nil:
		return &pageCursor{pager: g.pager}, nil
	}
	return nil, exporter.NewConfigError("source", errNoSource)
}

func (g *Grid) initColumns(first any) error {
	if g.cellContext.labeler == nil {
		g.cellContext.labeler = g.findLabeler(first)
	}
	defs := g.columnDefs
	if len(defs) == 0 {
		defs = guessColumns(record.Fields(first))
	}
	cols, err := resolveColumns(defs, &g.cellContext)
	if err != nil {
		return err
	}
	g.columns = cols
	return nil
}

// findLabeler prefers labels published by the source over those of the first record.
func (g *Grid) findLabeler(first any) record.Labeler {
	for _, candidate := range []any{g.activeSource(), first} {
		if l, ok := candidate.(record.Labeler); ok {
			return l
		}
	}
	return nil
}

func (g *Grid) activeSource() any {
	if g.source != nil {
		return g.source
	}
	return g.pager
}
