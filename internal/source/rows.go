package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"csvgrid/internal/driver"
	"csvgrid/internal/record"
)

// Rows is a forward-only batch source over a driver streamer. Tabular rows become
// *record.Ordered values in column order; document streamers hand out their own records.
// The streamer is closed once exhausted or on the first error.
type Rows struct {
	streamer driver.Streamer
	columns  []string
	closed   bool
}

func NewRows(streamer driver.Streamer) *Rows {
	return &Rows{streamer: streamer}
}

func (r *Rows) NextBatch(ctx context.Context, size int) ([]any, error) {
	if r.closed {
		return nil, io.EOF
	}

	batch := make([]any, 0, size)
	for len(batch) < size {
		if err := ctx.Err(); err != nil {
			r.Close()
			return nil, err
		}
		if !r.streamer.Next() {
			err := r.streamer.Err()
			r.Close()
			if err != nil {
				return nil, fmt.Errorf("rows iteration error: %w", err)
			}
			if len(batch) == 0 {
				return nil, io.EOF
			}
			return batch, nil
		}

		rec, err := r.current()
		if err != nil {
			r.Close()
			return nil, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

func (r *Rows) current() (any, error) {
	switch s := r.streamer.(type) {
	case driver.RecordStreamer:
		return s.Record()
	case driver.RowStreamer:
		return r.scan(s)
	}
	return nil, errors.New("streamer yields neither rows nor records")
}

// scan reads the current row into a fresh record; values are not shared across rows.
func (r *Rows) scan(s driver.RowStreamer) (any, error) {
	if r.columns == nil {
		cols, err := s.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to get columns: %w", err)
		}
		r.columns = cols
	}

	values := make([]any, len(r.columns))
	scanArgs := make([]any, len(r.columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := s.Scan(scanArgs...); err != nil {
		return nil, fmt.Errorf("row scan failed: %w", err)
	}

	// drivers return text columns as []byte
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return record.NewOrdered(r.columns, values), nil
}

// Close releases the streamer. It is safe to call more than once.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.streamer.Close()
}
