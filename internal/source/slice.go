// Package source provides record sources for grid exports: in-memory slices, streaming
// driver results and paginated SQL queries.
package source

import (
	"context"
	"io"
)

// Slice is an in-memory batch source.
type Slice struct {
	records []any
	pos     int
}

func NewSlice(records []any) *Slice {
	return &Slice{records: records}
}

func (s *Slice) NextBatch(_ context.Context, size int) ([]any, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	end := min(s.pos+size, len(s.records))
	batch := s.records[s.pos:end]
	s.pos = end
	return batch, nil
}

// Array is an in-memory pager. With pageSize <= 0 it reports no pagination and serves
// every model at once.
type Array struct {
	models   []any
	keys     []any
	pageSize int
	page     int
}

// NewArray builds a pager over models. keys may be nil, in which case the models' indexes
// are used.
func NewArray(models []any, keys []any, pageSize int) *Array {
	if keys == nil {
		keys = make([]any, len(models))
		for i := range models {
			keys[i] = i
		}
	}
	return &Array{models: models, keys: keys, pageSize: pageSize}
}

func (a *Array) PageCount(context.Context) (int, error) {
	if a.pageSize <= 0 {
		return 0, nil
	}
	return (len(a.models) + a.pageSize - 1) / a.pageSize, nil
}

func (a *Array) SetPage(page int) { a.page = page }

func (a *Array) Models(context.Context) ([]any, error) {
	start, end := a.bounds()
	return a.models[start:end], nil
}

func (a *Array) Keys(context.Context) ([]any, error) {
	start, end := a.bounds()
	return a.keys[start:end], nil
}

func (a *Array) bounds() (int, int) {
	if a.pageSize <= 0 {
		return 0, len(a.models)
	}
	start := min(a.page*a.pageSize, len(a.models))
	end := min(start+a.pageSize, len(a.models))
	return start, end
}

// BatchSource mirrors grid.BatchSource.
type BatchSource interface {
	NextBatch(ctx context.Context, size int) ([]any, error)
}

// Labeled attaches header labels to a batch source.
type Labeled struct {
	BatchSource
	labels map[string]string
}

// WithLabels makes src publish labels for its fields. Fields without a label fall back to
// the humanized field name.
func WithLabels(src BatchSource, labels map[string]string) *Labeled {
	return &Labeled{BatchSource: src, labels: labels}
}

func (l *Labeled) FieldLabel(field string) string {
	return l.labels[field]
}
