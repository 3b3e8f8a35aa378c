package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// BatchSource yields successive groups of records. It returns io.EOF once exhausted; a
// final short batch may come with a nil error. Sources are forward-only.
type BatchSource interface {
	NextBatch(ctx context.Context, size int) ([]any, error)
}

// Pager is a paginated record provider. A page count of zero or less means the provider
// is not paginated and Models returns everything in one pass.
type Pager interface {
	PageCount(ctx context.Context) (int, error)
	SetPage(page int)
	Models(ctx context.Context) ([]any, error)
	// Keys returns one identifier per model of the current page, in the same order.
	Keys(ctx context.Context) ([]any, error)
}

// cursor is the single "next batch" operation the export loop is written against.
// keys may be nil, in which case records are keyed by their position in the batch.
type cursor interface {
	next(ctx context.Context) (records []any, keys []any, err error)
}

type batchCursor struct {
	src  BatchSource
	size int
	done bool
}

func (c *batchCursor) next(ctx context.Context) ([]any, []any, error) {
	if c.done {
		return nil, nil, io.EOF
	}
	records, err := c.src.NextBatch(ctx, c.size)
	if errors.Is(err, io.EOF) {
		c.done = true
		if len(records) == 0 {
			return nil, nil, io.EOF
		}
		return records, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetch batch: %w", err)
	}
	return records, nil, nil
}

type pageCursor struct {
	pager   Pager
	page    int
	count   int
	counted bool
}

func (c *pageCursor) next(ctx context.Context) ([]any, []any, error) {
	if !c.counted {
		n, err := c.pager.PageCount(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("count pages: %w", err)
		}
		c.count, c.counted = n, true
	}

	if c.count <= 0 {
		if c.page > 0 {
			return nil, nil, io.EOF
		}
		c.page++
		return c.load(ctx)
	}

	if c.page >= c.count {
		return nil, nil, io.EOF
	}
	c.pager.SetPage(c.page)
	c.page++
	return c.load(ctx)
}

func (c *pageCursor) load(ctx context.Context) ([]any, []any, error) {
	models, err := c.pager.Models(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load page %d: %w", c.page-1, err)
	}
	keys, err := c.pager.Keys(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load keys of page %d: %w", c.page-1, err)
	}
	return models, keys, nil
}
