package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvgrid/internal/record"
)

const DefaultPageSize = 100

// Query is a paginated provider over a SQL SELECT. Pages are fetched with LIMIT/OFFSET, so
// the query should carry an ORDER BY for a stable page split.
type Query struct {
	db       *sql.DB
	query    string
	keyCol   string
	pageSize int
	paginate bool

	page   int
	loaded int
	models []any
}

type QueryOption func(*Query)

// WithKeyColumn takes record keys from the named column instead of the row offset.
func WithKeyColumn(col string) QueryOption {
	return func(q *Query) { q.keyCol = col }
}

func WithPageSize(n int) QueryOption {
	return func(q *Query) {
		if n > 0 {
			q.pageSize = n
		}
	}
}

// WithoutPagination loads the whole result in one pass.
func WithoutPagination() QueryOption {
	return func(q *Query) { q.paginate = false }
}

func NewQuery(db *sql.DB, query string, opts ...QueryOption) *Query {
	q := &Query{
		db:       db,
		query:    strings.TrimRight(strings.TrimSpace(query), ";"),
		pageSize: DefaultPageSize,
		paginate: true,
		loaded:   -1,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Query) PageCount(ctx context.Context) (int, error) {
	if !q.paginate {
		return 0, nil
	}
	var total int
	row := q.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM (%s) q", q.query))
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return (total + q.pageSize - 1) / q.pageSize, nil
}

func (q *Query) SetPage(page int) {
	q.page = page
}

func (q *Query) Models(ctx context.Context) ([]any, error) {
	if err := q.load(ctx); err != nil {
		return nil, err
	}
	return q.models, nil
}

func (q *Query) Keys(ctx context.Context) ([]any, error) {
	if err := q.load(ctx); err != nil {
		return nil, err
	}
	keys := make([]any, len(q.models))
	for i, m := range q.models {
		if q.keyCol != "" {
			if v, ok := m.(*record.Ordered).Get(q.keyCol); ok {
				keys[i] = v
				continue
			}
		}
		keys[i] = q.offset() + i
	}
	return keys, nil
}

func (q *Query) offset() int {
	if !q.paginate {
		return 0
	}
	return q.page * q.pageSize
}

// load fetches the current page once; Models and Keys share it.
func (q *Query) load(ctx context.Context) error {
	if q.loaded == q.page && q.models != nil {
		return nil
	}

	stmt := q.query
	if q.paginate {
		stmt = fmt.Sprintf("%s LIMIT %d OFFSET %d", q.query, q.pageSize, q.offset())
	}
	rows, err := q.db.QueryContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}

	src := NewRows(rows)
	defer src.Close()

	models := make([]any, 0, q.pageSize)
	for {
		batch, err := src.NextBatch(ctx, q.pageSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		models = append(models, batch...)
	}
	q.models, q.loaded = models, q.page
	return nil
}
