package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvgrid/internal/exporter"
	"csvgrid/internal/grid"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("DEFAULT_TIMEOUT", "90s")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg := Load()

	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 90*time.Second, cfg.DefaultTimeout)
	assert.True(t, cfg.S3PathStyle)
	assert.Equal(t, int64(3), cfg.MaxDBConcurrency)
}

func TestConfig_SlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		assert.Equal(t, want, (&Config{LogLevel: in}).SlogLevel(), in)
	}
}

const validJobs = `
jobs:
  - name: users
    driver: sqlite
    dsn: ./app.db
    query: SELECT id, name FROM users ORDER BY id
    key: id
    paginate: true
    page_size: 500
    columns:
      - type: serial
      - id
      - name:text:Full name
    show_header: false
    show_footer: true
    max_rows_per_file: 1000
    timeout: 5m
    file:
      cell_delimiter: ";"
      row_delimiter: "\n"
      enclosure: ""
      bom: true
    archive:
      force: true
      method: zstd
  - name: orders
    driver: mongo
    dsn: mongodb://localhost:27017/shop
    query: 'orders.find({"status": "paid"})'
    base_name: paid-orders
`

func TestParseJobs(t *testing.T) {
	jobs, err := ParseJobs([]byte(validJobs))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	users := jobs[0]
	assert.Equal(t, "users", users.BaseName)
	assert.False(t, users.HeaderShown())
	assert.True(t, users.ShowFooter)
	assert.Equal(t, 5*time.Minute, users.Timeout)
	require.Len(t, users.Columns, 3)
	assert.Equal(t, grid.ColumnTypeSerial, users.Columns[0].Config.Type)
	assert.Equal(t, "name:text:Full name", users.Columns[2].Text)
	require.NotNil(t, users.File.Enclosure)
	assert.Empty(t, *users.File.Enclosure)
	assert.Equal(t, "\n", *users.File.RowDelimiter)
	method, err := users.Archive.ZipMethod()
	require.NoError(t, err)
	assert.Equal(t, exporter.ZstdMethod, method)

	orders := jobs[1]
	assert.True(t, orders.HeaderShown())
	assert.Equal(t, "paid-orders", orders.BaseName)
	assert.Nil(t, orders.File.CellDelimiter)
}

func TestParseJobs_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          `jobs: []`,
		"missing driver": `jobs: [{name: a, dsn: x, query: SELECT 1}]`,
		"bad driver":     `jobs: [{name: a, driver: oracle, dsn: x, query: SELECT 1}]`,
		"unsafe query":   `jobs: [{name: a, driver: sqlite, dsn: x, query: "DELETE FROM users"}]`,
		"bad column":     `jobs: [{name: a, driver: sqlite, dsn: x, query: SELECT 1, columns: [":x"]}]`,
		"bad archive":    `jobs: [{name: a, driver: sqlite, dsn: x, query: SELECT 1, archive: {method: rar}}]`,
		"mongo paginate": `jobs: [{name: a, driver: mongo, dsn: x, query: "c.find({})", paginate: true}]`,
		"not yaml":       `jobs: [`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJobs([]byte(src))
			assert.ErrorIs(t, err, exporter.ErrConfig)
		})
	}
}

func TestLoadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validJobs), 0o644))

	jobs, err := LoadJobs(path)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = LoadJobs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
