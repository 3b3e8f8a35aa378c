package exporter

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T, opts ...FileOption) *File {
	t.Helper()
	cfg := DefaultFileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFile(filepath.Join(t.TempDir(), "nested", "dir", "test.csv"), cfg)
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestFile_WriteRow(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.WriteRow([]string{"cell-1", "cell-2"}))
	require.NoError(t, f.Close())

	assert.Equal(t, 1, f.Rows())
	assert.Equal(t, `"cell-1","cell-2"`, readFile(t, f.Name()))
}

func TestFile_RowDelimiterOnlyBetweenRows(t *testing.T) {
	f := newTestFile(t, WithRowDelimiter("\n"), WithCellDelimiter(";"))

	require.NoError(t, f.WriteRow([]string{"a", "b"}))
	require.NoError(t, f.WriteRow([]string{"c", "d"}))
	require.NoError(t, f.Close())

	assert.Equal(t, "\"a\";\"b\"\n\"c\";\"d\"", readFile(t, f.Name()))
}

func TestFile_EscapeEnclosure(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.WriteRow([]string{`"quoted"`}))
	require.NoError(t, f.Close())

	assert.Equal(t, `"""quoted"""`, readFile(t, f.Name()))
}

func TestFile_NoEnclosure(t *testing.T) {
	f := newTestFile(t, WithEnclosure(""))

	require.NoError(t, f.WriteRow([]string{`a"b`, "c"}))
	require.NoError(t, f.Close())

	assert.Equal(t, `a"b,c`, readFile(t, f.Name()))
}

func TestFile_WriteBOM(t *testing.T) {
	t.Run("utf8 flag", func(t *testing.T) {
		f := newTestFile(t, WithUTF8BOM())
		require.NoError(t, f.WriteRow([]string{"cell-1", "cell-2"}))
		require.NoError(t, f.WriteRow([]string{"cell-1", "cell-2"}))
		require.NoError(t, f.Close())

		expected := "\xEF\xBB\xBF" + `"cell-1","cell-2"` + "\r\n" + `"cell-1","cell-2"`
		assert.Equal(t, expected, readFile(t, f.Name()))
	})

	t.Run("custom bytes", func(t *testing.T) {
		f := newTestFile(t, WithBOM([]byte("BOM")))
		require.NoError(t, f.WriteRow([]string{"cell-1"}))
		require.NoError(t, f.WriteRow([]string{"cell-2"}))
		require.NoError(t, f.Close())

		assert.Equal(t, "BOM\"cell-1\"\r\n\"cell-2\"", readFile(t, f.Name()))
	})
}

func TestFile_CloseIsIdempotentAndFinal(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.WriteRow([]string{"x"}))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	err := f.WriteRow([]string{"y"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileClosed))
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, `"x"`, readFile(t, f.Name()))
}

func TestFile_Delete(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.WriteRow([]string{"x"}))

	require.NoError(t, f.Delete())
	_, err := os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, f.Delete())
}

func TestFile_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f := NewFile(filepath.Join(blocker, "test.csv"), DefaultFileConfig())
	err := f.WriteRow([]string{"a"})

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, 0, f.Rows())
}

// decodeCell reverses EncodeCell for an arbitrary single-character enclosure.
func decodeCell(t *testing.T, cell, enclosure string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(cell, enclosure))
	require.True(t, strings.HasSuffix(cell, enclosure))
	inner := cell[len(enclosure) : len(cell)-len(enclosure)]
	return strings.ReplaceAll(inner, enclosure+enclosure, enclosure)
}

func TestEncodeCell_RoundTrip(t *testing.T) {
	values := []string{
		"",
		"plain",
		`one " quote`,
		`"leading`,
		`trailing"`,
		`""`,
		`many "" quotes " here """`,
		"line\r\nbreak, comma",
		"'single' and |pipes|",
	}

	for _, enclosure := range []string{`"`, "'", "|"} {
		for _, v := range values {
			encoded := EncodeCell(v, enclosure)
			assert.Equal(t, v, decodeCell(t, encoded, enclosure), "enclosure %q value %q", enclosure, v)
		}
	}
}

func TestEncodeCell_ReadableByCSVReader(t *testing.T) {
	f := newTestFile(t)
	rows := [][]string{
		{"id", `say "hi"`},
		{"1", "a,b"},
		{"2", `"""`},
	}
	for _, row := range rows {
		require.NoError(t, f.WriteRow(row))
	}
	require.NoError(t, f.Close())

	in, err := os.Open(f.Name())
	require.NoError(t, err)
	defer in.Close()

	got, err := csv.NewReader(in).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
