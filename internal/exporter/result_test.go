package exporter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOne(t *testing.T, r *Result, cells ...string) *File {
	t.Helper()
	f := r.NewFile()
	require.NoError(t, f.WriteRow(cells))
	require.NoError(t, f.Close())
	return f
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	zr.RegisterDecompressor(ZstdMethod, zstd.ZipDecompressor())

	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(data)
	}
	return entries
}

func TestResult_NewFile(t *testing.T) {
	r := NewResult(t.TempDir())
	defer r.Delete()

	f := r.NewFile(WithCellDelimiter("#"))
	assert.Equal(t, "#", f.Config().CellDelimiter)
	assert.Equal(t, "\r\n", f.Config().RowDelimiter)
	assert.Equal(t, filepath.Join(r.Dir(), "data-001.csv"), f.Name())

	require.NoError(t, f.WriteRow([]string{"foo"}))
	require.NoError(t, f.Close())

	second := r.NewFile()
	assert.Equal(t, "data-002.csv", filepath.Base(second.Name()))
	assert.Equal(t, ",", second.Config().CellDelimiter)

	entries, err := os.ReadDir(r.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestResult_DirIsUniquePerResult(t *testing.T) {
	base := t.TempDir()
	a, b := NewResult(base), NewResult(base)
	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.Equal(t, base, filepath.Dir(a.Dir()))
	assert.Equal(t, a.Dir(), a.Dir())
}

func TestResult_ArtifactPath(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		r := NewResult(t.TempDir())
		path, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("single file", func(t *testing.T) {
		r := NewResult(t.TempDir())
		defer r.Delete()
		f := writeOne(t, r, "foo")

		path, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Equal(t, f.Name(), path)
	})

	t.Run("many files archived", func(t *testing.T) {
		r := NewResult(t.TempDir(), WithFileBaseName("items"))
		defer r.Delete()
		writeOne(t, r, "first")
		writeOne(t, r, "second")

		path, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(r.Dir(), "items.zip"), path)
		assert.Equal(t, map[string]string{
			"items-001.csv": `"first"`,
			"items-002.csv": `"second"`,
		}, zipEntries(t, path))

		again, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Equal(t, path, again)
	})

	t.Run("forced archive with zstd", func(t *testing.T) {
		r := NewResult(t.TempDir(), WithForceArchive(true), WithArchiveMethod(ZstdMethod))
		defer r.Delete()
		writeOne(t, r, "only")

		path, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Equal(t, ".zip", filepath.Ext(path))
		assert.Equal(t, map[string]string{"data-001.csv": `"only"`}, zipEntries(t, path))
	})

	t.Run("custom archiver", func(t *testing.T) {
		var gotFiles []string
		var gotDir string
		r := NewResult(t.TempDir(), WithArchiver(func(files []string, dir string) (string, error) {
			gotFiles, gotDir = files, dir
			return filepath.Join(dir, "custom.bin"), nil
		}))
		defer r.Delete()
		a := writeOne(t, r, "a")
		b := writeOne(t, r, "b")

		path, err := r.ArtifactPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(r.Dir(), "custom.bin"), path)
		assert.Equal(t, r.Dir(), gotDir)
		assert.Equal(t, []string{a.Name(), b.Name()}, gotFiles)
	})

	t.Run("archiver failure", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewResult(t.TempDir(), WithArchiver(func([]string, string) (string, error) {
			return "", boom
		}))
		defer r.Delete()
		writeOne(t, r, "a")
		writeOne(t, r, "b")

		_, err := r.ArtifactPath()
		assert.ErrorIs(t, err, boom)
	})
}

func TestResult_Delete(t *testing.T) {
	r := NewResult(t.TempDir())
	f := writeOne(t, r, "foo")
	dir := r.Dir()

	require.NoError(t, r.Delete())
	_, err := os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, r.Delete())
	assert.Empty(t, r.Files())
}

func TestResult_DeleteClosesOpenFiles(t *testing.T) {
	r := NewResult(t.TempDir())
	f := r.NewFile()
	require.NoError(t, f.WriteRow([]string{"open"}))

	require.NoError(t, r.Delete())
	assert.ErrorIs(t, f.WriteRow([]string{"late"}), ErrFileClosed)
}

func TestResult_Copy(t *testing.T) {
	r := NewResult(t.TempDir())
	defer r.Delete()
	writeOne(t, r, "foo")

	dest := filepath.Join(t.TempDir(), "sub", "destination.csv")
	require.NoError(t, r.Copy(dest))

	assert.Equal(t, `"foo"`, readFile(t, dest))
	src, err := r.ArtifactPath()
	require.NoError(t, err)
	assert.FileExists(t, src)
}

func TestResult_Move(t *testing.T) {
	r := NewResult(t.TempDir())
	writeOne(t, r, "foo")
	src, err := r.ArtifactPath()
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "sub", "destination.csv")
	require.NoError(t, r.Move(dest))

	assert.Equal(t, `"foo"`, readFile(t, dest))
	assert.NoFileExists(t, src)
	assert.NoDirExists(t, r.Dir())
	require.NoError(t, r.Delete())
}

func TestResult_SaveCopiesWhenKeepingTemp(t *testing.T) {
	r := NewResult(t.TempDir())
	defer r.Delete()
	writeOne(t, r, "foo")

	dest := filepath.Join(t.TempDir(), "kept.csv")
	require.NoError(t, r.Save(dest, false))
	assert.FileExists(t, dest)
	assert.DirExists(t, r.Dir())
}

func TestResult_TransferWithoutFiles(t *testing.T) {
	r := NewResult(t.TempDir())
	err := r.Copy(filepath.Join(t.TempDir(), "x.csv"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type memUploader struct {
	keys []string
	data map[string][]byte
}

func (m *memUploader) Store(_ context.Context, key string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.keys = append(m.keys, key)
	m.data[key] = buf.Bytes()
	return "mem://" + key, nil
}

func TestResult_Publish(t *testing.T) {
	r := NewResult(t.TempDir())
	defer r.Delete()
	writeOne(t, r, "a")
	writeOne(t, r, "b")

	up := &memUploader{}
	loc, err := r.Publish(context.Background(), up, "exports/run.zip")
	require.NoError(t, err)
	assert.Equal(t, "mem://exports/run.zip", loc)
	assert.Equal(t, []string{"exports/run.zip"}, up.keys)

	archived := filepath.Join(t.TempDir(), "copy.zip")
	require.NoError(t, os.WriteFile(archived, up.data["exports/run.zip"], 0o644))
	entries := zipEntries(t, archived)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"data-001.csv", "data-002.csv"}, names)
}
