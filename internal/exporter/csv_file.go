package exporter

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// UTF8BOM is written at the start of a file when FileConfig.WriteBOM is set.
var UTF8BOM = []byte{0xEF, 0xBB, 0xBF}

const writeBufferSize = 64 * 1024

// FileConfig controls the byte layout of one delimited file.
type FileConfig struct {
	RowDelimiter  string
	CellDelimiter string
	// Enclosure wraps every cell when non-empty. Embedded occurrences are doubled.
	Enclosure string
	// WriteBOM prefixes the file with UTF8BOM unless BOM holds custom bytes.
	WriteBOM bool
	// BOM, when non-nil, is written verbatim before the first row.
	BOM []byte
}

// DefaultFileConfig returns CRLF rows, comma cells and double-quote enclosure.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		RowDelimiter:  "\r\n",
		CellDelimiter: ",",
		Enclosure:     `"`,
	}
}

func (c FileConfig) bom() []byte {
	if c.BOM != nil {
		return c.BOM
	}
	if c.WriteBOM {
		return UTF8BOM
	}
	return nil
}

// FileOption overrides a single FileConfig setting.
type FileOption func(*FileConfig)

func WithRowDelimiter(d string) FileOption {
	return func(c *FileConfig) { c.RowDelimiter = d }
}

func WithCellDelimiter(d string) FileOption {
	return func(c *FileConfig) { c.CellDelimiter = d }
}

// WithEnclosure sets the enclosure; an empty string disables enclosing and escaping.
func WithEnclosure(e string) FileOption {
	return func(c *FileConfig) { c.Enclosure = e }
}

// WithBOM writes the given bytes once at the start of the file.
func WithBOM(bom []byte) FileOption {
	return func(c *FileConfig) { c.BOM = bom }
}

func WithUTF8BOM() FileOption {
	return func(c *FileConfig) { c.WriteBOM = true }
}

// File is an append-only delimited text file. The backing file is created lazily on the
// first write and buffered to keep syscalls low on large exports.
type File struct {
	name string
	cfg  FileConfig

	f      *os.File
	buf    *bufio.Writer
	rows   int
	closed bool
}

// NewFile prepares a file at name. Nothing touches the disk until Open or WriteRow.
func NewFile(name string, cfg FileConfig) *File {
	return &File{name: name, cfg: cfg}
}

func (f *File) Name() string { return f.name }

func (f *File) Config() FileConfig { return f.cfg }

// Rows returns the number of rows written so far, header and footer included.
func (f *File) Rows() int { return f.rows }

// Open creates the file and its parent directories. Calling it on an open file is a no-op.
func (f *File) Open() error {
	if f.closed {
		return newIOError("open", f.name, ErrFileClosed)
	}
	if f.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.name), 0o755); err != nil {
		return newIOError("open", f.name, err)
	}
	fh, err := os.Create(f.name)
	if err != nil {
		return newIOError("open", f.name, err)
	}
	f.f = fh
	f.buf = bufio.NewWriterSize(fh, writeBufferSize)
	return nil
}

// WriteRow appends one row of already rendered cells.
func (f *File) WriteRow(cells []string) error {
	if err := f.Open(); err != nil {
		return err
	}

	var sb strings.Builder
	if f.rows == 0 {
		sb.Write(f.cfg.bom())
	} else {
		sb.WriteString(f.cfg.RowDelimiter)
	}
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(f.cfg.CellDelimiter)
		}
		sb.WriteString(EncodeCell(cell, f.cfg.Enclosure))
	}

	if _, err := f.buf.WriteString(sb.String()); err != nil {
		return newIOError("write", f.name, err)
	}
	f.rows++
	return nil
}

// Close flushes buffered rows and releases the handle. It is safe to call repeatedly.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.f == nil {
		return nil
	}

	flushErr := f.buf.Flush()
	closeErr := f.f.Close()
	f.f, f.buf = nil, nil

	if flushErr != nil {
		return newIOError("write", f.name, flushErr)
	}
	if closeErr != nil {
		return newIOError("close", f.name, closeErr)
	}
	return nil
}

// Delete closes the file and removes it from disk if it exists.
func (f *File) Delete() error {
	closeErr := f.Close()
	if err := os.Remove(f.name); err != nil && !os.IsNotExist(err) {
		return newIOError("delete", f.name, err)
	}
	return closeErr
}

// EncodeCell wraps value in the enclosure, doubling embedded enclosures.
// With an empty enclosure the value is returned untouched.
func EncodeCell(value, enclosure string) string {
	if enclosure == "" {
		return value
	}
	return enclosure + strings.ReplaceAll(value, enclosure, enclosure+enclosure) + enclosure
}
