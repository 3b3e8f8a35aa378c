package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// Archiver packs the given files into one artifact inside dir and returns its path.
type Archiver func(files []string, dir string) (string, error)

// Uploader receives the final artifact. Storage providers implement it.
type Uploader interface {
	Store(ctx context.Context, key string, r io.Reader) (string, error)
}

// Result owns every file produced by one export run and the temporary directory holding
// them. Owners must defer Delete; Move hands the artifact out and tears down on its own.
type Result struct {
	basePath      string
	baseName      string
	fileConfig    FileConfig
	archiver      Archiver
	forceArchive  bool
	archiveMethod uint16

	dir      string
	files    []*File
	artifact string
	resolved bool
	deleted  bool
}

// ResultOption configures a Result.
type ResultOption func(*Result)

// WithFileBaseName sets the prefix of generated file and archive names. Default "data".
func WithFileBaseName(name string) ResultOption {
	return func(r *Result) {
		if name != "" {
			r.baseName = name
		}
	}
}

// WithFileDefaults replaces the file settings every NewFile starts from.
func WithFileDefaults(cfg FileConfig) ResultOption {
	return func(r *Result) { r.fileConfig = cfg }
}

func WithArchiver(a Archiver) ResultOption {
	return func(r *Result) { r.archiver = a }
}

// WithForceArchive archives even a single output file.
func WithForceArchive(force bool) ResultOption {
	return func(r *Result) { r.forceArchive = force }
}

// WithArchiveMethod selects the zip compression method of the default archiver,
// zip.Deflate or ZstdMethod.
func WithArchiveMethod(method uint16) ResultOption {
	return func(r *Result) { r.archiveMethod = method }
}

func NewResult(basePath string, opts ...ResultOption) *Result {
	r := &Result{
		basePath:      basePath,
		baseName:      "data",
		fileConfig:    DefaultFileConfig(),
		archiveMethod: zip.Deflate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the run's temporary directory, {basePath}/{token}. It is created on the
// first file open.
func (r *Result) Dir() string {
	if r.dir == "" {
		r.dir = filepath.Join(r.basePath, uuid.NewString())
	}
	return r.dir
}

func (r *Result) BaseName() string { return r.baseName }

func (r *Result) Files() []*File { return r.files }

// NewFile registers the next file of the run, named {base}-{NNN}.csv.
func (r *Result) NewFile(opts ...FileOption) *File {
	cfg := r.fileConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	name := fmt.Sprintf("%s-%03d.csv", r.baseName, len(r.files)+1)
	file := NewFile(filepath.Join(r.Dir(), name), cfg)
	r.files = append(r.files, file)
	return file
}

// ArtifactPath returns the single path representing the run: the only file, or an archive
// of all files. The value is computed once. It is empty when no file was produced.
func (r *Result) ArtifactPath() (string, error) {
	if r.resolved {
		return r.artifact, nil
	}
	if len(r.files) == 0 {
		return "", nil
	}

	names := make([]string, 0, len(r.files))
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			return "", err
		}
		names = append(names, f.Name())
	}

	if len(names) == 1 && !r.forceArchive {
		r.artifact = names[0]
		r.resolved = true
		return r.artifact, nil
	}

	var (
		path string
		err  error
	)
	if r.archiver != nil {
		path, err = r.archiver(names, r.Dir())
	} else {
		path, err = ZipFiles(filepath.Join(r.Dir(), r.baseName+".zip"), names, r.archiveMethod)
	}
	if err != nil {
		return "", err
	}

	r.artifact = path
	r.resolved = true
	return r.artifact, nil
}

// Copy copies the artifact to dest, creating parent directories.
func (r *Result) Copy(dest string) error {
	src, err := r.artifactForTransfer("copy", dest)
	if err != nil {
		return err
	}
	if err := copyFile(src, dest); err != nil {
		return newIOError("copy", dest, err)
	}
	return nil
}

// Move renames the artifact to dest and then deletes the temporary directory.
func (r *Result) Move(dest string) error {
	src, err := r.artifactForTransfer("move", dest)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dest); err != nil {
		// rename fails across filesystems
		if cpErr := copyFile(src, dest); cpErr != nil {
			return newIOError("move", dest, err)
		}
	}
	return r.Delete()
}

// Save moves the artifact when deleteTemp is set and copies it otherwise.
func (r *Result) Save(dest string, deleteTemp bool) error {
	if deleteTemp {
		return r.Move(dest)
	}
	return r.Copy(dest)
}

// Publish streams the artifact to u under key and returns the stored location.
// The temporary directory is left in place.
func (r *Result) Publish(ctx context.Context, u Uploader, key string) (string, error) {
	src, err := r.ArtifactPath()
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", newIOError("upload", key, os.ErrNotExist)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", newIOError("upload", src, err)
	}
	defer f.Close()

	location, err := u.Store(ctx, key, f)
	if err != nil {
		return "", newIOError("upload", key, err)
	}
	return location, nil
}

// Delete closes every file and removes the temporary directory. Only the first call
// does any work.
func (r *Result) Delete() error {
	if r.deleted {
		return nil
	}
	r.deleted = true

	for _, f := range r.files {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close export file during cleanup", "path", f.Name(), "error", err)
		}
	}
	r.files = nil

	if r.dir == "" {
		return nil
	}
	if err := os.RemoveAll(r.dir); err != nil {
		return newIOError("delete", r.dir, err)
	}
	slog.Debug("Export directory removed", "path", r.dir)
	return nil
}

func (r *Result) artifactForTransfer(op, dest string) (string, error) {
	src, err := r.ArtifactPath()
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", newIOError(op, dest, os.ErrNotExist)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", newIOError(op, dest, err)
	}
	return src, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
