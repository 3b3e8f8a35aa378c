package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"csvgrid/internal/driver"
	"csvgrid/internal/exporter"
	"csvgrid/internal/grid"
)

// Job is one export definition of a job file.
type Job struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Query  string `yaml:"query"`
	// Key names the column record keys are read from in paginated mode.
	Key       string `yaml:"key"`
	Paginate  bool   `yaml:"paginate"`
	PageSize  int    `yaml:"page_size"`
	BatchSize int    `yaml:"batch_size"`

	Columns        []grid.ColumnDef  `yaml:"columns"`
	Labels         map[string]string `yaml:"labels"`
	ShowHeader     *bool             `yaml:"show_header"`
	ShowFooter     bool              `yaml:"show_footer"`
	EmptyCell      string            `yaml:"empty_cell"`
	NullDisplay    string            `yaml:"null_display"`
	MaxRowsPerFile int               `yaml:"max_rows_per_file"`
	Sanitize       bool              `yaml:"sanitize_formulas"`

	File     FileSettings    `yaml:"file"`
	Archive  ArchiveSettings `yaml:"archive"`
	BaseName string          `yaml:"base_name"`
	// Destination is a local path the artifact is moved to. Without it the artifact is
	// published to the configured storage provider.
	Destination string        `yaml:"destination"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FileSettings override the output file format. Nil fields keep the defaults.
type FileSettings struct {
	CellDelimiter *string `yaml:"cell_delimiter"`
	RowDelimiter  *string `yaml:"row_delimiter"`
	Enclosure     *string `yaml:"enclosure"`
	BOM           bool    `yaml:"bom"`
}

type ArchiveSettings struct {
	Force bool `yaml:"force"`
	// Method is "deflate" (default), "store" or "zstd".
	Method string `yaml:"method"`
}

type jobFile struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadJobs reads and validates a YAML job file.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJobs(data)
}

func ParseJobs(data []byte) ([]Job, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, exporter.NewConfigError("jobs", err)
	}
	if len(f.Jobs) == 0 {
		return nil, exporter.NewConfigError("jobs", errors.New("no jobs defined"))
	}
	for i := range f.Jobs {
		if err := f.Jobs[i].Validate(); err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
	}
	return f.Jobs, nil
}

// Validate checks the job and fills in defaults.
func (j *Job) Validate() error {
	if j.Name == "" {
		return exporter.NewConfigError("name", errors.New("required"))
	}
	switch j.Driver {
	case driver.MySQL, driver.Postgres, driver.SQLite, driver.Mongo:
	case "":
		return exporter.NewConfigError("driver", errors.New("required"))
	default:
		return exporter.NewConfigError("driver", fmt.Errorf("unsupported driver %q", j.Driver))
	}
	if j.DSN == "" {
		return exporter.NewConfigError("dsn", errors.New("required"))
	}
	if j.Query == "" {
		return exporter.NewConfigError("query", errors.New("required"))
	}
	if j.Driver != driver.Mongo {
		if err := driver.ValidateQuery(j.Query); err != nil {
			return exporter.NewConfigError("query", err)
		}
	} else {
		if _, err := driver.ParseMongoQuery(j.Query); err != nil {
			return exporter.NewConfigError("query", err)
		}
		if j.Paginate {
			return exporter.NewConfigError("paginate", errors.New("not supported for mongo"))
		}
	}
	for i, col := range j.Columns {
		if col.Config == nil {
			if _, err := grid.ParseShorthand(col.Text); err != nil {
				return exporter.NewConfigError(fmt.Sprintf("columns[%d]", i), err)
			}
		}
	}
	if j.MaxRowsPerFile < 0 {
		return exporter.NewConfigError("max_rows_per_file", errors.New("must not be negative"))
	}
	if _, err := j.Archive.ZipMethod(); err != nil {
		return exporter.NewConfigError("archive.method", err)
	}
	if j.BaseName == "" {
		j.BaseName = j.Name
	}
	return nil
}

// ZipMethod maps Method to a zip compression method.
func (a ArchiveSettings) ZipMethod() (uint16, error) {
	switch a.Method {
	case "", "deflate":
		return exporter.DeflateMethod, nil
	case "store":
		return exporter.StoreMethod, nil
	case "zstd":
		return exporter.ZstdMethod, nil
	}
	return 0, fmt.Errorf("unknown method %q", a.Method)
}

// HeaderShown reports whether the header row is enabled; it defaults to true.
func (j *Job) HeaderShown() bool {
	return j.ShowHeader == nil || *j.ShowHeader
}
