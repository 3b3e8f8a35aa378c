package grid

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"csvgrid/internal/exporter"
	"csvgrid/internal/format"
)

const (
	ColumnTypeData   = "data"
	ColumnTypeSerial = "serial"
)

var (
	errShorthand   = errors.New(`column must be "field", "field:format" or "field:format:label"`)
	errColumnType  = errors.New("unknown column type")
	shorthandRegex = regexp.MustCompile(`^([^:]+)(:(\w*))?(:(.*))?$`)
)

// ColumnConfig is the full form of a column definition.
type ColumnConfig struct {
	// Type is "data" (default) or "serial".
	Type         string `yaml:"type"`
	Field        string `yaml:"field"`
	Label        string `yaml:"label"`
	Header       string `yaml:"header"`
	Footer       string `yaml:"footer"`
	Format       string `yaml:"format"`
	FormatParams []any  `yaml:"format_params"`
	// Value is a dotted path read from the record instead of Field.
	Value     string      `yaml:"value"`
	ValueFunc ValueFunc   `yaml:"-"`
	Content   ContentFunc `yaml:"-"`
	// Visible defaults to true; hidden columns are dropped before the export starts.
	Visible *bool `yaml:"visible"`
}

// ColumnDef is either a "field:format:label" shorthand or a full ColumnConfig.
type ColumnDef struct {
	Text   string
	Config *ColumnConfig
}

// Attr defines a column by shorthand, e.g. Attr("price:decimal:Unit price").
func Attr(text string) ColumnDef {
	return ColumnDef{Text: text}
}

// Col defines a column by full configuration.
func Col(cfg ColumnConfig) ColumnDef {
	return ColumnDef{Config: &cfg}
}

// Serial defines a row-number column.
func Serial() ColumnDef {
	return Col(ColumnConfig{Type: ColumnTypeSerial})
}

// UnmarshalYAML accepts either a scalar shorthand or a mapping.
func (d *ColumnDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Text = node.Value
		d.Config = nil
		return nil
	}
	var cfg ColumnConfig
	if err := node.Decode(&cfg); err != nil {
		return err
	}
	d.Text = ""
	d.Config = &cfg
	return nil
}

// ParseShorthand converts "field:format:label" into a ColumnConfig. Format defaults to "text".
func ParseShorthand(text string) (ColumnConfig, error) {
	m := shorthandRegex.FindStringSubmatch(text)
	if m == nil {
		return ColumnConfig{}, errShorthand
	}
	cfg := ColumnConfig{
		Type:   ColumnTypeData,
		Field:  m[1],
		Format: "text",
		Label:  m[5],
	}
	if m[2] != "" {
		cfg.Format = m[3]
	}
	return cfg, nil
}

// resolveColumns builds concrete columns once, dropping invisible ones.
func resolveColumns(defs []ColumnDef, ctx *cellContext) ([]Column, error) {
	cols := make([]Column, 0, len(defs))
	for i, def := range defs {
		field := fmt.Sprintf("columns[%d]", i)

		var cfg ColumnConfig
		if def.Config != nil {
			cfg = *def.Config
			if cfg.Format == "" {
				cfg.Format = "raw"
			}
		} else {
			parsed, err := ParseShorthand(def.Text)
			if err != nil {
				return nil, exporter.NewConfigError(field, fmt.Errorf("%w: %q", err, def.Text))
			}
			cfg = parsed
		}

		if cfg.Visible != nil && !*cfg.Visible {
			continue
		}
		col, err := buildColumn(cfg, ctx)
		if err != nil {
			return nil, exporter.NewConfigError(field, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func buildColumn(cfg ColumnConfig, ctx *cellContext) (Column, error) {
	base := BaseColumn{
		Header:  cfg.Header,
		Footer:  cfg.Footer,
		Content: cfg.Content,
		ctx:     ctx,
	}

	switch cfg.Type {
	case "", ColumnTypeData:
		c := &DataColumn{
			BaseColumn: base,
			Field:      cfg.Field,
			Label:      cfg.Label,
			Value:      cfg.Value,
			ValueFunc:  cfg.ValueFunc,
			Format:     format.Spec{Name: cfg.Format, Params: cfg.FormatParams},
		}
		c.self = c
		return c, nil
	case ColumnTypeSerial:
		if base.Header == "" {
			base.Header = "#"
		}
		c := &SerialColumn{BaseColumn: base}
		c.self = c
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", errColumnType, cfg.Type)
}

// guessColumns derives one text column per field name. Names are not run through the
// shorthand parser, so fields containing ':' survive intact.
func guessColumns(fields []string) []ColumnDef {
	defs := make([]ColumnDef, 0, len(fields))
	for _, name := range fields {
		defs = append(defs, Col(ColumnConfig{Field: name, Format: "text"}))
	}
	return defs
}
