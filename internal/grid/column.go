package grid

import (
	"strconv"
	"strings"

	"csvgrid/internal/format"
	"csvgrid/internal/record"
)

// Column renders one output field: its header cell, footer cell and one cell per record.
type Column interface {
	HeaderCell() string
	FooterCell() string
	DataCell(rec any, key any, index int) (string, error)
}

// ContentFunc renders a data cell directly. Its result is used verbatim.
type ContentFunc func(rec any, key any, index int, col Column) string

// ValueFunc extracts the raw value of a data cell; the value is then formatted.
type ValueFunc func(rec any, key any, index int, col Column) any

// cellContext carries the grid-wide rendering settings every column needs.
type cellContext struct {
	emptyCell   string
	nullDisplay string
	formatter   format.Formatter
	labeler     record.Labeler
}

// BaseColumn holds the attributes shared by every column kind.
type BaseColumn struct {
	Header  string
	Footer  string
	Content ContentFunc

	ctx  *cellContext
	self Column
}

func (c *BaseColumn) HeaderCell() string {
	if strings.TrimSpace(c.Header) != "" {
		return c.Header
	}
	return c.ctx.emptyCell
}

func (c *BaseColumn) FooterCell() string {
	if strings.TrimSpace(c.Footer) != "" {
		return c.Footer
	}
	return c.ctx.emptyCell
}

func (c *BaseColumn) DataCell(rec any, key any, index int) (string, error) {
	if c.Content != nil {
		return c.Content(rec, key, index, c.column()), nil
	}
	return c.ctx.emptyCell, nil
}

func (c *BaseColumn) column() Column {
	if c.self != nil {
		return c.self
	}
	return c
}

// DataColumn renders the formatted value of one record field.
type DataColumn struct {
	BaseColumn
	// Field is the record field the column is bound to.
	Field string
	Label string
	// Value is a dotted path resolved against the record instead of Field.
	Value     string
	ValueFunc ValueFunc
	Format    format.Spec
}

func (c *DataColumn) HeaderCell() string {
	if c.Header != "" || (c.Label == "" && c.Field == "") {
		return c.BaseColumn.HeaderCell()
	}
	if c.Label != "" {
		return c.Label
	}
	if c.ctx.labeler != nil {
		if label := c.ctx.labeler.FieldLabel(c.Field); label != "" {
			return label
		}
	}
	return Humanize(c.Field)
}

// CellValue returns the raw value for the record, before formatting.
func (c *DataColumn) CellValue(rec any, key any, index int) any {
	switch {
	case c.ValueFunc != nil:
		return c.ValueFunc(rec, key, index, c)
	case c.Value != "":
		v, _ := record.Value(rec, c.Value)
		return v
	case c.Field != "":
		v, _ := record.Value(rec, c.Field)
		return v
	}
	return nil
}

func (c *DataColumn) DataCell(rec any, key any, index int) (string, error) {
	if c.Content != nil {
		return c.BaseColumn.DataCell(rec, key, index)
	}
	v := c.CellValue(rec, key, index)
	if record.IsNil(v) {
		return c.ctx.nullDisplay, nil
	}
	return c.ctx.formatter.Format(v, c.Format)
}

// SerialColumn numbers rows from 1 across the whole export.
type SerialColumn struct {
	BaseColumn
}

func (c *SerialColumn) DataCell(_ any, _ any, index int) (string, error) {
	return strconv.Itoa(index + 1), nil
}
