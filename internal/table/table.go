// Package table provides the in-memory tabular model used by the cleaning
// pipeline and the operations that run over it.
//
// A Table is an ordered list of uniquely named columns that all share one
// row count. Every column has a single inferred FieldType and holds one
// pgtype value per row:
//
//	FieldNumeric -> pgtype.Float8
//	FieldText    -> pgtype.Text
//	FieldDate    -> pgtype.Date
//	FieldBool    -> pgtype.Bool
//
// A value with Valid == false is a missing entry. Operations never mutate
// their input; they return a new Table.
package table

import (
	"errors"
	"fmt"
)

// FieldType identifies the inferred type of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
	FieldDate
	FieldBool
)

// String returns the lowercase name used in JSON and the UI.
func (ft FieldType) String() string {
	switch ft {
	case FieldNumeric:
		return "numeric"
	case FieldDate:
		return "date"
	case FieldBool:
		return "bool"
	default:
		return "text"
	}
}

// ErrUnknownColumn is returned when a column name is not part of a table.
var ErrUnknownColumn = errors.New("unknown column")

// ErrDuplicateColumn is returned when a column name appears more than once.
var ErrDuplicateColumn = errors.New("duplicate column")

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Type   FieldType
	Values []any
}

// Table is an ordered set of columns sharing one row count.
type Table struct {
	columns []Column
	rows    int
}

// New builds a Table from columns. Column names must be unique and every
// column must hold exactly rows values.
func New(rows int, columns []Column) (*Table, error) {
	if rows < 0 {
		return nil, fmt.Errorf("negative row count %d", rows)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), rows)
		}
		for i, v := range c.Values {
			if !matchesType(v, c.Type) {
				return nil, fmt.Errorf("column %q row %d: %T is not a %s value", c.Name, i, v, c.Type)
			}
		}
	}
	return &Table{columns: columns, rows: rows}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not modify the values.
func (t *Table) Columns() []Column {
	return t.columns
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.rows {
		n = t.rows
	}
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = Column{Name: c.Name, Type: c.Type, Values: c.Values[:n:n]}
	}
	return &Table{columns: cols, rows: n}
}

// Records returns the header and the rows formatted as strings, in column
// order. Missing values become empty strings.
func (t *Table) Records() (header []string, rows [][]string) {
	header = t.Names()
	rows = make([][]string, t.rows)
	for i := range rows {
		rec := make([]string, len(t.columns))
		for j, c := range t.columns {
			rec[j] = FormatValue(c.Values[i])
		}
		rows[i] = rec
	}
	return header, rows
}

// withColumns returns a table sharing t's row count with the given columns.
func (t *Table) withColumns(cols []Column) *Table {
	return &Table{columns: cols, rows: t.rows}
}
