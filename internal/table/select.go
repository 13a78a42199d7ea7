package table

import "fmt"

// Select returns a table holding exactly the named columns, in the order
// given, with every row unchanged. An empty selection yields a table with
// no columns and the original row count.
func Select(t *Table, names []string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q selected twice", ErrDuplicateColumn, name)
		}
		seen[name] = true

		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols = append(cols, c)
	}
	return t.withColumns(cols), nil
}

// NumericColumns returns the numeric columns of t in order.
func NumericColumns(t *Table) []Column {
	var out []Column
	for _, c := range t.columns {
		if c.Type == FieldNumeric {
			out = append(out, c)
		}
	}
	return out
}
