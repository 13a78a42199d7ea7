package table

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/spaolacci/murmur3"
)

// Deduplicate returns a table without rows that exactly repeat an earlier
// row across all columns. The first occurrence is kept and the relative
// order of kept rows is preserved. Missing values compare equal to each
// other, so applying Deduplicate twice is the same as applying it once.
//
// A table with no columns has at most one distinct row.
func Deduplicate(t *Table) *Table {
	buckets := make(map[uint64][][]byte)
	keep := make([]int, 0, t.rows)
	var key []byte

	for i := 0; i < t.rows; i++ {
		key = rowKey(key[:0], t.columns, i)
		h := murmur3.Sum64(key)

		dup := false
		for _, seen := range buckets[h] {
			if bytes.Equal(seen, key) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], append([]byte(nil), key...))
		keep = append(keep, i)
	}

	if len(keep) == t.rows {
		return t
	}
	return t.takeRows(keep)
}

// FillMissingNumeric returns a table where every missing entry of a numeric
// column is replaced by the mean of that column's present values. The mean
// is computed before any replacement. Numeric columns with no present values
// and all non-numeric columns are returned unchanged.
func FillMissingNumeric(t *Table) *Table {
	cols := make([]Column, len(t.columns))
	for j, c := range t.columns {
		cols[j] = c
		if c.Type != FieldNumeric {
			continue
		}
		mean, ok := columnMean(c)
		if !ok {
			continue
		}
		filled := make([]any, len(c.Values))
		for i, v := range c.Values {
			if IsMissing(v) {
				filled[i] = Number(mean)
			} else {
				filled[i] = v
			}
		}
		cols[j] = Column{Name: c.Name, Type: c.Type, Values: filled}
	}
	return t.withColumns(cols)
}

// columnMean returns the arithmetic mean of the present values of a numeric
// column. ok is false when the column has no present values.
func columnMean(c Column) (mean float64, ok bool) {
	var sum float64
	n := 0
	for _, v := range c.Values {
		f, valid := v.(pgtype.Float8)
		if !valid || !f.Valid {
			continue
		}
		sum += f.Float64
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// takeRows returns a table holding only the given rows, in the given order.
func (t *Table) takeRows(idx []int) *Table {
	cols := make([]Column, len(t.columns))
	for j, c := range t.columns {
		vals := make([]any, len(idx))
		for k, i := range idx {
			vals[k] = c.Values[i]
		}
		cols[j] = Column{Name: c.Name, Type: c.Type, Values: vals}
	}
	return &Table{columns: cols, rows: len(idx)}
}

// Cell tags for the canonical row encoding.
const (
	tagMissing byte = iota
	tagNumber
	tagText
	tagDate
	tagBool
)

// rowKey appends a canonical, unambiguous encoding of row i to dst.
// Two rows encode to the same bytes exactly when every cell is equal.
func rowKey(dst []byte, cols []Column, i int) []byte {
	for _, c := range cols {
		switch v := c.Values[i].(type) {
		case pgtype.Float8:
			if !v.Valid {
				dst = append(dst, tagMissing)
				continue
			}
			f := v.Float64
			if f == 0 {
				f = 0 // fold -0 into +0
			}
			dst = append(dst, tagNumber)
			dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
		case pgtype.Text:
			if !v.Valid {
				dst = append(dst, tagMissing)
				continue
			}
			dst = append(dst, tagText)
			dst = binary.AppendUvarint(dst, uint64(len(v.String)))
			dst = append(dst, v.String...)
		case pgtype.Date:
			if !v.Valid {
				dst = append(dst, tagMissing)
				continue
			}
			dst = append(dst, tagDate)
			dst = binary.AppendVarint(dst, v.Time.Unix())
		case pgtype.Bool:
			if !v.Valid {
				dst = append(dst, tagMissing)
				continue
			}
			dst = append(dst, tagBool)
			if v.Bool {
				dst = append(dst, 1)
			} else {
				dst = append(dst, 0)
			}
		default:
			dst = append(dst, tagMissing)
		}
	}
	return dst
}
