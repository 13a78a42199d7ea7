package table

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the layout used when a date value is written out as text.
const DateLayout = "2006-01-02"

// Number returns a present numeric value.
func Number(f float64) pgtype.Float8 { return pgtype.Float8{Float64: f, Valid: true} }

// Text returns a present text value.
func Text(s string) pgtype.Text { return pgtype.Text{String: s, Valid: true} }

// Date returns a present date value.
func Date(t time.Time) pgtype.Date { return pgtype.Date{Time: t, Valid: true} }

// Bool returns a present boolean value.
func Bool(b bool) pgtype.Bool { return pgtype.Bool{Bool: b, Valid: true} }

// Missing returns the missing value for a column type.
func Missing(ft FieldType) any {
	switch ft {
	case FieldNumeric:
		return pgtype.Float8{}
	case FieldDate:
		return pgtype.Date{}
	case FieldBool:
		return pgtype.Bool{}
	default:
		return pgtype.Text{}
	}
}

// IsMissing reports whether v is a missing entry.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case pgtype.Float8:
		return !val.Valid
	case pgtype.Text:
		return !val.Valid
	case pgtype.Date:
		return !val.Valid
	case pgtype.Bool:
		return !val.Valid
	default:
		return v == nil
	}
}

// FormatValue renders a value as text for CSV output and previews.
// Missing values render as the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case pgtype.Float8:
		if !val.Valid {
			return ""
		}
		return strconv.FormatFloat(val.Float64, 'f', -1, 64)
	case pgtype.Date:
		if !val.Valid {
			return ""
		}
		return val.Time.Format(DateLayout)
	case pgtype.Text:
		if !val.Valid {
			return ""
		}
		return val.String
	case pgtype.Bool:
		if !val.Valid {
			return ""
		}
		if val.Bool {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// NativeValue converts a value to its plain Go form: float64, string,
// time.Time or bool. Missing values become nil.
func NativeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Float8:
		if val.Valid {
			return val.Float64
		}
	case pgtype.Text:
		if val.Valid {
			return val.String
		}
	case pgtype.Date:
		if val.Valid {
			return val.Time
		}
	case pgtype.Bool:
		if val.Valid {
			return val.Bool
		}
	}
	return nil
}

func matchesType(v any, ft FieldType) bool {
	switch v.(type) {
	case pgtype.Float8:
		return ft == FieldNumeric
	case pgtype.Text:
		return ft == FieldText
	case pgtype.Date:
		return ft == FieldDate
	case pgtype.Bool:
		return ft == FieldBool
	default:
		return false
	}
}
