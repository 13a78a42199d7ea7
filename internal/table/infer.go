package table

// infer.go turns raw text records into typed columns.
//
// Parsing follows the messy reality of spreadsheet exports:
//   - Several missing-value spellings (NA, N/A, null, #N/A, ...)
//   - Multiple date formats (US, EU, ISO), 2-digit years with a pivot
//   - Case-insensitive true/false
//
// A column takes the first type that accepts every present value:
// numeric, then bool, then date, then text. A column with no present
// values at all is numeric.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
	}
)

// missingTokens are the cell spellings read as a missing value.
var missingTokens = map[string]bool{
	"":      true,
	"#N/A":  true,
	"#NA":   true,
	"N/A":   true,
	"NA":    true,
	"NULL":  true,
	"NaN":   true,
	"None":  true,
	"n/a":   true,
	"nan":   true,
	"null":  true,
	"<NA>":  true,
	"-NaN":  true,
	"-nan":  true,
}

// IsMissingToken reports whether a raw cell should be read as missing.
// The match is exact: a blank of spaces or a padded " NA " is a value.
func IsMissingToken(s string) bool {
	return missingTokens[s]
}

// ParseNumber parses a plain numeric literal.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool accepts true/false in any letter case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses a date in any of the supported layouts.
// 4-digit year layouts are tried first since they are unambiguous.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// InferType returns the narrowest type accepting every present value.
func InferType(values []string) FieldType {
	numeric, boolean, date := true, true, true
	for _, v := range values {
		if IsMissingToken(v) {
			continue
		}
		if numeric {
			if _, ok := ParseNumber(v); !ok {
				numeric = false
			}
		}
		if boolean {
			if _, ok := ParseBool(v); !ok {
				boolean = false
			}
		}
		if date {
			if _, ok := ParseDate(v); !ok {
				date = false
			}
		}
		if !numeric && !boolean && !date {
			return FieldText
		}
	}
	switch {
	case numeric:
		return FieldNumeric
	case boolean:
		return FieldBool
	case date:
		return FieldDate
	default:
		return FieldText
	}
}

// ConvertColumn converts raw strings into values of the given type.
// Values that cannot be read as ft become missing.
func ConvertColumn(values []string, ft FieldType) []any {
	out := make([]any, len(values))
	for i, raw := range values {
		out[i] = convertCell(raw, ft)
	}
	return out
}

func convertCell(raw string, ft FieldType) any {
	if IsMissingToken(raw) {
		return Missing(ft)
	}
	switch ft {
	case FieldNumeric:
		if f, ok := ParseNumber(raw); ok {
			return Number(f)
		}
	case FieldBool:
		if b, ok := ParseBool(raw); ok {
			return Bool(b)
		}
	case FieldDate:
		if t, ok := ParseDate(raw); ok {
			return Date(t)
		}
	default:
		return Text(raw)
	}
	return Missing(ft)
}

// NormalizeHeader makes header names usable as unique column names.
// Blank names become "Unnamed: N" and repeats get ".1", ".2", ... suffixes.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// FromRecords builds a typed Table from a header and raw rows.
// Rows shorter than the header are padded with missing values; a row longer
// than the header is an error.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	names := NormalizeHeader(header)
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(names))
		}
	}

	cols := make([]Column, len(names))
	raw := make([]string, len(rows))
	for j, name := range names {
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			} else {
				raw[i] = ""
			}
		}
		ft := InferType(raw)
		cols[j] = Column{Name: name, Type: ft, Values: ConvertColumn(raw, ft)}
	}
	return New(len(rows), cols)
}
