package core

// convert.go serializes a table for download.
//
// Both formats write a header row and no row index, in the table's column
// order. Output goes to an in-memory buffer; nothing touches the file
// system. Any failure is a *FileError of kind ErrConversion.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/datasweeper/internal/table"
	"github.com/xuri/excelize/v2"
)

// Format is a download format.
type Format int

const (
	FormatCSV Format = iota
	FormatExcel
)

// MIME types of the download formats.
const (
	MIMECSV   = "text/csv"
	MIMEExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExcelSheetName is the worksheet written by Excel conversion.
const ExcelSheetName = "Sheet1"

// ParseFormat reads a format name: "csv", or "excel" / "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// String returns the display name ("CSV" or "Excel").
func (f Format) String() string {
	if f == FormatExcel {
		return "Excel"
	}
	return "CSV"
}

// Key returns the lowercase form name ("csv" or "excel").
func (f Format) Key() string {
	if f == FormatExcel {
		return "excel"
	}
	return "csv"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatExcel {
		return ExtXLSX
	}
	return ExtCSV
}

// MIMEType returns the content type of the format.
func (f Format) MIMEType() string {
	if f == FormatExcel {
		return MIMEExcel
	}
	return MIMECSV
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ConversionResult is a converted file ready for download.
type ConversionResult struct {
	FileName string
	MIMEType string
	Data     []byte
}

// OutputName replaces the extension of the original file's base name with
// the format's extension.
func OutputName(original string, f Format) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base)) + f.Ext()
}

// Convert serializes t in format f. fileName is the original upload name.
func Convert(t *table.Table, f Format, fileName string) (*ConversionResult, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data, err = writeCSV(t)
	case FormatExcel:
		data, err = writeXLSX(t)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidFormat, f)
	}
	if err != nil {
		return nil, newFileError(ErrConversion, fileName, err)
	}

	return &ConversionResult{
		FileName: OutputName(fileName, f),
		MIMEType: f.MIMEType(),
		Data:     data,
	}, nil
}

// writeCSV writes a header and one record per row.
//
// A table with no columns is a single blank header line. A one-column row
// holding the empty string is written as "" because a bare blank line would
// be skipped when the file is read back.
func writeCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header, rows := t.Records()
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if len(header) == 0 {
		w.Flush()
		return buf.Bytes(), w.Error()
	}

	for _, rec := range rows {
		if len(rec) == 1 && rec[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeXLSX writes a single worksheet with typed cells.
func writeXLSX(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if t.NumCols() > 0 {
		header := make([]any, t.NumCols())
		for j, name := range t.Names() {
			header[j] = name
		}
		if err := f.SetSheetRow(ExcelSheetName, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}

		cols := t.Columns()
		row := make([]any, len(cols))
		for i := 0; i < t.NumRows(); i++ {
			for j, c := range cols {
				row[j] = table.NativeValue(c.Values[i])
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(ExcelSheetName, cell, &row); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}

		if err := styleDateColumns(f, t); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// excelDateFormat keeps date cells readable as ISO dates.
var excelDateFormat = "yyyy-mm-dd"

// styleDateColumns applies excelDateFormat to the data cells of every date
// column.
func styleDateColumns(f *excelize.File, t *table.Table) error {
	if t.NumRows() == 0 {
		return nil
	}

	style := -1
	for j, c := range t.Columns() {
		if c.Type != table.FieldDate {
			continue
		}
		if style < 0 {
			id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &excelDateFormat})
			if err != nil {
				return fmt.Errorf("date style: %w", err)
			}
			style = id
		}
		top, err := excelize.CoordinatesToCellName(j+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(j+1, t.NumRows()+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ExcelSheetName, top, bottom, style); err != nil {
			return fmt.Errorf("style column %q: %w", c.Name, err)
		}
	}
	return nil
}
