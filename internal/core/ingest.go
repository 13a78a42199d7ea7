package core

// ingest.go reads uploaded files into typed tables.
//
// The format comes from the file extension (case-insensitive):
//   - .csv:  comma-separated, header on the first record. A UTF-8 BOM is
//     stripped and invalid UTF-8 is replaced before parsing.
//   - .xlsx: first worksheet, header on the first row.
//
// Every failure is returned as a *FileError naming the file so a batch can
// report it and move on.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/table"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyFile is the parse cause for input with no header row.
var ErrEmptyFile = errors.New("empty file")

// Supported input extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// UploadedFile is an uploaded file's name and content.
type UploadedFile struct {
	Name string
	Data []byte
	Size int64 // declared size in bytes; zero means len(Data)
}

// Len returns the size of the file in bytes.
func (f UploadedFile) Len() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

// Ext returns the lowercased extension of the file name.
func (f UploadedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// IsSupportedName reports whether a file name has a supported extension.
func IsSupportedName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV, ExtXLSX:
		return true
	default:
		return false
	}
}

// Ingest parses an uploaded file into a Table. Row and column counts match
// the source content.
func Ingest(file UploadedFile) (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)

	switch ext := file.Ext(); ext {
	case ExtCSV:
		t, err = readCSV(file.Data)
	case ExtXLSX:
		t, err = readXLSX(file.Data)
	default:
		if ext == "" {
			ext = "(none)"
		}
		return nil, newFileError(ErrUnsupportedFormat, file.Name, fmt.Errorf("extension %s", ext))
	}

	if err != nil {
		return nil, newFileError(ErrParse, file.Name, err)
	}
	return t, nil
}

// readCSV parses comma-separated data. Short rows are padded, long rows fail.
func readCSV(data []byte) (*table.Table, error) {
	data = sanitizeUTF8(stripBOM(data))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	return table.FromRecords(records[0], records[1:])
}

// readXLSX parses the first worksheet of a workbook.
func readXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(formatted) == 0 {
		return nil, ErrEmptyFile
	}

	width := 0
	for _, row := range formatted {
		width = max(width, len(row))
	}

	rows := make([][]string, len(formatted))
	for i := range formatted {
		cells := make([]string, width)
		for j := range cells {
			cells[j] = pickCell(cellAt(formatted, i, j), cellAt(raw, i, j))
		}
		rows[i] = cells
	}

	// Cells right of the header row get "Unnamed: N" names.
	return table.FromRecords(rows[0], rows[1:])
}

// pickCell chooses between a cell's display text and its raw value.
// Dates and booleans only read correctly from the display text; everything
// else uses the raw value so number formats (currency, thousands
// separators, fixed decimals) do not turn numbers into text.
func pickCell(formatted, raw string) string {
	if formatted == raw || raw == "" {
		return formatted
	}
	if date, ok := dateCell(formatted); ok {
		return date
	}
	if _, ok := table.ParseBool(formatted); ok {
		return formatted
	}
	return raw
}

// displayTimeLayouts are the time parts Excel appends to date-time formats.
var displayTimeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM"}

// dateCell recognizes display text that starts with a date. A date-time at
// midnight is cut down to its date; any other time keeps the full text.
func dateCell(formatted string) (string, bool) {
	if _, ok := table.ParseDate(formatted); ok {
		return formatted, true
	}

	datePart, timePart, found := strings.Cut(strings.TrimSpace(formatted), " ")
	if !found {
		return "", false
	}
	if _, ok := table.ParseDate(datePart); !ok {
		return "", false
	}
	for _, layout := range displayTimeLayouts {
		tm, err := time.Parse(layout, strings.TrimSpace(timePart))
		if err != nil {
			continue
		}
		if tm.Hour() == 0 && tm.Minute() == 0 && tm.Second() == 0 {
			return datePart, true
		}
		return formatted, true
	}
	return "", false
}

func cellAt(rows [][]string, i, j int) string {
	if i >= len(rows) || j >= len(rows[i]) {
		return ""
	}
	return rows[i][j]
}
