package core

import (
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/table"
	"github.com/xuri/excelize/v2"
)

// xlsxBytes builds a workbook whose first sheet holds rows.
func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

// columnStrings renders a column's values with table.FormatValue.
func columnStrings(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q not found in %v", name, tbl.Names())
	}
	out := make([]string, len(col.Values))
	for i, v := range col.Values {
		out[i] = table.FormatValue(v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIngest_CSV(t *testing.T) {
	data := "\xEF\xBB\xBFname,amount,joined\nA,10,2024-01-15\nB,,2024-02-01\n"
	tbl, err := Ingest(UploadedFile{Name: "Sales.CSV", Data: []byte(data)})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if got := tbl.Names(); !equalStrings(got, []string{"name", "amount", "joined"}) {
		t.Errorf("Names() = %v (BOM should be stripped)", got)
	}
	if tbl.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", tbl.NumRows())
	}

	wantTypes := map[string]table.FieldType{
		"name":   table.FieldText,
		"amount": table.FieldNumeric,
		"joined": table.FieldDate,
	}
	for _, c := range tbl.Columns() {
		if c.Type != wantTypes[c.Name] {
			t.Errorf("column %q type = %v, want %v", c.Name, c.Type, wantTypes[c.Name])
		}
	}
	if !table.IsMissing(tbl.Row(1)[1]) {
		t.Error("empty amount should be missing")
	}
}

func TestIngest_CSVHeaderOnly(t *testing.T) {
	tbl, err := Ingest(UploadedFile{Name: "h.csv", Data: []byte("a,b\n")})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if tbl.NumRows() != 0 || tbl.NumCols() != 2 {
		t.Errorf("shape = %dx%d, want 0x2", tbl.NumRows(), tbl.NumCols())
	}
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		file  UploadedFile
		kind  error
		cause error
	}{
		{"text file", UploadedFile{Name: "notes.txt", Data: []byte("a,b\n1,2\n")}, ErrUnsupportedFormat, nil},
		{"no extension", UploadedFile{Name: "README", Data: []byte("x")}, ErrUnsupportedFormat, nil},
		{"legacy excel", UploadedFile{Name: "old.xls", Data: []byte("x")}, ErrUnsupportedFormat, nil},
		{"empty csv", UploadedFile{Name: "empty.csv", Data: nil}, ErrParse, ErrEmptyFile},
		{"long row", UploadedFile{Name: "ragged.csv", Data: []byte("a,b\n1,2,3\n")}, ErrParse, nil},
		{"corrupted xlsx", UploadedFile{Name: "broken.xlsx", Data: []byte("PK\x03\x04 not really a zip")}, ErrParse, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Ingest(tt.file)
			if err == nil {
				t.Fatalf("Ingest() = %v, want error", tbl.Names())
			}
			if tbl != nil {
				t.Error("no table should be produced on error")
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %v is not %v", err, tt.kind)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("error %v is not %v", err, tt.cause)
			}

			var fe *FileError
			if !errors.As(err, &fe) || fe.FileName != tt.file.Name {
				t.Errorf("error should be a *FileError naming %q, got %v", tt.file.Name, err)
			}
		})
	}
}

func TestIngest_XLSX(t *testing.T) {
	joined := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	data := xlsxBytes(t, [][]any{
		{"name", "amount", "joined", "active"},
		{"A", 10, joined, true},
		{"B", nil, joined.AddDate(0, 1, 0), false},
	})

	tbl, err := Ingest(UploadedFile{Name: "people.xlsx", Data: data})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if tbl.NumRows() != 2 || tbl.NumCols() != 4 {
		t.Fatalf("shape = %dx%d, want 2x4", tbl.NumRows(), tbl.NumCols())
	}
	if got := columnStrings(t, tbl, "amount"); !equalStrings(got, []string{"10", ""}) {
		t.Errorf("amount = %v", got)
	}
	if got := columnStrings(t, tbl, "joined"); !equalStrings(got, []string{"2024-01-15", "2024-02-15"}) {
		t.Errorf("joined = %v", got)
	}
	if got := columnStrings(t, tbl, "active"); !equalStrings(got, []string{"True", "False"}) {
		t.Errorf("active = %v", got)
	}
}

func TestIngest_XLSXUsesRawNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "price")
	f.SetCellValue("Sheet1", "A2", 1234.5)
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		t.Fatal(err)
	}
	f.SetCellStyle("Sheet1", "A2", "A2", style)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := Ingest(UploadedFile{Name: "p.xlsx", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	col, _ := tbl.Column("price")
	if col.Type != table.FieldNumeric {
		t.Fatalf("price type = %v, want numeric", col.Type)
	}
	if got := table.FormatValue(col.Values[0]); got != "1234.5" {
		t.Errorf("price = %q, want 1234.5", got)
	}
}

func TestIngest_XLSXFirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "first")
	if _, err := f.NewSheet("Other"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Other", "A1", "second")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := Ingest(UploadedFile{Name: "two.xlsx", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if got := tbl.Names(); !equalStrings(got, []string{"first"}) {
		t.Errorf("Names() = %v, want [first]", got)
	}
}

func TestIngest_XLSXEmptySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	_, err = Ingest(UploadedFile{Name: "blank.xlsx", Data: buf.Bytes()})
	if !errors.Is(err, ErrEmptyFile) || !errors.Is(err, ErrParse) {
		t.Errorf("Ingest() error = %v, want empty-file parse error", err)
	}
}

func TestPickCell(t *testing.T) {
	tests := []struct {
		formatted, raw, want string
	}{
		{"abc", "abc", "abc"},
		{"1,234.50", "1234.5", "1234.5"},
		{"$5.00", "5", "5"},
		{"01-15-24", "45306", "01-15-24"},
		{"1/15/24 00:00", "45306", "1/15/24"},
		{"1/15/24 13:30", "45306.5625", "1/15/24 13:30"},
		{"TRUE", "1", "TRUE"},
		{"x", "", "x"},
	}

	for _, tt := range tests {
		if got := pickCell(tt.formatted, tt.raw); got != tt.want {
			t.Errorf("pickCell(%q, %q) = %q, want %q", tt.formatted, tt.raw, got, tt.want)
		}
	}
}

func TestIsSupportedName(t *testing.T) {
	tests := map[string]bool{
		"a.csv":        true,
		"A.XLSX":       true,
		"dir/b.csv":    true,
		"c.txt":        false,
		"d.xls":        false,
		"csv":          false,
		"archive.csv.": false,
	}
	for name, want := range tests {
		if got := IsSupportedName(name); got != want {
			t.Errorf("IsSupportedName(%q) = %v, want %v", name, got, want)
		}
	}
}
