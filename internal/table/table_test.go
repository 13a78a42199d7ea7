package table

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// salesTable is the name/amount table used across tests:
// ("A",10), ("A",10), ("B",missing).
func salesTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromRecords(
		[]string{"name", "amount"},
		[][]string{{"A", "10"}, {"A", "10"}, {"B", ""}},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	return tbl
}

func TestFromRecords_InfersTypes(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"name", "amount", "active", "joined", "note"},
		[][]string{
			{"Alice", "1.5", "true", "2024-01-15", "x"},
			{"Bob", "", "FALSE", "2024-02-01", "12"},
			{"Cara", "-3e2", "", "", ""},
		},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	want := map[string]FieldType{
		"name":   FieldText,
		"amount": FieldNumeric,
		"active": FieldBool,
		"joined": FieldDate,
		"note":   FieldText,
	}
	for name, ft := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if c.Type != ft {
			t.Errorf("column %q type = %s, want %s", name, c.Type, ft)
		}
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 5 {
		t.Errorf("shape = (%d, %d), want (3, 5)", tbl.NumRows(), tbl.NumCols())
	}

	amount, _ := tbl.Column("amount")
	if !IsMissing(amount.Values[1]) {
		t.Errorf("amount[1] should be missing, got %v", amount.Values[1])
	}
	if got := FormatValue(amount.Values[2]); got != "-300" {
		t.Errorf("amount[2] = %q, want %q", got, "-300")
	}
}

func TestFromRecords_AllMissingColumnIsNumeric(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "b"}, [][]string{{"x", ""}, {"y", "NA"}})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	b, _ := tbl.Column("b")
	if b.Type != FieldNumeric {
		t.Errorf("type = %s, want numeric", b.Type)
	}
}

func TestFromRecords_WhitespaceIsNotMissing(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "b"}, [][]string{{"1", " "}, {"2", " NA "}, {"", "x"}})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	b, _ := tbl.Column("b")
	if b.Type != FieldText {
		t.Errorf("b type = %s, want text", b.Type)
	}
	for i, want := range []string{" ", " NA "} {
		if IsMissing(b.Values[i]) {
			t.Errorf("b[%d] should be present", i)
			continue
		}
		if got := FormatValue(b.Values[i]); got != want {
			t.Errorf("b[%d] = %q, want %q", i, got, want)
		}
	}

	a, _ := tbl.Column("a")
	if a.Type != FieldNumeric || !IsMissing(a.Values[2]) {
		t.Errorf("a = %s %v, want numeric with a missing last cell", a.Type, a.Values)
	}
}

func TestFromRecords_PadsShortRows(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "b", "c"}, [][]string{{"1"}, {"2", "3", "4"}})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	c, _ := tbl.Column("c")
	if !IsMissing(c.Values[0]) {
		t.Errorf("padded cell should be missing")
	}
}

func TestFromRecords_RejectsLongRows(t *testing.T) {
	_, err := FromRecords([]string{"a"}, [][]string{{"1", "2"}})
	if err == nil {
		t.Fatal("expected error for row wider than header")
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"unique", []string{"a", "b"}, []string{"a", "b"}},
		{"blank", []string{"a", "", " "}, []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{"repeats", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"repeat collides with existing suffix", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeader(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"1/15/2024", "2024-01-15", true},
		{"Jan 15, 2024", "2024-01-15", true},
		{"01-15-24", "2024-01-15", true},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got.Format(DateLayout) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format(DateLayout), tt.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(1, []Column{
		{Name: "a", Type: FieldNumeric, Values: []any{Number(1)}},
		{Name: "a", Type: FieldNumeric, Values: []any{Number(2)}},
	})
	if !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("duplicate names: err = %v, want ErrDuplicateColumn", err)
	}

	_, err = New(2, []Column{{Name: "a", Type: FieldNumeric, Values: []any{Number(1)}}})
	if err == nil {
		t.Error("expected error for short column")
	}

	_, err = New(1, []Column{{Name: "a", Type: FieldNumeric, Values: []any{Text("x")}}})
	if err == nil {
		t.Error("expected error for mistyped value")
	}
}

func TestDeduplicate(t *testing.T) {
	tbl := salesTable(t)

	got := Deduplicate(tbl)
	if got.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", got.NumRows())
	}
	_, rows := got.Records()
	want := [][]string{{"A", "10"}, {"B", ""}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %q, want %q", rows, want)
	}

	// Input is left untouched.
	if tbl.NumRows() != 3 {
		t.Errorf("input rows = %d, want 3", tbl.NumRows())
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"k", "v"},
		[][]string{{"b", "2"}, {"a", "1"}, {"b", "2"}, {"a", ""}, {"a", ""}, {"c", "3"}, {"a", "1"}},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	once := Deduplicate(tbl)
	twice := Deduplicate(once)

	_, r1 := once.Records()
	_, r2 := twice.Records()
	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("not idempotent: %q vs %q", r1, r2)
	}
	want := [][]string{{"b", "2"}, {"a", "1"}, {"a", ""}, {"c", "3"}}
	if !reflect.DeepEqual(r1, want) {
		t.Errorf("rows = %q, want %q", r1, want)
	}
}

func TestDeduplicate_DistinguishesTypes(t *testing.T) {
	// "1" as text and 1 as a number live in different columns, but the
	// encoding must not let adjacent cells run together either.
	tbl, err := New(2, []Column{
		{Name: "a", Type: FieldText, Values: []any{Text("ab"), Text("a")}},
		{Name: "b", Type: FieldText, Values: []any{Text("c"), Text("bc")}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := Deduplicate(tbl).NumRows(); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestFillMissingNumeric(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"name", "x", "empty"},
		[][]string{{"a", "1", ""}, {"", "", ""}, {"c", "4", ""}},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	got := FillMissingNumeric(tbl)

	x, _ := got.Column("x")
	wantX := []string{"1", "2.5", "4"}
	for i, v := range x.Values {
		if FormatValue(v) != wantX[i] {
			t.Errorf("x[%d] = %q, want %q", i, FormatValue(v), wantX[i])
		}
	}

	empty, _ := got.Column("empty")
	for i, v := range empty.Values {
		if !IsMissing(v) {
			t.Errorf("empty[%d] should stay missing, got %v", i, v)
		}
	}

	name, _ := got.Column("name")
	if !IsMissing(name.Values[1]) {
		t.Errorf("text column must not be filled")
	}

	orig, _ := tbl.Column("x")
	if !IsMissing(orig.Values[1]) {
		t.Errorf("input table was modified")
	}
}

func TestDedupeThenFill_Scenario(t *testing.T) {
	got := FillMissingNumeric(Deduplicate(salesTable(t)))
	amount, _ := got.Column("amount")
	if len(amount.Values) != 2 {
		t.Fatalf("rows = %d, want 2", len(amount.Values))
	}
	for i, v := range amount.Values {
		if f, ok := v.(pgtype.Float8); !ok || !f.Valid || f.Float64 != 10 {
			t.Errorf("amount[%d] = %v, want 10", i, v)
		}
	}
}

func TestSelect(t *testing.T) {
	tbl := salesTable(t)

	tests := []struct {
		name    string
		cols    []string
		want    []string
		wantErr error
	}{
		{"all", []string{"name", "amount"}, []string{"name", "amount"}, nil},
		{"reordered", []string{"amount", "name"}, []string{"amount", "name"}, nil},
		{"subset", []string{"amount"}, []string{"amount"}, nil},
		{"empty", []string{}, []string{}, nil},
		{"unknown", []string{"nope"}, nil, ErrUnknownColumn},
		{"repeated", []string{"name", "name"}, nil, ErrDuplicateColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tbl, tt.cols)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if !reflect.DeepEqual(got.Names(), tt.want) {
				t.Errorf("names = %q, want %q", got.Names(), tt.want)
			}
			if got.NumRows() != tbl.NumRows() {
				t.Errorf("rows = %d, want %d", got.NumRows(), tbl.NumRows())
			}
		})
	}
}

func TestChart(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"label", "a", "b", "c"},
		[][]string{{"x", "1", "2", "3"}, {"y", "", "5", "6"}},
	)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}

	summary, ok := Chart(tbl)
	if !ok {
		t.Fatal("Chart() ok = false, want true")
	}
	if len(summary.Series) != 2 {
		t.Fatalf("series = %d, want 2", len(summary.Series))
	}
	if summary.Series[0].Name != "a" || summary.Series[1].Name != "b" {
		t.Errorf("series names = %q, %q", summary.Series[0].Name, summary.Series[1].Name)
	}
	if summary.Series[0].Values[1] != nil {
		t.Errorf("missing value should chart as nil")
	}
	if !reflect.DeepEqual(summary.Categories, []int{0, 1}) {
		t.Errorf("categories = %v", summary.Categories)
	}
	if summary.Max() != 5 {
		t.Errorf("Max() = %v, want 5", summary.Max())
	}
}

func TestChart_NoNumericColumns(t *testing.T) {
	tbl := salesTable(t)
	empty, err := Select(tbl, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if _, ok := Chart(empty); ok {
		t.Error("Chart() on zero columns should report nothing to chart")
	}

	text, _ := Select(tbl, []string{"name"})
	if _, ok := Chart(text); ok {
		t.Error("Chart() on text columns should report nothing to chart")
	}
}

func TestHead(t *testing.T) {
	tbl := salesTable(t)
	if got := tbl.Head(2).NumRows(); got != 2 {
		t.Errorf("Head(2) rows = %d", got)
	}
	if got := tbl.Head(10).NumRows(); got != 3 {
		t.Errorf("Head(10) rows = %d", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"integer", Number(10), "10"},
		{"fraction", Number(2.5), "2.5"},
		{"missing number", pgtype.Float8{}, ""},
		{"date", Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "2024-03-01"},
		{"true", Bool(true), "True"},
		{"text", Text("hi"), "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.v); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
