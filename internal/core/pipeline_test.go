package core

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

var salesCSV = UploadedFile{Name: "sales.csv", Data: []byte("name,amount\nA,10\nA,10\nB,\n")}

func TestNewCleaningState(t *testing.T) {
	tbl := mustRecords(t, []string{"a", "b"}, [][]string{{"1", "x"}})
	st := NewCleaningState(tbl)

	if st.Deduplicated || st.FilledMissing || st.ChartEnabled {
		t.Errorf("fresh state has flags set: %+v", st)
	}
	if !equalStrings(st.Selected, []string{"a", "b"}) {
		t.Errorf("Selected = %v, want every column", st.Selected)
	}
	if st.Format != FormatCSV {
		t.Errorf("Format = %v, want CSV", st.Format)
	}
}

func TestEvaluate_CleansBeforeSelecting(t *testing.T) {
	// Rows 1 and 2 differ only in "id"; dropping "id" must not make them
	// duplicates because cleaning sees every column.
	tbl := mustRecords(t,
		[]string{"id", "v"},
		[][]string{{"1", "x"}, {"2", "x"}, {"2", "x"}},
	)
	st := NewCleaningState(tbl)
	st.Deduplicated = true
	st.Selected = []string{"v"}

	got, err := Evaluate(tbl, st)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", got.NumRows())
	}
	if !equalStrings(got.Names(), []string{"v"}) {
		t.Errorf("Names() = %v, want [v]", got.Names())
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 2 {
		t.Error("Evaluate changed the original table")
	}
}

func TestEvaluate_UnknownColumn(t *testing.T) {
	tbl := mustRecords(t, []string{"a"}, [][]string{{"1"}})
	st := NewCleaningState(tbl)
	st.Selected = []string{"a", "zzz"}

	if _, err := Evaluate(tbl, st); !errors.Is(err, table.ErrUnknownColumn) {
		t.Errorf("Evaluate() error = %v, want ErrUnknownColumn", err)
	}
}

func TestProcessBatch_SalesScenario(t *testing.T) {
	results := ProcessBatch(context.Background(), []UploadedFile{salesCSV}, PipelineOptions{
		Deduplicate: true,
		FillMissing: true,
		Convert:     true,
		Format:      FormatExcel,
	})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}

	if res.Original.NumRows() != 3 {
		t.Errorf("original rows = %d, want 3", res.Original.NumRows())
	}
	if got := columnStrings(t, res.Result, "name"); !equalStrings(got, []string{"A", "B"}) {
		t.Errorf("name = %v, want [A B]", got)
	}
	if got := columnStrings(t, res.Result, "amount"); !equalStrings(got, []string{"10", "10"}) {
		t.Errorf("amount = %v, want [10 10]", got)
	}

	conv := res.Conversion
	if conv == nil || conv.FileName != "sales.xlsx" || conv.MIMEType != MIMEExcel {
		t.Fatalf("Conversion = %+v", conv)
	}
	back, err := Ingest(UploadedFile{Name: conv.FileName, Data: conv.Data})
	if err != nil {
		t.Fatalf("re-reading output: %v", err)
	}
	if back.NumRows() != 2 {
		t.Errorf("output has %d data rows, want 2", back.NumRows())
	}
}

func TestProcessBatch_UnsupportedFileDoesNotStopBatch(t *testing.T) {
	files := []UploadedFile{
		{Name: "notes.txt", Data: []byte("hello")},
		salesCSV,
	}
	results := ProcessBatch(context.Background(), files, PipelineOptions{})

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if !errors.Is(results[0].Err, ErrUnsupportedFormat) {
		t.Errorf("results[0].Err = %v, want ErrUnsupportedFormat", results[0].Err)
	}
	if results[0].Original != nil || results[0].Result != nil {
		t.Error("no table should be produced for an unsupported file")
	}
	if results[1].Err != nil || results[1].Result.NumRows() != 3 {
		t.Errorf("second file should load untouched: %v", results[1].Err)
	}
}

func TestProcessBatch_OversizedFileDoesNotStopBatch(t *testing.T) {
	files := []UploadedFile{
		{Name: "big.csv", Size: 4096},
		salesCSV,
		{Name: "wide.csv", Data: []byte("a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p\n")},
	}
	results := ProcessBatch(context.Background(), files, PipelineOptions{MaxFileSize: 30})

	if !errors.Is(results[0].Err, ErrFileTooLarge) || results[0].Original != nil {
		t.Errorf("declared size over the limit: err = %v", results[0].Err)
	}
	if code := MapError(results[0].Err).Code; code != "FILE001" {
		t.Errorf("code = %s, want FILE001", code)
	}
	if results[1].Err != nil || results[1].Result.NumRows() != 3 {
		t.Errorf("file under the limit should load: %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrFileTooLarge) {
		t.Errorf("content over the limit: err = %v", results[2].Err)
	}
}

func TestProcessBatch_CorruptedXLSX(t *testing.T) {
	files := []UploadedFile{
		{Name: "broken.xlsx", Data: []byte("definitely not a workbook")},
		salesCSV,
	}
	results := ProcessBatch(context.Background(), files, PipelineOptions{Convert: true})

	var fe *FileError
	if !errors.As(results[0].Err, &fe) || fe.FileName != "broken.xlsx" || !errors.Is(fe, ErrParse) {
		t.Errorf("results[0].Err = %v, want parse error naming broken.xlsx", results[0].Err)
	}

	good := results[1]
	if good.Err != nil {
		t.Fatalf("valid file failed: %v", good.Err)
	}
	if preview := good.Result.Head(5); preview.NumRows() != 3 {
		t.Errorf("preview rows = %d, want 3", preview.NumRows())
	}
	if good.Conversion == nil || good.Conversion.FileName != "sales.csv" || len(good.Conversion.Data) == 0 {
		t.Errorf("Conversion = %+v", good.Conversion)
	}
}

func TestProcessBatch_ZeroColumnsWithChart(t *testing.T) {
	results := ProcessBatch(context.Background(), []UploadedFile{salesCSV}, PipelineOptions{
		Columns: []string{},
		Chart:   true,
		Convert: true,
	})
	res := results[0]
	if res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}

	if res.Chart != nil {
		t.Errorf("Chart = %+v, want none for zero columns", res.Chart)
	}
	if _, ok := table.Chart(res.Result); ok {
		t.Error("table.Chart should report nothing to plot")
	}
	if got := string(res.Conversion.Data); got != "\n" {
		t.Errorf("zero-column CSV = %q, want %q", got, "\n")
	}
}

func TestProcessBatch_Chart(t *testing.T) {
	results := ProcessBatch(context.Background(), []UploadedFile{salesCSV}, PipelineOptions{Chart: true})
	res := results[0]
	if res.Chart == nil {
		t.Fatal("Chart is nil for a file with a numeric column")
	}
	if len(res.Chart.Series) != 1 || res.Chart.Series[0].Name != "amount" {
		t.Errorf("Series = %+v", res.Chart.Series)
	}
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ProcessBatch(ctx, []UploadedFile{salesCSV, salesCSV}, PipelineOptions{})
	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v, want context.Canceled", i, res.Err)
		}
	}
}
