package core

// pipeline.go evaluates one file: ingest -> clean -> select -> chart -> convert.
//
// Evaluation is pure. The original table is never changed; every call
// replays the cleaning flags and the column selection held in a
// CleaningState against it.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// Batch errors raised before any file is read.
var (
	ErrNoFiles      = errors.New("no file provided")
	ErrTooManyFiles = errors.New("too many files")
)

// CleaningState is the per-file set of user choices.
type CleaningState struct {
	Deduplicated  bool     `json:"deduplicated"`
	FilledMissing bool     `json:"filled_missing"`
	Selected      []string `json:"selected"`
	ChartEnabled  bool     `json:"chart_enabled"`
	Format        Format   `json:"format"`
}

// NewCleaningState returns the state of a freshly loaded file: nothing
// cleaned, every column selected, chart off, CSV output.
func NewCleaningState(t *table.Table) CleaningState {
	return CleaningState{
		Selected: t.Names(),
		Format:   FormatCSV,
	}
}

// Clean applies the cleaning flags of st to the full column set.
// Deduplication runs before the fill when both are set.
func Clean(t *table.Table, st CleaningState) *table.Table {
	if st.Deduplicated {
		t = table.Deduplicate(t)
	}
	if st.FilledMissing {
		t = table.FillMissingNumeric(t)
	}
	return t
}

// Evaluate returns the table the user currently sees: the original,
// cleaned, then narrowed to the selected columns.
func Evaluate(original *table.Table, st CleaningState) (*table.Table, error) {
	return table.Select(Clean(original, st), st.Selected)
}

// FileResult is the outcome of running the pipeline on one file.
type FileResult struct {
	File       UploadedFile
	Original   *table.Table
	State      CleaningState
	Result     *table.Table
	Chart      *table.ChartSummary
	Conversion *ConversionResult
	Err        error
}

// PipelineOptions configures a batch run. Convert is optional; when false no
// ConversionResult is produced.
type PipelineOptions struct {
	Deduplicate bool
	FillMissing bool
	Columns     []string // nil keeps every column
	Chart       bool
	Convert     bool
	Format      Format
	MaxFileSize int64 // per-file limit in bytes; zero means no limit
}

// state builds the CleaningState for a freshly ingested table.
func (o PipelineOptions) state(t *table.Table) CleaningState {
	st := NewCleaningState(t)
	st.Deduplicated = o.Deduplicate
	st.FilledMissing = o.FillMissing
	st.ChartEnabled = o.Chart
	st.Format = o.Format
	if o.Columns != nil {
		st.Selected = o.Columns
	}
	return st
}

// ProcessBatch runs the pipeline on each file in order. A failing file is
// reported in its FileResult and never stops the others.
func ProcessBatch(ctx context.Context, files []UploadedFile, opts PipelineOptions) []FileResult {
	logger := logging.FromContext(ctx)
	results := make([]FileResult, len(files))

	for i, file := range files {
		res := FileResult{File: file}
		if err := ctx.Err(); err != nil {
			res.Err = err
			results[i] = res
			continue
		}

		if limit := opts.MaxFileSize; limit > 0 && file.Len() > limit {
			res.Err = newFileError(ErrFileTooLarge, file.Name, fmt.Errorf("%d bytes, limit %d", file.Len(), limit))
		} else {
			res.Original, res.Err = Ingest(file)
		}
		if res.Err == nil {
			res.State = opts.state(res.Original)
			res.Result, res.Err = Evaluate(res.Original, res.State)
		}
		if res.Err == nil && res.State.ChartEnabled {
			if summary, ok := table.Chart(res.Result); ok {
				res.Chart = &summary
			}
		}
		if res.Err == nil && opts.Convert {
			res.Conversion, res.Err = Convert(res.Result, res.State.Format, file.Name)
		}

		if res.Err != nil {
			logFileError(logger, file.Name, res.Err)
		} else {
			logger.Debug("file processed",
				"file", file.Name,
				"rows", res.Result.NumRows(),
				"columns", res.Result.NumCols(),
			)
		}
		results[i] = res
	}

	return results
}

// logFileError records a per-file failure with its user-facing code.
func logFileError(logger *slog.Logger, fileName string, err error) {
	logger.Warn("file skipped",
		"file", fileName,
		"kind", errorKind(err),
		"code", MapError(err).Code,
		"error", err,
	)
}
