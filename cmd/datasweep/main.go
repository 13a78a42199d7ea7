// Package main provides the datasweep CLI, which runs the cleaning pipeline
// on local files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/table"
)

// errFilesFailed is returned when at least one file of a batch failed.
var errFilesFailed = errors.New("one or more files failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "datasweep",
		Short: "Clean, select and convert CSV and Excel files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, "text"))
		},
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newPreviewCmd(), newConvertCmd())
	return rootCmd
}

func newPreviewCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview FILE...",
		Short: "Show the shape, column types and first rows of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, failed := readFiles(cmd.ErrOrStderr(), args)
			results := core.ProcessBatch(cmd.Context(), files, core.PipelineOptions{})
			for _, res := range results {
				if res.Err != nil {
					failed++
					reportFailure(cmd.ErrOrStderr(), res)
					continue
				}
				printPreview(cmd.OutOrStdout(), res.File.Name, res.Result, rows)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errFilesFailed, failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 5, "Number of rows to show")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		opts    core.PipelineOptions
		columns []string
		format  string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean each file and write it as CSV or Excel",
		Long: `convert runs the pipeline on every file: remove duplicate rows, fill
missing numeric values with the column mean, keep the selected columns and
write the result into the output directory. A file that fails is reported
and the others are still written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := core.ParseFormat(format)
			if err != nil {
				return err
			}
			opts.Format = f
			opts.Convert = true
			if cmd.Flags().Changed("columns") {
				opts.Columns = append([]string{}, columns...)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			stdout := cmd.OutOrStdout()
			files, failed := readFiles(cmd.ErrOrStderr(), args)
			results := core.ProcessBatch(cmd.Context(), files, opts)
			for _, res := range results {
				if res.Err != nil {
					failed++
					reportFailure(cmd.ErrOrStderr(), res)
					continue
				}

				path := filepath.Join(outDir, res.Conversion.FileName)
				if err := os.WriteFile(path, res.Conversion.Data, 0o644); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: write %s: %v\n", res.File.Name, path, err)
					continue
				}
				fmt.Fprintf(stdout, "%s -> %s (%d rows, %d columns)\n",
					res.File.Name, path, res.Result.NumRows(), res.Result.NumCols())

				if opts.Chart {
					printChart(stdout, res.Chart)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errFilesFailed, failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Deduplicate, "dedupe", false, "Remove duplicate rows")
	cmd.Flags().BoolVar(&opts.FillMissing, "fill", false, "Fill missing numeric values with the column mean")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to keep, in order (default: all)")
	cmd.Flags().BoolVar(&opts.Chart, "chart", false, "Print a summary of the numeric columns")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or excel")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

// readFiles loads each path. Files that cannot be read are reported to
// stderr and counted in failed.
func readFiles(stderr io.Writer, paths []string) (files []core.UploadedFile, failed int) {
	files = make([]core.UploadedFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", p, err)
			failed++
			continue
		}
		files = append(files, core.UploadedFile{Name: filepath.Base(p), Data: data})
	}
	return files, failed
}

func reportFailure(w io.Writer, res core.FileResult) {
	fmt.Fprintf(w, "%s: %s\n", res.File.Name, core.FormatUserError(res.Err))
}

func printPreview(w io.Writer, name string, t *table.Table, rows int) {
	fmt.Fprintf(w, "%s: %d rows × %d columns\n", name, t.NumRows(), t.NumCols())
	if t.NumCols() == 0 {
		fmt.Fprintln(w)
		return
	}

	types := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		types = append(types, c.Type.String())
	}
	header, records := t.Head(rows).Records()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(types, "\t"))
	for _, rec := range records {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printChart(w io.Writer, c *table.ChartSummary) {
	if c == nil {
		fmt.Fprintf(w, "  chart: %s\n", table.NoNumericDataMessage)
		return
	}
	for _, s := range c.Series {
		present := 0
		for _, v := range s.Values {
			if v != nil {
				present++
			}
		}
		fmt.Fprintf(w, "  chart: %s, %d of %d points\n", s.Name, present, len(s.Values))
	}
}
