package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatXLSX  = "xlsx"
)

// view is a rendered report: a flat table plus the structured value behind
// it for json and yaml output.
type view struct {
	Title   string
	Headers []string
	Rows    [][]any
	Value   any
}

// outputOptions are the rendering flags shared by every read command.
type outputOptions struct {
	Format string
	Path   string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", formatTable, "output format: table, csv, json, yaml, xlsx")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout (required for xlsx)")
}

func outputFlags(cmd *cobra.Command) outputOptions {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")
	return outputOptions{Format: format, Path: path}
}

// amounts formats integers with thousands separators.
var amounts = message.NewPrinter(language.English)

func render(w io.Writer, opts outputOptions, v view) error {
	switch opts.Format {
	case "", formatTable:
		return renderTable(w, v)
	case formatCSV:
		return renderCSV(w, v)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Value)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v.Value); err != nil {
			return eris.Wrap(err, "render yaml")
		}
		return enc.Close()
	case formatXLSX:
		if opts.Path == "" {
			return eris.New("xlsx output needs --output <file>")
		}
		return renderXLSX(opts.Path, v)
	default:
		return eris.Errorf("unknown output format %q", opts.Format)
	}
}

// cellText renders one table cell. Integers get thousands separators.
func cellText(c any) string {
	switch x := c.(type) {
	case nil:
		return ""
	case int:
		return amounts.Sprintf("%d", x)
	case int64:
		return amounts.Sprintf("%d", x)
	case float64:
		return amounts.Sprintf("%.1f", x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func renderTable(out io.Writer, v view) error {
	if len(v.Rows) == 0 {
		_, err := fmt.Fprintln(out, "No rows.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if v.Title != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", v.Title)
	}
	for i, h := range v.Headers {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, h)
	}
	_, _ = fmt.Fprintln(w)
	for _, row := range v.Rows {
		for i, c := range row {
			if i > 0 {
				_, _ = fmt.Fprint(w, "\t")
			}
			_, _ = fmt.Fprint(w, cellText(c))
		}
		_, _ = fmt.Fprintln(w)
	}
	return w.Flush()
}

func renderCSV(out io.Writer, v view) error {
	w := csv.NewWriter(out)
	if err := w.Write(v.Headers); err != nil {
		return eris.Wrap(err, "render csv")
	}
	for _, row := range v.Rows {
		rec := make([]string, len(row))
		for i, c := range row {
			switch x := c.(type) {
			case nil:
			case float64:
				rec[i] = fmt.Sprintf("%.2f", x)
			default:
				rec[i] = fmt.Sprint(x)
			}
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "render csv")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "render csv")
}

func renderXLSX(path string, v view) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := v.Title
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return eris.Wrap(err, "render xlsx: name sheet")
	}

	header := make([]any, len(v.Headers))
	for i, h := range v.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrap(err, "render xlsx: header")
	}
	for i, row := range v.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "render xlsx")
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return eris.Wrapf(err, "render xlsx: row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "render xlsx: save %s", path)
	}
	return nil
}

// writeView renders v to stdout or to the --output file.
func writeView(cmd *cobra.Command, v view) error {
	opts := outputFlags(cmd)
	if opts.Path == "" || opts.Format == formatXLSX {
		return render(cmd.OutOrStdout(), opts, v)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return eris.Wrapf(err, "create %s", opts.Path)
	}
	if err := render(f, opts, v); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", opts.Path)
}

// formatDate renders an optional date for tables, "" when unknown.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
