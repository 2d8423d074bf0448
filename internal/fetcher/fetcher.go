// Package fetcher reads tabular source extracts (XLSX, legacy XLS and CSV)
// into rows of strings. Cell typing is left to the normalize package.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedFormat is returned for extensions ReadTable cannot parse.
var ErrUnsupportedFormat = eris.New("fetcher: unsupported extract format")

// ReadTable reads the first sheet of the extract at path. The format is
// chosen by extension. Blank rows are dropped; the first remaining row is
// the header.
func ReadTable(ctx context.Context, path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "fetcher: stat %s", path)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(path, XLSXOptions{})
	case ".xls":
		rows, err = ReadXLS(path, XLSOptions{})
	case ".csv", ".txt":
		rows, err = ReadCSV(ctx, path, CSVOptions{TrimSpace: true})
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", path)
	}
	return dropBlankRows(rows), nil
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
