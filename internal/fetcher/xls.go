package fetcher

import (
	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
)

// XLSOptions configures the legacy XLS parser.
type XLSOptions struct {
	SheetIndex int    // default 0
	Charset    string // default "utf-8"
}

// ReadXLS reads a legacy BIFF (.xls) workbook, as produced by older
// accounting packages, and returns all rows of one sheet.
func ReadXLS(path string, opts XLSOptions) ([][]string, error) {
	charset := opts.Charset
	if charset == "" {
		charset = "utf-8"
	}

	wb, err := xls.Open(path, charset)
	if err != nil {
		return nil, eris.Wrap(err, "xls: open file")
	}
	if opts.SheetIndex >= wb.NumSheets() {
		return nil, eris.Errorf("xls: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, wb.NumSheets())
	}

	sheet := wb.GetSheet(opts.SheetIndex)
	if sheet == nil {
		return nil, eris.Errorf("xls: sheet %d unreadable", opts.SheetIndex)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// sheetRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences missing rows, so gaps are recovered here.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
