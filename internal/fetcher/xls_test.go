package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdata/credit.xls is a BIFF8 workbook with one sheet. Row 2 has no
// record at all, as legacy exports leave for blank lines.
const xlsFixture = "testdata/credit.xls"

func TestReadXLS(t *testing.T) {
	rows, err := ReadXLS(xlsFixture, XLSOptions{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Code", "Balance", "Last Invoice on"},
		{"7", "-500", "2025-01-02"},
		{"8", "1200.5", "2025-02-10"},
	}, rows)
}

func TestReadXLS_SheetIndexOutOfRange(t *testing.T) {
	_, err := ReadXLS(xlsFixture, XLSOptions{SheetIndex: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLS_FileNotFound(t *testing.T) {
	_, err := ReadXLS(filepath.Join(t.TempDir(), "missing.xls"), XLSOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xls: open file")
}

func TestReadXLS_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.xls")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o644))

	_, err := ReadXLS(path, XLSOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xls: open file")
}

func TestReadTable_XLS(t *testing.T) {
	rows, err := ReadTable(context.Background(), xlsFixture)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Code", "Balance", "Last Invoice on"}, rows[0])
	assert.Equal(t, "1200.5", rows[2][1])
}
