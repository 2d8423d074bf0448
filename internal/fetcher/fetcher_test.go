package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable_CSVDropsBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("Inv #,Product\n,\nA1,P1\n\n"), 0o644))

	rows, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Inv #", "Product"}, rows[0])
	assert.Equal(t, []string{"A1", "P1"}, rows[1])
}

func TestReadTable_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"Code", "Balance"}, {"7", "-500"}},
	})

	rows, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "-500", rows[1][1])
}

func TestReadTable_Missing(t *testing.T) {
	_, err := ReadTable(context.Background(), filepath.Join(t.TempDir(), "Credit_Balances.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: stat")
}

func TestReadTable_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := ReadTable(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}
