package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ledger-cli/internal/model"
)

func fixture() ([]model.CustomerSummary, []model.TransactionDetail, []model.ScoreRecord) {
	customers := []model.CustomerSummary{
		{Code: "1", Name: "Alpha", Route: "R1", Balance: 5000, TotalSalesAmount: 900, InvoiceCount: 2, DaysSinceLastSale: 3},
		{Code: "2", Name: "Beta", Route: "R2", Balance: -200, TotalSalesAmount: 300, InvoiceCount: 1, DaysSinceLastSale: 40},
		{Code: "3", Name: "Gamma", Route: "R1", Balance: 800, DaysSinceLastSale: 999},
	}
	line := func(code, invoice string, profit int64) model.TransactionDetail {
		return model.TransactionDetail{SalesLine: model.SalesLine{Code: code, InvoiceNumber: invoice}, Profit: profit}
	}
	lines := []model.TransactionDetail{
		line("1", "A", 50), line("1", "A", 50), line("1", "B", 20),
		line("2", "C", 30), line("2", "C", 30),
	}
	scores := []model.ScoreRecord{
		{Code: "1", Monetary: 1000, TotalProfit: 70, Frequency: 2, Recency: 3, RFMScore: 12, Segment: model.SegmentLoyal},
	}
	return customers, lines, scores
}

func TestBuildCreditList(t *testing.T) {
	customers, lines, scores := fixture()

	list, err := BuildCreditList(customers, lines, scores, CreditListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Rows, 3)

	// Default order is balance descending.
	assert.Equal(t, []string{"1", "3", "2"}, []string{list.Rows[0].Code, list.Rows[1].Code, list.Rows[2].Code})

	alpha := list.Rows[0]
	assert.Equal(t, int64(1000), alpha.NetAmount)
	assert.Equal(t, int64(70), alpha.TotalProfit)
	assert.Equal(t, 12, alpha.CreditScore)
	assert.Equal(t, model.SegmentLoyal, alpha.Segment)

	beta := list.Rows[2]
	assert.Equal(t, SegmentUnknown, beta.Segment)
	assert.Equal(t, 0, beta.CreditScore)
	assert.Equal(t, int64(300), beta.NetAmount)
	assert.Equal(t, int64(30), beta.TotalProfit)
	assert.Equal(t, 40, beta.Recency)

	assert.Equal(t, CreditTotals{
		Customers:        3,
		TotalOutstanding: 5600,
		TotalProfit:      100,
		CustomersOwingUs: 2,
		CustomersWeOwe:   1,
	}, list.Totals)
	assert.Equal(t, []string{"R1", "R2"}, list.Routes)
}

func TestBuildCreditListRouteFilterAndSort(t *testing.T) {
	customers, lines, scores := fixture()

	list, err := BuildCreditList(customers, lines, scores, CreditListOptions{Route: "R1", SortBy: "customer_name", Asc: true})
	require.NoError(t, err)
	require.Len(t, list.Rows, 2)
	assert.Equal(t, "Alpha", list.Rows[0].Name)
	assert.Equal(t, "Gamma", list.Rows[1].Name)
	assert.Equal(t, 2, list.Totals.Customers)
	// Routes always list every route.
	assert.Equal(t, []string{"R1", "R2"}, list.Routes)
}

func TestBuildCreditListUnknownSortKey(t *testing.T) {
	customers, lines, scores := fixture()
	_, err := BuildCreditList(customers, lines, scores, CreditListOptions{SortBy: "shoe_size"})
	assert.ErrorContains(t, err, "unknown credit list sort key")
}

func TestProfitByCustomer(t *testing.T) {
	_, lines, _ := fixture()
	assert.Equal(t, map[string]int64{"1": 70, "2": 30}, ProfitByCustomer(lines))
}

func TestCreditSortKeys(t *testing.T) {
	keys := CreditSortKeys()
	assert.Contains(t, keys, "balance")
	assert.IsNonDecreasing(t, keys)
}
