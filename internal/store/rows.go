package store

import (
	"time"

	"github.com/sells-group/ledger-cli/internal/model"
)

// dateFunc converts an optional date to the driver's column value.
type dateFunc func(*time.Time) any

func pgDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func transactionRows(versionID string, lines []model.TransactionDetail, date dateFunc) [][]any {
	rows := make([][]any, 0, len(lines))
	for _, td := range lines {
		rows = append(rows, []any{
			versionID, td.Code, td.CustomerName, td.InvoiceNumber, date(td.DeliveryDate),
			td.Booker, td.Product, td.Quantity, td.Amount, td.Company, td.Route,
			td.Profit, td.Balance, date(td.LastInvoiceDate),
		})
	}
	return rows
}

func summaryRows(versionID string, customers []model.CustomerSummary, date dateFunc) [][]any {
	rows := make([][]any, 0, len(customers))
	for _, cs := range customers {
		rows = append(rows, []any{
			versionID, cs.Code, cs.Name, cs.Balance, date(cs.LastInvoiceDate),
			cs.TotalSalesAmount, cs.TotalQuantity, cs.InvoiceCount, date(cs.LastDeliveryDate),
			cs.Route, cs.Booker, cs.Company, cs.DaysSinceLastSale,
		})
	}
	return rows
}

func productRows(products []model.Product) [][]any {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.Name, p.StockQuantity, p.Status})
	}
	return rows
}
