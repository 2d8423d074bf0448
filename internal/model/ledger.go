package model

import "time"

// CreditRecord is one customer on the credit roster. The roster is the
// source of truth for balances; sales data never overwrites it.
type CreditRecord struct {
	Code            string     `json:"customer_code"`
	Name            string     `json:"customer_name,omitempty"`
	Route           string     `json:"route,omitempty"`
	Balance         int64      `json:"balance"` // positive = customer owes us
	LastInvoiceDate *time.Time `json:"last_invoice_date,omitempty"`
}

// SalesLine is one product line of one invoice.
type SalesLine struct {
	Code          string     `json:"customer_code"`
	CustomerName  string     `json:"customer_name"`
	InvoiceNumber string     `json:"invoice_number"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	Booker        string     `json:"booker_name"`
	Product       string     `json:"product_name"`
	Quantity      int64      `json:"quantity"`
	Amount        int64      `json:"amount"` // negative for returns and claims
	Company       string     `json:"company"`
	Route         string     `json:"route"`
}

// InvoiceProfit carries the profit of a whole invoice, not of a line.
type InvoiceProfit struct {
	InvoiceNumber string `json:"invoice_number"`
	NetAmount     int64  `json:"amount_from_margin"`
	Profit        int64  `json:"profit"`
}

// SalesLineWithProfit is a sales line with its invoice profit attached.
// Every line of an invoice carries the same profit value.
type SalesLineWithProfit struct {
	SalesLine
	Profit int64 `json:"profit"`
}

// CustomerSalesAgg holds per-customer sales aggregates.
type CustomerSalesAgg struct {
	Code             string     `json:"customer_code"`
	TotalAmount      int64      `json:"total_sales_amount"`
	TotalQuantity    int64      `json:"total_quantity"`
	InvoiceCount     int        `json:"invoice_count"`
	LastDeliveryDate *time.Time `json:"last_delivery_date,omitempty"`
	CustomerName     string     `json:"customer_name"`
	Route            string     `json:"route"`
	Booker           string     `json:"booker_name"`
	Company          string     `json:"company"`
}

// TransactionDetail is the persisted, denormalized ledger row: one product
// line with its invoice profit and the customer's credit balance.
type TransactionDetail struct {
	SalesLine
	Profit          int64      `json:"profit"`
	Balance         int64      `json:"balance"`
	LastInvoiceDate *time.Time `json:"last_invoice_date,omitempty"`
}

// CustomerSummary is the reconciled per-customer row. There is exactly one
// per credit-roster customer.
type CustomerSummary struct {
	Code              string     `json:"customer_code"`
	Name              string     `json:"customer_name"`
	Balance           int64      `json:"balance"`
	LastInvoiceDate   *time.Time `json:"last_invoice_date,omitempty"`
	TotalSalesAmount  int64      `json:"total_sales_amount"`
	TotalQuantity     int64      `json:"total_quantity"`
	InvoiceCount      int        `json:"invoice_count"`
	LastDeliveryDate  *time.Time `json:"last_delivery_date,omitempty"`
	Route             string     `json:"route"`
	Booker            string     `json:"booker_name"`
	Company           string     `json:"company"`
	DaysSinceLastSale int        `json:"days_since_last_sale"`
}

// Ledger is the output of one reconciliation run.
type Ledger struct {
	Customers    []CustomerSummary   `json:"customers"`
	Transactions []TransactionDetail `json:"transactions"`
}

// LedgerStatus is the lifecycle state of a ledger version.
type LedgerStatus string

const (
	LedgerStatusRunning  LedgerStatus = "running"
	LedgerStatusComplete LedgerStatus = "complete"
	LedgerStatusFailed   LedgerStatus = "failed"
)

// LedgerVersion records one rebuild attempt.
type LedgerVersion struct {
	ID          string       `json:"id"`
	Status      LedgerStatus `json:"status"`
	Active      bool         `json:"active"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Customers   int          `json:"customers"`
	Lines       int          `json:"lines"`
	Error       string       `json:"error,omitempty"`
}
