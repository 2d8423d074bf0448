// Package store persists the reconciled ledger. Each rebuild writes a new
// ledger version and then moves a single active-version pointer inside one
// transaction, so readers see either the previous ledger or the new one.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/model"
)

// ErrNoLedger is returned by readers before any rebuild has completed.
var ErrNoLedger = eris.New("store: no ledger has been built yet")

// ErrVersionNotFound is returned when a rebuild refers to an unknown version.
var ErrVersionNotFound = eris.New("store: ledger version not found")

// TransactionFilter narrows transaction detail reads. Zero fields match
// everything; From and To are inclusive delivery-date bounds.
type TransactionFilter struct {
	CustomerCode string     `json:"customer_code,omitempty"`
	Route        string     `json:"route,omitempty"`
	Company      string     `json:"company,omitempty"`
	Product      string     `json:"product_name,omitempty"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// CustomerFilter narrows customer summary reads.
type CustomerFilter struct {
	CustomerCode string `json:"customer_code,omitempty"`
	Route        string `json:"route,omitempty"`
	Company      string `json:"company,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the ledger.
type Store interface {
	// Rebuilds
	StartRebuild(ctx context.Context) (*model.LedgerVersion, error)
	ReplaceLedger(ctx context.Context, versionID string, ledger *model.Ledger) error
	FailRebuild(ctx context.Context, versionID string, cause string) error
	ActiveVersion(ctx context.Context) (*model.LedgerVersion, error)
	ListVersions(ctx context.Context, limit int) ([]model.LedgerVersion, error)

	// Ledger reads
	Transactions(ctx context.Context, filter TransactionFilter) ([]model.TransactionDetail, error)
	Customers(ctx context.Context, filter CustomerFilter) ([]model.CustomerSummary, error)

	// Inventory
	ReplaceProducts(ctx context.Context, products []model.Product) error
	Products(ctx context.Context) ([]model.Product, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var salesColumns = []string{
	"version_id", "customer_code", "customer_name", "invoice_number", "delivery_date",
	"booker_name", "product_name", "quantity", "amount", "company", "route",
	"profit", "balance", "last_invoice_date",
}

var summaryColumns = []string{
	"version_id", "customer_code", "customer_name", "balance", "last_invoice_date",
	"total_sales_amount", "total_quantity", "invoice_count", "last_delivery_date",
	"route", "booker_name", "company", "days_since_last_sale",
}

var productColumns = []string{"product_name", "stock_quantity", "status"}

const defaultVersionLimit = 20
