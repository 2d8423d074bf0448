package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ledger-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as fixed-width UTC text so range filters compare lexically.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ledger_versions (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	customers    INTEGER NOT NULL DEFAULT 0,
	lines        INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE TABLE IF NOT EXISTS ledger_pointer (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	version_id TEXT NOT NULL REFERENCES ledger_versions(id)
);

CREATE TABLE IF NOT EXISTS sales_data (
	version_id        TEXT NOT NULL,
	customer_code     TEXT NOT NULL,
	customer_name     TEXT NOT NULL DEFAULT '',
	invoice_number    TEXT NOT NULL DEFAULT '',
	delivery_date     TEXT,
	booker_name       TEXT NOT NULL DEFAULT '',
	product_name      TEXT NOT NULL DEFAULT '',
	quantity          INTEGER NOT NULL DEFAULT 0,
	amount            INTEGER NOT NULL DEFAULT 0,
	company           TEXT NOT NULL DEFAULT '',
	route             TEXT NOT NULL DEFAULT '',
	profit            INTEGER NOT NULL DEFAULT 0,
	balance           INTEGER NOT NULL DEFAULT 0,
	last_invoice_date TEXT
);

CREATE TABLE IF NOT EXISTS customer_summary (
	version_id           TEXT NOT NULL,
	customer_code        TEXT NOT NULL,
	customer_name        TEXT NOT NULL DEFAULT '',
	balance              INTEGER NOT NULL DEFAULT 0,
	last_invoice_date    TEXT,
	total_sales_amount   INTEGER NOT NULL DEFAULT 0,
	total_quantity       INTEGER NOT NULL DEFAULT 0,
	invoice_count        INTEGER NOT NULL DEFAULT 0,
	last_delivery_date   TEXT,
	route                TEXT NOT NULL DEFAULT 'N/A',
	booker_name          TEXT NOT NULL DEFAULT 'N/A',
	company              TEXT NOT NULL DEFAULT 'N/A',
	days_since_last_sale INTEGER NOT NULL DEFAULT 999,
	PRIMARY KEY (version_id, customer_code)
);

CREATE TABLE IF NOT EXISTS products (
	product_name   TEXT PRIMARY KEY,
	stock_quantity INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sales_data_version_customer ON sales_data(version_id, customer_code);
CREATE INDEX IF NOT EXISTS idx_sales_data_version_date ON sales_data(version_id, delivery_date);
CREATE INDEX IF NOT EXISTS idx_ledger_versions_started_at ON ledger_versions(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRebuild(ctx context.Context) (*model.LedgerVersion, error) {
	v := &model.LedgerVersion{
		ID:        uuid.New().String(),
		Status:    model.LedgerStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_versions (id, status, started_at) VALUES (?, ?, ?)`,
		v.ID, string(v.Status), formatTime(v.StartedAt),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ledger version")
	}
	return v, nil
}

// ReplaceLedger writes ledger under versionID, makes it the active ledger
// and discards every other version's rows, all in one transaction.
func (s *SQLiteStore) ReplaceLedger(ctx context.Context, versionID string, ledger *model.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace ledger")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRows(ctx, tx, "sales_data", salesColumns, transactionRows(versionID, ledger.Transactions, sqliteDate)); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, "customer_summary", summaryColumns, summaryRows(versionID, ledger.Customers, sqliteDate)); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE ledger_versions SET status = ?, completed_at = ?, customers = ?, lines = ?, error = NULL WHERE id = ?`,
		string(model.LedgerStatusComplete), formatTime(time.Now().UTC()),
		len(ledger.Customers), len(ledger.Transactions), versionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete ledger version %s", versionID)
	}
	if err := checkRowsAffected(res, versionID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_pointer (id, version_id) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET version_id = excluded.version_id`,
		versionID,
	); err != nil {
		return eris.Wrap(err, "sqlite: move ledger pointer")
	}

	for _, table := range []string{"sales_data", "customer_summary"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE version_id <> ?`, versionID); err != nil {
			return eris.Wrapf(err, "sqlite: discard old %s", table)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace ledger")
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(columns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

func (s *SQLiteStore) FailRebuild(ctx context.Context, versionID string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ledger_versions SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.LedgerStatusFailed), formatTime(time.Now().UTC()), cause, versionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail ledger version %s", versionID)
	}
	return checkRowsAffected(res, versionID)
}

func (s *SQLiteStore) ActiveVersion(ctx context.Context) (*model.LedgerVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT v.id, v.status, v.started_at, v.completed_at, v.customers, v.lines, v.error
		 FROM ledger_versions v JOIN ledger_pointer p ON p.version_id = v.id
		 WHERE p.id = 1`,
	)
	v, err := scanSQLiteVersion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoLedger
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active version")
	}
	v.Active = true
	return v, nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, limit int) ([]model.LedgerVersion, error) {
	if limit <= 0 {
		limit = defaultVersionLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.status, v.started_at, v.completed_at, v.customers, v.lines, v.error,
		        CASE WHEN p.version_id IS NULL THEN 0 ELSE 1 END
		 FROM ledger_versions v LEFT JOIN ledger_pointer p ON p.version_id = v.id
		 ORDER BY v.started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list versions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LedgerVersion
	for rows.Next() {
		var active int
		v, err := scanSQLiteVersion(rows, &active)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan version")
		}
		v.Active = active == 1
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list versions iterate")
}

func (s *SQLiteStore) Transactions(ctx context.Context, f TransactionFilter) ([]model.TransactionDetail, error) {
	query := `SELECT s.customer_code, s.customer_name, s.invoice_number, s.delivery_date,
	                 s.booker_name, s.product_name, s.quantity, s.amount, s.company, s.route,
	                 s.profit, s.balance, s.last_invoice_date
	          FROM sales_data s JOIN ledger_pointer p ON p.id = 1 AND p.version_id = s.version_id
	          WHERE 1=1`
	var args []any
	if f.CustomerCode != "" {
		query += ` AND s.customer_code = ?`
		args = append(args, f.CustomerCode)
	}
	if f.Route != "" {
		query += ` AND s.route = ?`
		args = append(args, f.Route)
	}
	if f.Company != "" {
		query += ` AND s.company = ?`
		args = append(args, f.Company)
	}
	if f.Product != "" {
		query += ` AND s.product_name = ?`
		args = append(args, f.Product)
	}
	if f.From != nil {
		query += ` AND s.delivery_date >= ?`
		args = append(args, formatTime(dayStart(*f.From)))
	}
	if f.To != nil {
		query += ` AND s.delivery_date < ?`
		args = append(args, formatTime(dayStart(*f.To).AddDate(0, 0, 1)))
	}
	query += ` ORDER BY s.delivery_date IS NULL, s.delivery_date, s.rowid`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query transactions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.TransactionDetail
	for rows.Next() {
		var td model.TransactionDetail
		var delivery, lastInvoice sql.NullString
		if err := rows.Scan(&td.Code, &td.CustomerName, &td.InvoiceNumber, &delivery,
			&td.Booker, &td.Product, &td.Quantity, &td.Amount, &td.Company, &td.Route,
			&td.Profit, &td.Balance, &lastInvoice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		td.DeliveryDate = parseTime(delivery)
		td.LastInvoiceDate = parseTime(lastInvoice)
		out = append(out, td)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: transactions iterate")
	}
	if len(out) == 0 {
		if err := s.requireLedger(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) Customers(ctx context.Context, f CustomerFilter) ([]model.CustomerSummary, error) {
	query := `SELECT c.customer_code, c.customer_name, c.balance, c.last_invoice_date,
	                 c.total_sales_amount, c.total_quantity, c.invoice_count, c.last_delivery_date,
	                 c.route, c.booker_name, c.company, c.days_since_last_sale
	          FROM customer_summary c JOIN ledger_pointer p ON p.id = 1 AND p.version_id = c.version_id
	          WHERE 1=1`
	var args []any
	if f.CustomerCode != "" {
		query += ` AND c.customer_code = ?`
		args = append(args, f.CustomerCode)
	}
	if f.Route != "" {
		query += ` AND c.route = ?`
		args = append(args, f.Route)
	}
	if f.Company != "" {
		query += ` AND c.company = ?`
		args = append(args, f.Company)
	}
	query += ` ORDER BY c.rowid`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query customers")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CustomerSummary
	for rows.Next() {
		var cs model.CustomerSummary
		var lastInvoice, lastDelivery sql.NullString
		if err := rows.Scan(&cs.Code, &cs.Name, &cs.Balance, &lastInvoice,
			&cs.TotalSalesAmount, &cs.TotalQuantity, &cs.InvoiceCount, &lastDelivery,
			&cs.Route, &cs.Booker, &cs.Company, &cs.DaysSinceLastSale); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		cs.LastInvoiceDate = parseTime(lastInvoice)
		cs.LastDeliveryDate = parseTime(lastDelivery)
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: customers iterate")
	}
	if len(out) == 0 {
		if err := s.requireLedger(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) requireLedger(ctx context.Context) error {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_pointer WHERE id = 1`).Scan(&n)
	if err != nil {
		return eris.Wrap(err, "sqlite: read ledger pointer")
	}
	if n == 0 {
		return ErrNoLedger
	}
	return nil
}

func (s *SQLiteStore) ReplaceProducts(ctx context.Context, products []model.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace products")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return eris.Wrap(err, "sqlite: clear products")
	}
	if err := insertRows(ctx, tx, "products", productColumns, productRows(products)); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace products")
}

func (s *SQLiteStore) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_name, stock_quantity, status FROM products ORDER BY product_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query products")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.Name, &p.StockQuantity, &p.Status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: products iterate")
}

// helpers

func checkRowsAffected(res sql.Result, versionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrVersionNotFound, "%s", versionID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteVersion(row scannable, extra ...any) (*model.LedgerVersion, error) {
	var v model.LedgerVersion
	var status, started string
	var completed, errText sql.NullString
	dest := append([]any{&v.ID, &status, &started, &completed, &v.Customers, &v.Lines, &errText}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v.Status = model.LedgerStatus(status)
	if t := parseTime(sql.NullString{String: started, Valid: true}); t != nil {
		v.StartedAt = *t
	}
	v.CompletedAt = parseTime(completed)
	v.Error = errText.String
	return &v, nil
}

// sqliteTimeLayout is fixed width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func sqliteDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
