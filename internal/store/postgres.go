package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/db"
	"github.com/sells-group/ledger-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	retry   db.RetryPolicy
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. Connections do
// no per-connection setup, so the store opens against an empty database and
// Migrate can create the schema afterwards.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := newPoolConfig(connString, poolCfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return openPostgres(ctx, pool, pool.Close)
}

func newPoolConfig(connString string, poolCfg *PoolConfig) (*pgxpool.Config, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	return pgxCfg, nil
}

// pingPool is a Pool that can check connectivity.
type pingPool interface {
	db.Pool
	Ping(ctx context.Context) error
}

func openPostgres(ctx context.Context, pool pingPool, closeFn func()) (*PostgresStore, error) {
	retry := db.DefaultRetryPolicy()
	if err := db.Retry(ctx, retry, "ping", pool.Ping); err != nil {
		closeFn()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: closeFn, retry: retry}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ledger_versions (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
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
	delivery_date     TIMESTAMPTZ,
	booker_name       TEXT NOT NULL DEFAULT '',
	product_name      TEXT NOT NULL DEFAULT '',
	quantity          BIGINT NOT NULL DEFAULT 0,
	amount            BIGINT NOT NULL DEFAULT 0,
	company           TEXT NOT NULL DEFAULT '',
	route             TEXT NOT NULL DEFAULT '',
	profit            BIGINT NOT NULL DEFAULT 0,
	balance           BIGINT NOT NULL DEFAULT 0,
	last_invoice_date TIMESTAMPTZ,
	line_id           BIGSERIAL
);

CREATE TABLE IF NOT EXISTS customer_summary (
	version_id           TEXT NOT NULL,
	customer_code        TEXT NOT NULL,
	customer_name        TEXT NOT NULL DEFAULT '',
	balance              BIGINT NOT NULL DEFAULT 0,
	last_invoice_date    TIMESTAMPTZ,
	total_sales_amount   BIGINT NOT NULL DEFAULT 0,
	total_quantity       BIGINT NOT NULL DEFAULT 0,
	invoice_count        INTEGER NOT NULL DEFAULT 0,
	last_delivery_date   TIMESTAMPTZ,
	route                TEXT NOT NULL DEFAULT 'N/A',
	booker_name          TEXT NOT NULL DEFAULT 'N/A',
	company              TEXT NOT NULL DEFAULT 'N/A',
	days_since_last_sale INTEGER NOT NULL DEFAULT 999,
	row_id               BIGSERIAL,
	PRIMARY KEY (version_id, customer_code)
);

CREATE TABLE IF NOT EXISTS products (
	product_name   TEXT PRIMARY KEY,
	stock_quantity BIGINT NOT NULL DEFAULT 0,
	status         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sales_data_version_customer ON sales_data(version_id, customer_code);
CREATE INDEX IF NOT EXISTS idx_sales_data_version_date ON sales_data(version_id, delivery_date);
CREATE INDEX IF NOT EXISTS idx_ledger_versions_started_at ON ledger_versions(started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) StartRebuild(ctx context.Context) (*model.LedgerVersion, error) {
	v := &model.LedgerVersion{
		ID:        uuid.New().String(),
		Status:    model.LedgerStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_versions (id, status, started_at) VALUES ($1, $2, $3)`,
		v.ID, string(v.Status), v.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert ledger version")
	}
	return v, nil
}

// ReplaceLedger copies ledger in under versionID, moves the active pointer
// and discards every other version's rows in one transaction. The whole
// transaction is retried on transient failures.
func (s *PostgresStore) ReplaceLedger(ctx context.Context, versionID string, ledger *model.Ledger) error {
	return db.Retry(ctx, s.retry, "replace ledger", func(ctx context.Context) error {
		return s.replaceLedger(ctx, versionID, ledger)
	})
}

func (s *PostgresStore) replaceLedger(ctx context.Context, versionID string, ledger *model.Ledger) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace ledger")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.CopyFrom(ctx, tx, "sales_data", salesColumns, transactionRows(versionID, ledger.Transactions, pgDate)); err != nil {
		return eris.Wrap(err, "postgres: copy transactions")
	}
	if _, err := db.CopyFrom(ctx, tx, "customer_summary", summaryColumns, summaryRows(versionID, ledger.Customers, pgDate)); err != nil {
		return eris.Wrap(err, "postgres: copy customers")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE ledger_versions SET status = $1, completed_at = $2, customers = $3, lines = $4, error = NULL WHERE id = $5`,
		string(model.LedgerStatusComplete), time.Now().UTC(), len(ledger.Customers), len(ledger.Transactions), versionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete ledger version %s", versionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrVersionNotFound, "%s", versionID)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_pointer (id, version_id) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET version_id = EXCLUDED.version_id`,
		versionID,
	); err != nil {
		return eris.Wrap(err, "postgres: move ledger pointer")
	}

	for _, table := range []string{"sales_data", "customer_summary"} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE version_id <> $1`, pgx.Identifier{table}.Sanitize())
		if _, err := tx.Exec(ctx, q, versionID); err != nil {
			return eris.Wrapf(err, "postgres: discard old %s", table)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace ledger")
}

func (s *PostgresStore) FailRebuild(ctx context.Context, versionID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ledger_versions SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(model.LedgerStatusFailed), time.Now().UTC(), cause, versionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail ledger version %s", versionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrVersionNotFound, "%s", versionID)
	}
	return nil
}

func (s *PostgresStore) ActiveVersion(ctx context.Context) (*model.LedgerVersion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT v.id, v.status, v.started_at, v.completed_at, v.customers, v.lines, v.error
		 FROM ledger_versions v JOIN ledger_pointer p ON p.version_id = v.id
		 WHERE p.id = 1`,
	)
	v, err := scanPostgresVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoLedger
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active version")
	}
	v.Active = true
	return v, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, limit int) ([]model.LedgerVersion, error) {
	if limit <= 0 {
		limit = defaultVersionLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT v.id, v.status, v.started_at, v.completed_at, v.customers, v.lines, v.error,
		        p.version_id IS NOT NULL
		 FROM ledger_versions v LEFT JOIN ledger_pointer p ON p.version_id = v.id
		 ORDER BY v.started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list versions")
	}
	defer rows.Close()

	var out []model.LedgerVersion
	for rows.Next() {
		var active bool
		v, err := scanPostgresVersion(rows, &active)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan version")
		}
		v.Active = active
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list versions iterate")
}

func (s *PostgresStore) Transactions(ctx context.Context, f TransactionFilter) ([]model.TransactionDetail, error) {
	query := `SELECT s.customer_code, s.customer_name, s.invoice_number, s.delivery_date,
	                 s.booker_name, s.product_name, s.quantity, s.amount, s.company, s.route,
	                 s.profit, s.balance, s.last_invoice_date
	          FROM sales_data s JOIN ledger_pointer p ON p.id = 1 AND p.version_id = s.version_id
	          WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}
	if f.CustomerCode != "" {
		add(` AND s.customer_code = $%d`, f.CustomerCode)
	}
	if f.Route != "" {
		add(` AND s.route = $%d`, f.Route)
	}
	if f.Company != "" {
		add(` AND s.company = $%d`, f.Company)
	}
	if f.Product != "" {
		add(` AND s.product_name = $%d`, f.Product)
	}
	if f.From != nil {
		add(` AND s.delivery_date >= $%d`, dayStart(*f.From))
	}
	if f.To != nil {
		add(` AND s.delivery_date < $%d`, dayStart(*f.To).AddDate(0, 0, 1))
	}
	query += ` ORDER BY s.delivery_date ASC NULLS LAST, s.line_id`
	if f.Limit > 0 {
		add(` LIMIT $%d`, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query transactions")
	}
	defer rows.Close()

	var out []model.TransactionDetail
	for rows.Next() {
		var td model.TransactionDetail
		if err := rows.Scan(&td.Code, &td.CustomerName, &td.InvoiceNumber, &td.DeliveryDate,
			&td.Booker, &td.Product, &td.Quantity, &td.Amount, &td.Company, &td.Route,
			&td.Profit, &td.Balance, &td.LastInvoiceDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		out = append(out, td)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: transactions iterate")
	}
	if len(out) == 0 {
		if err := s.requireLedger(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) Customers(ctx context.Context, f CustomerFilter) ([]model.CustomerSummary, error) {
	query := `SELECT c.customer_code, c.customer_name, c.balance, c.last_invoice_date,
	                 c.total_sales_amount, c.total_quantity, c.invoice_count, c.last_delivery_date,
	                 c.route, c.booker_name, c.company, c.days_since_last_sale
	          FROM customer_summary c JOIN ledger_pointer p ON p.id = 1 AND p.version_id = c.version_id
	          WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}
	if f.CustomerCode != "" {
		add(` AND c.customer_code = $%d`, f.CustomerCode)
	}
	if f.Route != "" {
		add(` AND c.route = $%d`, f.Route)
	}
	if f.Company != "" {
		add(` AND c.company = $%d`, f.Company)
	}
	query += ` ORDER BY c.row_id`
	if f.Limit > 0 {
		add(` LIMIT $%d`, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query customers")
	}
	defer rows.Close()

	var out []model.CustomerSummary
	for rows.Next() {
		var cs model.CustomerSummary
		if err := rows.Scan(&cs.Code, &cs.Name, &cs.Balance, &cs.LastInvoiceDate,
			&cs.TotalSalesAmount, &cs.TotalQuantity, &cs.InvoiceCount, &cs.LastDeliveryDate,
			&cs.Route, &cs.Booker, &cs.Company, &cs.DaysSinceLastSale); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: customers iterate")
	}
	if len(out) == 0 {
		if err := s.requireLedger(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) requireLedger(ctx context.Context) error {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM ledger_pointer WHERE id = 1`).Scan(&n); err != nil {
		return eris.Wrap(err, "postgres: read ledger pointer")
	}
	if n == 0 {
		return ErrNoLedger
	}
	return nil
}

func (s *PostgresStore) ReplaceProducts(ctx context.Context, products []model.Product) error {
	_, err := db.ReplaceTable(ctx, s.pool, "products", productColumns, productRows(products))
	return eris.Wrap(err, "postgres: replace products")
}

func (s *PostgresStore) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_name, stock_quantity, status FROM products ORDER BY product_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query products")
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.Name, &p.StockQuantity, &p.Status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: products iterate")
}

func scanPostgresVersion(row scannable, extra ...any) (*model.LedgerVersion, error) {
	var v model.LedgerVersion
	var status string
	var errText *string
	dest := append([]any{&v.ID, &status, &v.StartedAt, &v.CompletedAt, &v.Customers, &v.Lines, &errText}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v.Status = model.LedgerStatus(status)
	if errText != nil {
		v.Error = *errText
	}
	return &v, nil
}
