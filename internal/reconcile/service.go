package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/credit"
	"github.com/sells-group/ledger-cli/internal/margin"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/sales"
	"github.com/sells-group/ledger-cli/internal/store"
)

// Sources names the extracts one rebuild reads. MarginFile may be empty, in
// which case every line gets profit 0.
type Sources struct {
	CreditFile string
	SalesFiles []string
	MarginFile string
}

// Service rebuilds the persisted ledger from the configured extracts.
type Service struct {
	store   store.Store
	sources Sources
	now     func() time.Time
}

// NewService creates a rebuild service writing to st.
func NewService(st store.Store, src Sources) *Service {
	return &Service{store: st, sources: src, now: time.Now}
}

// Result is the outcome of a successful rebuild.
type Result struct {
	Version *model.LedgerVersion `json:"version"`
	Report  LoadReport           `json:"report"`
}

// Rebuild loads every extract, reconciles them and swaps the new ledger in.
// On any failure the active ledger is left untouched and the attempt is
// recorded as a failed version.
func (s *Service) Rebuild(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "rebuild"))
	start := time.Now()

	v, err := s.store.StartRebuild(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "rebuild: start")
	}
	log = log.With(zap.String("version", v.ID))
	log.Info("rebuild: started")

	ledger, report, err := s.build(ctx)
	if err == nil {
		err = s.store.ReplaceLedger(ctx, v.ID, ledger)
	}
	if err != nil {
		// The caller's context may already be done; record the failure anyway.
		if ferr := s.store.FailRebuild(context.WithoutCancel(ctx), v.ID, err.Error()); ferr != nil {
			log.Error("rebuild: record failure", zap.Error(ferr))
		}
		log.Error("rebuild: failed, previous ledger kept", zap.Error(err))
		return nil, eris.Wrapf(err, "rebuild %s", v.ID)
	}

	v.Status = model.LedgerStatusComplete
	v.Active = true
	v.Customers = len(ledger.Customers)
	v.Lines = len(ledger.Transactions)
	completed := time.Now().UTC()
	v.CompletedAt = &completed

	report.Log(log)
	log.Info("rebuild: complete",
		zap.Int("customers", v.Customers),
		zap.Int("lines", v.Lines),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Result{Version: v, Report: report}, nil
}

func (s *Service) build(ctx context.Context) (*model.Ledger, LoadReport, error) {
	var report LoadReport

	roster, err := credit.Load(ctx, s.sources.CreditFile)
	if err != nil {
		return nil, report, err
	}
	report.Credit = SummarizeCredit(roster)

	raw, err := sales.Load(ctx, s.sources.SalesFiles)
	if err != nil {
		return nil, report, err
	}
	lines := sales.Dedup(raw)
	report.RawSalesLines = len(raw)
	report.Sales = sales.Summarize(lines)

	var profits []model.InvoiceProfit
	if s.sources.MarginFile == "" {
		zap.L().Warn("rebuild: no margin extract configured, profit will be 0", zap.String("component", "rebuild"))
	} else {
		profits, err = margin.Load(ctx, s.sources.MarginFile)
		if err != nil {
			return nil, report, err
		}
	}
	report.Margin = SummarizeMargin(profits)

	merged, mergeReport := margin.Merge(lines, profits)
	report.Merge = mergeReport

	ledger, err := Reconcile(roster, sales.Aggregate(lines), merged, s.now())
	if err != nil {
		return nil, report, err
	}
	return ledger, report, nil
}
