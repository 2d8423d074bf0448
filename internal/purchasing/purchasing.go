// Package purchasing turns stock levels and recent sales into purchase
// recommendations.
package purchasing

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/ledger-cli/internal/config"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// Recommendation statuses layered over the inventory status of active
// products.
const (
	StatusCritical    = "Critical"
	StatusRecommended = "Recommended"
	StatusSufficient  = "Sufficient"
)

// UnknownCompany labels products that never appear in sales.
const UnknownCompany = "Unknown"

// NoVelocityDays is the days-of-stock value of a product that is not selling.
const NoVelocityDays = 999

// Item is the purchasing signal for one product.
type Item struct {
	Product             string `json:"product_name"`
	Company             string `json:"company"`
	StockQuantity       int64  `json:"stock_quantity"`
	RecentSales         int64  `json:"sales_recent"`
	SeasonalSales       int64  `json:"sales_seasonal"`
	ProjectedDemand     int64  `json:"projected_demand"`
	DaysOfStockLeft     int64  `json:"days_of_stock_left"`
	RecommendedPurchase int64  `json:"recommended_purchase"`
	Status              string `json:"status"`
}

type productSales struct {
	company   string
	companyAt *time.Time
	recent    int64
	seasonal  int64
}

// Plan computes recommendations for every product that is not discontinued,
// as of asOf. An empty company keeps all companies. Items are ordered by
// recommended purchase descending, then days of stock left ascending.
func Plan(products []model.Product, lines []model.TransactionDetail, asOf time.Time, cfg config.PurchasingConfig, company string) []Item {
	sales := salesByProduct(lines, asOf, cfg.VelocityDays)

	type ranked struct {
		item      Item
		recommend float64
		daysLeft  float64
	}
	var rows []ranked
	for _, p := range products {
		if p.Status == model.ProductDiscontinued {
			continue
		}
		s := sales[p.Name]
		if s == nil {
			s = &productSales{}
		}
		it := Item{
			Product:       p.Name,
			Company:       s.company,
			StockQuantity: p.StockQuantity,
			RecentSales:   s.recent,
			SeasonalSales: s.seasonal,
		}
		if it.Company == "" {
			it.Company = UnknownCompany
		}
		if company != "" && it.Company != company {
			continue
		}

		projected := float64(s.recent+s.seasonal) / 2
		daysLeft := float64(NoVelocityDays)
		if s.recent > 0 {
			daysLeft = float64(p.StockQuantity) / (float64(s.recent) / float64(cfg.VelocityDays))
		}
		recommend := math.Max(projected-float64(p.StockQuantity), 0)

		it.ProjectedDemand = int64(projected)
		it.DaysOfStockLeft = int64(daysLeft)
		it.RecommendedPurchase = int64(recommend)
		it.Status = status(p.Status, daysLeft, cfg)
		rows = append(rows, ranked{item: it, recommend: recommend, daysLeft: daysLeft})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].recommend != rows[b].recommend {
			return rows[a].recommend > rows[b].recommend
		}
		return rows[a].daysLeft < rows[b].daysLeft
	})
	out := make([]Item, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out
}

func status(inventory string, daysLeft float64, cfg config.PurchasingConfig) string {
	if inventory != model.ProductActive {
		return inventory
	}
	switch {
	case daysLeft < float64(cfg.CriticalDays):
		return StatusCritical
	case daysLeft < float64(cfg.RecommendedDays):
		return StatusRecommended
	default:
		return StatusSufficient
	}
}

// salesByProduct sums quantities sold in the velocity window ending at asOf
// and in the same calendar month one year earlier, and picks each product's
// company from its most recent sale.
func salesByProduct(lines []model.TransactionDetail, asOf time.Time, velocityDays int) map[string]*productSales {
	y, m, _ := asOf.AddDate(-1, 0, 0).Date()
	seasonStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	seasonEnd := seasonStart.AddDate(0, 1, -1)

	out := make(map[string]*productSales)
	for _, l := range lines {
		s, ok := out[l.Product]
		if !ok {
			s = &productSales{}
			out[l.Product] = s
		}
		d := l.DeliveryDate
		if s.company == "" || (d != nil && (s.companyAt == nil || d.After(*s.companyAt))) {
			if l.Company != "" {
				s.company = l.Company
				s.companyAt = d
			}
		}
		if d == nil {
			continue
		}
		if normalize.DaysBetween(*d, asOf) <= velocityDays {
			s.recent += l.Quantity
		}
		if !d.Before(seasonStart) && normalize.DaysBetween(*d, seasonEnd) >= 0 {
			s.seasonal += l.Quantity
		}
	}
	return out
}

// Companies lists the distinct companies of items, sorted.
func Companies(items []Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		if _, ok := seen[it.Company]; ok {
			continue
		}
		seen[it.Company] = struct{}{}
		out = append(out, it.Company)
	}
	sort.Strings(out)
	return out
}
