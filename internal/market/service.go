package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

// StockData is the payload served by /api/stock: the raw upstream blocks
// plus the derived figures the pages interpolate into prose.
type StockData struct {
	Snapshot         *Snapshot         `json:"snapshot"`
	CompanyFacts     *CompanyFacts     `json:"companyFacts"`
	Metrics          *FinancialMetrics `json:"metrics"`
	IncomeStatements []IncomeStatement `json:"incomeStatements"`
	Figures          *Figures          `json:"figures"`
}

// Figures are the page-facing display estimates. The churn, loyalty-member
// and funded-backlog values are sector-profile estimates, not reported
// figures; the disclaimers on the pages say as much.
type Figures struct {
	ROA                string `json:"roa"`
	NetMargin          string `json:"netMargin"`
	RevenuePerEmployee string `json:"revenuePerEmployee"`
	EstimatedChurn     string `json:"estimatedChurn"`
	LoyaltyMembers     string `json:"loyaltyMembers"`
	FundedBacklog      string `json:"fundedBacklog"`
}

type cacheEntry struct {
	data    *StockData
	fetched time.Time
}

// Service assembles stock payloads with a small TTL cache in front of the
// upstream client.
type Service struct {
	client   *Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewService(client *Client, cacheTTL time.Duration) *Service {
	return &Service{
		client:   client,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// GetStock returns the assembled payload for one ticker, from cache when
// fresh. The snapshot is required; the other blocks are best-effort so a
// partial upstream outage still renders a page.
func (s *Service) GetStock(ctx context.Context, ticker string) (*StockData, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	s.mu.RLock()
	entry, ok := s.cache[ticker]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetched) < s.cacheTTL {
		return entry.data, nil
	}

	snapshot, err := s.client.GetSnapshot(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot for %s: %w", ticker, err)
	}

	data := &StockData{Snapshot: snapshot}

	if facts, err := s.client.GetCompanyFacts(ctx, ticker); err != nil {
		logger.Warnf("company facts unavailable for %s: %v", ticker, err)
	} else {
		data.CompanyFacts = facts
	}

	if metrics, err := s.client.GetFinancialMetrics(ctx, ticker); err != nil {
		logger.Warnf("financial metrics unavailable for %s: %v", ticker, err)
	} else {
		data.Metrics = metrics
	}

	if statements, err := s.client.GetIncomeStatements(ctx, ticker, 4); err != nil {
		logger.Warnf("income statements unavailable for %s: %v", ticker, err)
	} else {
		data.IncomeStatements = statements
	}

	data.Figures = deriveFigures(data)

	s.mu.Lock()
	s.cache[ticker] = cacheEntry{data: data, fetched: time.Now()}
	s.mu.Unlock()

	return data, nil
}

func deriveFigures(data *StockData) *Figures {
	f := &Figures{
		ROA:                "n/a",
		NetMargin:          "n/a",
		RevenuePerEmployee: "n/a",
		EstimatedChurn:     "n/a",
		LoyaltyMembers:     "n/a",
		FundedBacklog:      "n/a",
	}

	if data.Metrics != nil {
		f.ROA = formatPercent(data.Metrics.ReturnOnAssets)
		f.NetMargin = formatPercent(data.Metrics.NetMargin)
	}

	var revenue float64
	if len(data.IncomeStatements) > 0 {
		revenue = data.IncomeStatements[0].Revenue
	}

	if data.CompanyFacts != nil && data.CompanyFacts.NumberOfEmployees > 0 && revenue > 0 {
		f.RevenuePerEmployee = FormatMoney(revenue / float64(data.CompanyFacts.NumberOfEmployees))
	}

	profile := profileForSector(sectorOf(data))
	if profile != nil {
		f.EstimatedChurn = formatPercent(profile.ChurnRate)
		if revenue > 0 {
			if profile.RevenuePerMember > 0 {
				f.LoyaltyMembers = formatCount(revenue / profile.RevenuePerMember)
			}
			if profile.BacklogRatio > 0 {
				f.FundedBacklog = FormatMoney(revenue * profile.BacklogRatio)
			}
		}
	}

	return f
}

func sectorOf(data *StockData) string {
	if data.CompanyFacts == nil {
		return ""
	}
	return data.CompanyFacts.Sector
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func formatCount(n float64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.1fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.1fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

// FormatMoney renders a dollar figure the way the pages quote them.
func FormatMoney(n float64) string {
	switch {
	case n >= 1e12:
		return fmt.Sprintf("$%.2fT", n/1e12)
	case n >= 1e9:
		return fmt.Sprintf("$%.2fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("$%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("$%.1fK", n/1e3)
	default:
		return fmt.Sprintf("$%.2f", n)
	}
}
