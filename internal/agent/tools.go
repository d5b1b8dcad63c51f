package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/SebastianBO/quant-platform-sub005/internal/market"
	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

// Tool is one research capability the runner can execute for a plan task.
type Tool interface {
	Name() string
	// Matches reports whether the tool should handle a task description.
	Matches(description string) bool
	Run(ctx context.Context, ticker string) (json.RawMessage, error)
}

// DefaultTools is the registry used by the server, all backed by the market
// service. Order matters: the first match wins, the first tool is the
// fallback.
func DefaultTools(svc *market.Service) []Tool {
	return []Tool{
		&snapshotTool{svc: svc},
		&metricsTool{svc: svc},
		&sectorTool{svc: svc},
	}
}

type snapshotTool struct {
	svc *market.Service
}

func (t *snapshotTool) Name() string { return "stock_snapshot" }

func (t *snapshotTool) Matches(description string) bool {
	return containsAny(description, "snapshot", "price", "quote", "fetch")
}

func (t *snapshotTool) Run(ctx context.Context, ticker string) (json.RawMessage, error) {
	data, err := t.svc.GetStock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Snapshot     *market.Snapshot     `json:"snapshot"`
		CompanyFacts *market.CompanyFacts `json:"companyFacts"`
	}{data.Snapshot, data.CompanyFacts})
}

type metricsTool struct {
	svc *market.Service
}

func (t *metricsTool) Name() string { return "financial_metrics" }

func (t *metricsTool) Matches(description string) bool {
	return containsAny(description, "metric", "profit", "margin", "roa", "return", "income", "revenue", "earnings")
}

func (t *metricsTool) Run(ctx context.Context, ticker string) (json.RawMessage, error) {
	data, err := t.svc.GetStock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Metrics          *market.FinancialMetrics `json:"metrics"`
		IncomeStatements []market.IncomeStatement `json:"incomeStatements"`
		Figures          *market.Figures          `json:"figures"`
	}{data.Metrics, data.IncomeStatements, data.Figures})
}

type sectorTool struct {
	svc *market.Service
}

func (t *sectorTool) Name() string { return "sector_outlook" }

func (t *sectorTool) Matches(description string) bool {
	return containsAny(description, "sector", "industry", "peer", "outlook", "churn", "backlog", "loyalty")
}

func (t *sectorTool) Run(ctx context.Context, ticker string) (json.RawMessage, error) {
	data, err := t.svc.GetStock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if data.CompanyFacts == nil {
		return json.Marshal(map[string]string{"note": "sector unknown for " + ticker})
	}
	for _, profile := range market.Sectors() {
		if strings.EqualFold(profile.Name, data.CompanyFacts.Sector) {
			return json.Marshal(struct {
				Profile market.SectorProfile `json:"profile"`
				FAQ     []market.FAQItem     `json:"faq"`
			}{profile, market.SectorFAQ(&profile, data)})
		}
	}
	return json.Marshal(map[string]string{"note": "no profile for sector " + data.CompanyFacts.Sector})
}

func containsAny(s string, words ...string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// toolForTask picks the first matching tool, falling back to the first in
// the registry.
func toolForTask(tools []Tool, task research.Task) Tool {
	if len(tools) == 0 {
		return nil
	}
	for _, tool := range tools {
		if tool.Matches(task.Description) {
			return tool
		}
	}
	return tools[0]
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Words that look like tickers but are ordinary prose in research queries.
var tickerStopwords = map[string]bool{
	"A": true, "I": true, "AI": true, "ETF": true, "CEO": true, "CFO": true,
	"IPO": true, "ROA": true, "ROE": true, "EPS": true, "FAQ": true,
	"THE": true, "USD": true, "VS": true, "PE": true, "TTM": true,
}

// ExtractTicker pulls the first plausible ticker symbol out of a query,
// or "" when none is found.
func ExtractTicker(query string) string {
	for _, candidate := range tickerPattern.FindAllString(query, -1) {
		if !tickerStopwords[candidate] {
			return candidate
		}
	}
	return ""
}
