// Package market fetches per-ticker financial data from the upstream
// provider and derives the display figures the marketing pages interpolate.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the upstream financial-data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Snapshot is the latest price snapshot for a ticker.
type Snapshot struct {
	Ticker           string  `json:"ticker"`
	Price            float64 `json:"price"`
	MarketCap        float64 `json:"market_cap"`
	DayChange        float64 `json:"day_change"`
	DayChangePercent float64 `json:"day_change_percent"`
}

// CompanyFacts is the descriptive record for a listed company.
type CompanyFacts struct {
	Name               string `json:"name"`
	Ticker             string `json:"ticker"`
	Sector             string `json:"sector"`
	Industry           string `json:"industry"`
	NumberOfEmployees  int64  `json:"number_of_employees"`
	WebsiteURL         string `json:"website_url"`
	ListingDate        string `json:"listing_date"`
	SECFilingsURL      string `json:"sec_filings_url"`
	HeadquartersCity   string `json:"headquarters_city"`
	HeadquartersState  string `json:"headquarters_state"`
	ExchangeShortName  string `json:"exchange_short_name"`
	IsActive           bool   `json:"is_active"`
	WeightedSharesOut  float64 `json:"weighted_average_shares"`
}

// FinancialMetrics is the trailing-twelve-month metrics row.
type FinancialMetrics struct {
	Ticker            string  `json:"ticker"`
	ReturnOnAssets    float64 `json:"return_on_assets"`
	ReturnOnEquity    float64 `json:"return_on_equity"`
	NetMargin         float64 `json:"net_margin"`
	OperatingMargin   float64 `json:"operating_margin"`
	RevenueGrowth     float64 `json:"revenue_growth"`
	DebtToEquity      float64 `json:"debt_to_equity"`
	PriceToEarnings   float64 `json:"price_to_earnings_ratio"`
	PriceToBook       float64 `json:"price_to_book_ratio"`
	FreeCashFlowYield float64 `json:"free_cash_flow_yield"`
}

// IncomeStatement is one reported income statement period.
type IncomeStatement struct {
	Ticker          string  `json:"ticker"`
	ReportPeriod    string  `json:"report_period"`
	FiscalPeriod    string  `json:"fiscal_period"`
	Revenue         float64 `json:"revenue"`
	OperatingIncome float64 `json:"operating_income"`
	NetIncome       float64 `json:"net_income"`
	EPS             float64 `json:"earnings_per_share"`
}

type snapshotEnvelope struct {
	Snapshot Snapshot `json:"snapshot"`
}

type companyFactsEnvelope struct {
	CompanyFacts CompanyFacts `json:"company_facts"`
}

type metricsEnvelope struct {
	FinancialMetrics []FinancialMetrics `json:"financial_metrics"`
}

type incomeStatementsEnvelope struct {
	IncomeStatements []IncomeStatement `json:"income_statements"`
}

// GetSnapshot fetches the latest price snapshot.
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	var env snapshotEnvelope
	if err := c.get(ctx, "/prices/snapshot?ticker="+ticker, &env); err != nil {
		return nil, err
	}
	return &env.Snapshot, nil
}

// GetCompanyFacts fetches the company facts record.
func (c *Client) GetCompanyFacts(ctx context.Context, ticker string) (*CompanyFacts, error) {
	var env companyFactsEnvelope
	if err := c.get(ctx, "/company/facts?ticker="+ticker, &env); err != nil {
		return nil, err
	}
	return &env.CompanyFacts, nil
}

// GetFinancialMetrics fetches the latest TTM metrics row, or nil when the
// provider has none for the ticker.
func (c *Client) GetFinancialMetrics(ctx context.Context, ticker string) (*FinancialMetrics, error) {
	var env metricsEnvelope
	if err := c.get(ctx, "/financial-metrics?ticker="+ticker+"&period=ttm&limit=1", &env); err != nil {
		return nil, err
	}
	if len(env.FinancialMetrics) == 0 {
		return nil, nil
	}
	return &env.FinancialMetrics[0], nil
}

// GetIncomeStatements fetches up to limit annual income statements, newest
// first.
func (c *Client) GetIncomeStatements(ctx context.Context, ticker string, limit int) ([]IncomeStatement, error) {
	var env incomeStatementsEnvelope
	path := fmt.Sprintf("/financials/income-statements?ticker=%s&period=annual&limit=%d", ticker, limit)
	if err := c.get(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.IncomeStatements, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("market API error [%d]: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
