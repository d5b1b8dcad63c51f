package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeUpstream(t *testing.T, hits *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/prices/snapshot":
			fmt.Fprint(w, `{"snapshot":{"ticker":"AAPL","price":190.5,"market_cap":2900000000000,"day_change":1.2,"day_change_percent":0.63}}`)
		case "/company/facts":
			fmt.Fprint(w, `{"company_facts":{"name":"Apple Inc.","ticker":"AAPL","sector":"Technology","industry":"Consumer Electronics","number_of_employees":161000}}`)
		case "/financial-metrics":
			fmt.Fprint(w, `{"financial_metrics":[{"ticker":"AAPL","return_on_assets":0.283,"net_margin":0.253,"revenue_growth":0.02}]}`)
		case "/financials/income-statements":
			fmt.Fprint(w, `{"income_statements":[{"ticker":"AAPL","fiscal_period":"FY","report_period":"2024-09-28","revenue":391035000000,"net_income":93736000000}]}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestServiceGetStockAssemblesPayload(t *testing.T) {
	var hits int64
	server := newFakeUpstream(t, &hits)
	defer server.Close()

	svc := NewService(NewClient(server.URL, "test-key", time.Second), time.Minute)
	data, err := svc.GetStock(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", data.Snapshot.Ticker)
	assert.Equal(t, "Apple Inc.", data.CompanyFacts.Name)
	require.NotNil(t, data.Metrics)
	require.Len(t, data.IncomeStatements, 1)

	require.NotNil(t, data.Figures)
	assert.Equal(t, "28.3%", data.Figures.ROA)
	assert.Equal(t, "25.3%", data.Figures.NetMargin)
	// 391,035,000,000 / 161,000 employees.
	assert.Equal(t, "$2.43M", data.Figures.RevenuePerEmployee)
	// Technology profile: 6% churn, revenue / $180 per member.
	assert.Equal(t, "6.0%", data.Figures.EstimatedChurn)
	assert.Equal(t, "2.2B", data.Figures.LoyaltyMembers)
}

func TestServiceGetStockUsesCache(t *testing.T) {
	var hits int64
	server := newFakeUpstream(t, &hits)
	defer server.Close()

	svc := NewService(NewClient(server.URL, "test-key", time.Second), time.Minute)

	_, err := svc.GetStock(context.Background(), "AAPL")
	require.NoError(t, err)
	first := atomic.LoadInt64(&hits)

	_, err = svc.GetStock(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, atomic.LoadInt64(&hits), "second fetch must come from cache")
}

func TestServiceGetStockRequiresTicker(t *testing.T) {
	svc := NewService(NewClient("http://unused", "", time.Second), time.Minute)
	_, err := svc.GetStock(context.Background(), "  ")
	assert.Error(t, err)
}

func TestServiceGetStockSnapshotFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(NewClient(server.URL, "", time.Second), time.Minute)
	_, err := svc.GetStock(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestSectorFAQInterpolatesFigures(t *testing.T) {
	profile, ok := SectorBySlug("technology")
	require.True(t, ok)

	data := &StockData{
		Snapshot:     &Snapshot{Ticker: "AAPL"},
		CompanyFacts: &CompanyFacts{Name: "Apple Inc.", Sector: "Technology"},
		Figures: &Figures{
			ROA:            "28.3%",
			EstimatedChurn: "6.0%",
			LoyaltyMembers: "2.2B",
			FundedBacklog:  "$136.86B",
		},
	}

	faq := SectorFAQ(profile, data)
	require.Len(t, faq, 3)
	assert.Contains(t, faq[0].Answer, "28.3%")
	assert.Contains(t, faq[1].Answer, "2.2B")
	assert.Contains(t, faq[2].Answer, "$136.86B")
}

func TestSectorBySlugUnknown(t *testing.T) {
	_, ok := SectorBySlug("does-not-exist")
	assert.False(t, ok)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$2.90T", FormatMoney(2.9e12))
	assert.Equal(t, "$391.04B", FormatMoney(391035000000))
	assert.Equal(t, "$2.43M", FormatMoney(2428788.8))
	assert.Equal(t, "$950.00", FormatMoney(950))
}
