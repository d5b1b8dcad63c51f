package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

func TestExtractTicker(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What is AAPL's ROA?", "AAPL"},
		{"compare MSFT and GOOG", "MSFT"},
		{"what is a good ROA for a bank?", ""},
		{"Is the IPO market healthy?", ""},
		{"Tell me about F", "F"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTicker(tt.query), "query: %q", tt.query)
	}
}

func TestToolForTaskMatchesByDescription(t *testing.T) {
	tools := []Tool{
		&snapshotTool{},
		&metricsTool{},
		&sectorTool{},
	}

	pick := toolForTask(tools, research.Task{Description: "Review profitability metrics"})
	require.NotNil(t, pick)
	assert.Equal(t, "financial_metrics", pick.Name())

	pick = toolForTask(tools, research.Task{Description: "Check the sector outlook"})
	assert.Equal(t, "sector_outlook", pick.Name())

	// Nothing matches: fall back to the first registered tool.
	pick = toolForTask(tools, research.Task{Description: "Summarize everything"})
	assert.Equal(t, "stock_snapshot", pick.Name())
}

func TestToolForTaskEmptyRegistry(t *testing.T) {
	assert.Nil(t, toolForTask(nil, research.Task{Description: "anything"}))
}

func TestParsePlanJSON(t *testing.T) {
	descs, err := parsePlanJSON("```json\n[\"Fetch data\",\"Analyze\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fetch data", "Analyze"}, descs)

	_, err = parsePlanJSON("no plan here")
	assert.Error(t, err)

	_, err = parsePlanJSON(`["", "  "]`)
	assert.Error(t, err)
}
