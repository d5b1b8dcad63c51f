package agent

import (
	"context"
	"strings"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

// MockLLM is a deterministic LLM used in tests and when no API key is
// configured: the server still answers, just without a model behind it.
type MockLLM struct {
	PlanErr   error
	AnswerErr error
}

func (m *MockLLM) PlanTasks(ctx context.Context, query string, maxTasks int) ([]research.Task, error) {
	if m.PlanErr != nil {
		return nil, m.PlanErr
	}
	tasks := defaultPlan(ExtractTicker(query))
	if len(tasks) > maxTasks {
		tasks = tasks[:maxTasks]
	}
	return tasks, nil
}

func (m *MockLLM) StreamAnswer(ctx context.Context, query string, history []research.HistoryEntry, findings string, emit func(chunk string) error) error {
	if m.AnswerErr != nil {
		return m.AnswerErr
	}

	answer := "Based on the collected data, here is a summary of the findings."
	if findings != "" {
		answer += "\n\n" + findings
	}

	// Stream word by word so consumers exercise real accumulation.
	words := strings.SplitAfter(answer, " ")
	for _, w := range words {
		if err := emit(w); err != nil {
			return err
		}
	}
	return nil
}
