package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

type scriptedLLM struct {
	tasks     []research.Task
	planErr   error
	answer    []string
	answerErr error
}

func (s *scriptedLLM) PlanTasks(ctx context.Context, query string, maxTasks int) ([]research.Task, error) {
	return s.tasks, s.planErr
}

func (s *scriptedLLM) StreamAnswer(ctx context.Context, query string, history []research.HistoryEntry, findings string, emit func(string) error) error {
	if s.answerErr != nil {
		return s.answerErr
	}
	for _, chunk := range s.answer {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

type staticTool struct {
	name string
	err  error
}

func (t *staticTool) Name() string                  { return t.name }
func (t *staticTool) Matches(description string) bool { return true }

func (t *staticTool) Run(ctx context.Context, ticker string) (json.RawMessage, error) {
	if t.err != nil {
		return nil, t.err
	}
	return json.RawMessage(`{"ticker":"` + ticker + `"}`), nil
}

func collectEvents(t *testing.T, ch <-chan research.Event) []research.Event {
	t.Helper()
	var events []research.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestRunnerEmitsFullProtocol(t *testing.T) {
	llm := &scriptedLLM{
		tasks:  []research.Task{{ID: "1", Description: "Fetch data", Status: research.TaskPending}},
		answer: []string{"Hello", " world"},
	}
	r := NewRunner(llm, []Tool{&staticTool{name: "stock_snapshot"}}, 5)

	events := collectEvents(t, r.Run(context.Background(), "What about AAPL?", nil))

	// Fold the produced stream through the consumer-side reducer; the two
	// halves must agree on the protocol.
	state := research.NewRunState()
	for _, ev := range events {
		state.Apply(ev)
	}

	assert.Equal(t, research.PhaseComplete, state.Phase)
	assert.Equal(t, "Hello world", state.Answer())
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, research.TaskCompleted, state.Tasks[0].Status)
	require.Len(t, state.ToolResults, 1)
	assert.Equal(t, "stock_snapshot", state.ToolResults[0].Tool)

	var phases []research.Phase
	for _, ev := range events {
		if ev.Type == research.EventPhase {
			phases = append(phases, ev.Phase)
		}
	}
	assert.Equal(t, []research.Phase{
		research.PhaseUnderstand,
		research.PhasePlan,
		research.PhaseExecute,
		research.PhaseReflect,
		research.PhaseAnswer,
	}, phases)
}

func TestRunnerFallsBackToDefaultPlan(t *testing.T) {
	llm := &scriptedLLM{planErr: errors.New("model down"), answer: []string{"ok"}}
	r := NewRunner(llm, nil, 5)

	events := collectEvents(t, r.Run(context.Background(), "AAPL outlook", nil))

	var planned []research.Task
	for _, ev := range events {
		if ev.Type == research.EventPlan {
			planned = ev.Tasks
		}
	}
	require.NotEmpty(t, planned, "plan failure must degrade to a default plan")
	assert.Contains(t, planned[0].Description, "AAPL")
}

func TestRunnerAnswerFailureWithFindingsDegrades(t *testing.T) {
	llm := &scriptedLLM{
		tasks:     []research.Task{{ID: "1", Description: "Fetch data"}},
		answerErr: errors.New("model down"),
	}
	r := NewRunner(llm, []Tool{&staticTool{name: "stock_snapshot"}}, 5)

	state := research.NewRunState()
	for _, ev := range collectEvents(t, r.Run(context.Background(), "AAPL?", nil)) {
		state.Apply(ev)
	}

	assert.Equal(t, research.PhaseComplete, state.Phase)
	assert.NotEmpty(t, state.Answer(), "findings summary stands in for the answer")
}

func TestRunnerAnswerFailureWithoutFindingsErrors(t *testing.T) {
	llm := &scriptedLLM{
		tasks:     []research.Task{{ID: "1", Description: "Fetch data"}},
		answerErr: errors.New("model down"),
	}
	// No ticker in the query, so no tool runs and there are no findings.
	r := NewRunner(llm, []Tool{&staticTool{name: "stock_snapshot"}}, 5)

	state := research.NewRunState()
	for _, ev := range collectEvents(t, r.Run(context.Background(), "what is a good margin?", nil)) {
		state.Apply(ev)
	}

	assert.Equal(t, research.PhaseError, state.Phase)
}

func TestRunnerToolFailureStillCompletesTask(t *testing.T) {
	llm := &scriptedLLM{
		tasks:  []research.Task{{ID: "1", Description: "Fetch data"}},
		answer: []string{"done"},
	}
	r := NewRunner(llm, []Tool{&staticTool{name: "stock_snapshot", err: errors.New("upstream 502")}}, 5)

	state := research.NewRunState()
	for _, ev := range collectEvents(t, r.Run(context.Background(), "AAPL?", nil)) {
		state.Apply(ev)
	}

	require.Len(t, state.Tasks, 1)
	assert.Equal(t, research.TaskCompleted, state.Tasks[0].Status)
	assert.Empty(t, state.ToolResults)
	assert.Equal(t, research.PhaseComplete, state.Phase)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{tasks: []research.Task{{ID: "1", Description: "Fetch data"}}}
	r := NewRunner(llm, nil, 5)

	events := collectEvents(t, r.Run(ctx, "AAPL?", nil))
	for _, ev := range events {
		if ev.Type == research.EventComplete {
			t.Fatalf("canceled run must not emit complete")
		}
	}
}
