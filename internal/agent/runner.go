package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

// Runner executes one autonomous research run and emits the wire event
// protocol: understand, plan + tasks, execute with task lifecycle events,
// reflect, then streamed answer chunks and a terminal complete/error.
type Runner struct {
	llm      LLM
	tools    []Tool
	maxTasks int
}

func NewRunner(llm LLM, tools []Tool, maxTasks int) *Runner {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	return &Runner{llm: llm, tools: tools, maxTasks: maxTasks}
}

// Run streams the events for one query. The channel is closed when the run
// finishes or the context is canceled. Every run ends with a complete or
// error event unless canceled; a failed plan or answer call degrades to
// canned output rather than breaking the stream.
func (r *Runner) Run(ctx context.Context, query string, history []research.HistoryEntry) <-chan research.Event {
	events := make(chan research.Event, 16)

	go func() {
		defer close(events)

		emit := func(ev research.Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(research.Event{Type: research.EventPhase, Phase: research.PhaseUnderstand}) {
			return
		}

		ticker := ExtractTicker(query)

		if !emit(research.Event{Type: research.EventPhase, Phase: research.PhasePlan}) {
			return
		}
		tasks, err := r.llm.PlanTasks(ctx, query, r.maxTasks)
		if err != nil || len(tasks) == 0 {
			if err != nil {
				logger.Warnf("plan call failed, using default plan: %v", err)
			}
			tasks = defaultPlan(ticker)
		}
		if !emit(research.Event{Type: research.EventPlan, Tasks: tasks}) {
			return
		}

		if !emit(research.Event{Type: research.EventPhase, Phase: research.PhaseExecute}) {
			return
		}

		var findings strings.Builder
		for i := range tasks {
			task := tasks[i]
			if !emit(research.Event{Type: research.EventTaskStart, Task: &task}) {
				return
			}

			var toolResults []research.ToolResult
			if tool := toolForTask(r.tools, task); tool != nil && ticker != "" {
				result, err := tool.Run(ctx, ticker)
				if err != nil {
					logger.Warnf("tool %s failed for %s: %v", tool.Name(), ticker, err)
				} else {
					toolResults = append(toolResults, research.ToolResult{
						Tool:   tool.Name(),
						Result: result,
					})
					fmt.Fprintf(&findings, "## %s\n%s\n\n", tool.Name(), result)
				}
			}

			if !emit(research.Event{Type: research.EventTaskComplete, Task: &task, ToolResults: toolResults}) {
				return
			}
		}

		if !emit(research.Event{Type: research.EventPhase, Phase: research.PhaseReflect}) {
			return
		}
		if !emit(research.Event{Type: research.EventPhase, Phase: research.PhaseAnswer}) {
			return
		}

		answerErr := r.llm.StreamAnswer(ctx, query, history, findings.String(), func(chunk string) error {
			if !emit(research.Event{Type: research.EventAnswerChunk, Chunk: chunk}) {
				return ctx.Err()
			}
			return nil
		})
		if answerErr != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warnf("answer call failed: %v", answerErr)
			if findings.Len() == 0 {
				emit(research.Event{Type: research.EventError})
				return
			}
			// Degrade to a formatted summary of what the tools found.
			if !emit(research.Event{Type: research.EventAnswerChunk, Chunk: fallbackAnswer(ticker, findings.String())}) {
				return
			}
		}

		emit(research.Event{Type: research.EventComplete})
	}()

	return events
}

func defaultPlan(ticker string) []research.Task {
	subject := ticker
	if subject == "" {
		subject = "the company"
	}
	return []research.Task{
		{ID: "1", Description: fmt.Sprintf("Fetch the latest price snapshot for %s", subject), Status: research.TaskPending},
		{ID: "2", Description: fmt.Sprintf("Review profitability metrics for %s", subject), Status: research.TaskPending},
		{ID: "3", Description: fmt.Sprintf("Check the sector outlook around %s", subject), Status: research.TaskPending},
	}
}

func fallbackAnswer(ticker, findings string) string {
	subject := ticker
	if subject == "" {
		subject = "your query"
	}
	return fmt.Sprintf("The research assistant is temporarily unavailable, but here is the raw data collected for %s:\n\n%s", subject, findings)
}
