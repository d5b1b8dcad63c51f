// Package research implements the autonomous research chat pipeline: the
// wire event protocol, a stream decoder, the phase/task run state reducer,
// the in-memory conversation store and a streaming HTTP client tying them
// together.
package research

import (
	"encoding/json"
	"fmt"
)

// Phase is the coarse-grained stage of an in-flight research request.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUnderstand Phase = "understand"
	PhasePlan       Phase = "plan"
	PhaseExecute    Phase = "execute"
	PhaseReflect    Phase = "reflect"
	PhaseAnswer     Phase = "answer"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// TaskStatus is the lifecycle of one unit of work in a research plan.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
)

// Task is one unit of work in a research plan.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status,omitempty"`
}

// ToolResult is a piece of external data fetched by a task.
type ToolResult struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result,omitempty"`
}

// EventType discriminates the stream event union.
type EventType string

const (
	EventPhase        EventType = "phase"
	EventPlan         EventType = "plan"
	EventTaskStart    EventType = "task-start"
	EventTaskComplete EventType = "task-complete"
	EventAnswerChunk  EventType = "answer-chunk"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Event is one decoded stream event. Only the fields matching Type are set:
// Phase for "phase", Tasks for "plan", Task for "task-start" and
// "task-complete" (plus ToolResults), Chunk for "answer-chunk".
type Event struct {
	Type        EventType
	Phase       Phase
	Tasks       []Task
	Task        *Task
	ToolResults []ToolResult
	Chunk       string
}

// wireEvent is the on-the-wire shape, `{"type": ..., "data": ...}`.
type wireEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type planPayload struct {
	Tasks []Task `json:"tasks"`
}

type taskCompletePayload struct {
	Task   Task `json:"task"`
	Result struct {
		ToolResults []ToolResult `json:"toolResults,omitempty"`
	} `json:"result"`
}

// ParseEvent decodes a single wire payload into a typed Event. Payloads that
// do not match the expected shape for their type are rejected here so the
// decoder can skip them without poisoning the rest of the stream.
func ParseEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("malformed event: %w", err)
	}

	switch w.Type {
	case EventPhase:
		var p Phase
		if err := json.Unmarshal(w.Data, &p); err != nil {
			return Event{}, fmt.Errorf("malformed phase payload: %w", err)
		}
		return Event{Type: EventPhase, Phase: p}, nil

	case EventPlan:
		var p planPayload
		if err := json.Unmarshal(w.Data, &p); err != nil {
			return Event{}, fmt.Errorf("malformed plan payload: %w", err)
		}
		return Event{Type: EventPlan, Tasks: p.Tasks}, nil

	case EventTaskStart:
		var t Task
		if err := json.Unmarshal(w.Data, &t); err != nil {
			return Event{}, fmt.Errorf("malformed task-start payload: %w", err)
		}
		return Event{Type: EventTaskStart, Task: &t}, nil

	case EventTaskComplete:
		var p taskCompletePayload
		if err := json.Unmarshal(w.Data, &p); err != nil {
			return Event{}, fmt.Errorf("malformed task-complete payload: %w", err)
		}
		return Event{Type: EventTaskComplete, Task: &p.Task, ToolResults: p.Result.ToolResults}, nil

	case EventAnswerChunk:
		var s string
		if err := json.Unmarshal(w.Data, &s); err != nil {
			return Event{}, fmt.Errorf("malformed answer-chunk payload: %w", err)
		}
		return Event{Type: EventAnswerChunk, Chunk: s}, nil

	case EventComplete:
		// Payload ignored.
		return Event{Type: EventComplete}, nil

	case EventError:
		// Payload ignored.
		return Event{Type: EventError}, nil

	default:
		return Event{}, fmt.Errorf("unknown event type %q", w.Type)
	}
}

// Encode renders the event back to its wire payload. Used by the producer
// side when emitting the stream.
func (e Event) Encode() ([]byte, error) {
	var data interface{}

	switch e.Type {
	case EventPhase:
		data = e.Phase
	case EventPlan:
		data = planPayload{Tasks: e.Tasks}
	case EventTaskStart:
		data = e.Task
	case EventTaskComplete:
		p := taskCompletePayload{}
		if e.Task != nil {
			p.Task = *e.Task
		}
		p.Result.ToolResults = e.ToolResults
		data = p
	case EventAnswerChunk:
		data = e.Chunk
	case EventComplete, EventError:
		data = nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Type: e.Type, Data: raw})
}
