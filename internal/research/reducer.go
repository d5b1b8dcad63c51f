package research

import "strings"

// RunState is the reducer state for a single research request: the current
// phase, the task list from the latest plan, the collected tool results and
// the accumulated answer text. Apply trusts the upstream event source and
// performs no transition validation.
type RunState struct {
	Phase       Phase
	Tasks       []Task
	ToolResults []ToolResult
	Visited     []Phase

	answer strings.Builder
}

func NewRunState() *RunState {
	return &RunState{Phase: PhaseIdle}
}

// Answer returns the answer text accumulated so far.
func (s *RunState) Answer() string {
	return s.answer.String()
}

// Apply folds one event into the state.
func (s *RunState) Apply(ev Event) {
	switch ev.Type {
	case EventPhase:
		// Any phase value is accepted, in any order.
		s.Phase = ev.Phase
		s.Visited = append(s.Visited, ev.Phase)

	case EventPlan:
		// A plan replaces the task list and resets per-run accumulation;
		// at most one plan per run is expected.
		tasks := make([]Task, len(ev.Tasks))
		copy(tasks, ev.Tasks)
		for i := range tasks {
			if tasks[i].Status == "" {
				tasks[i].Status = TaskPending
			}
		}
		s.Tasks = tasks
		s.ToolResults = nil
		s.Visited = nil

	case EventTaskStart:
		if ev.Task == nil {
			return
		}
		if i := s.taskIndex(ev.Task.ID); i >= 0 {
			s.Tasks[i].Status = TaskRunning
		}
		// Unknown id: benign race, ignore.

	case EventTaskComplete:
		if ev.Task == nil {
			return
		}
		i := s.taskIndex(ev.Task.ID)
		if i < 0 {
			return
		}
		if s.Tasks[i].Status == TaskCompleted {
			// Replay of an already-applied completion; results stay deduped.
			return
		}
		s.Tasks[i].Status = TaskCompleted
		s.ToolResults = append(s.ToolResults, ev.ToolResults...)

	case EventAnswerChunk:
		s.answer.WriteString(ev.Chunk)

	case EventComplete:
		s.Phase = PhaseComplete

	case EventError:
		s.Phase = PhaseError
	}
}

func (s *RunState) taskIndex(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
