package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

// User-facing fallback texts. Specific failure causes are logged, never
// surfaced in the conversation.
const (
	transportFailureText = "Sorry, the request failed. Please try again."
	streamErrorText      = "Something went wrong. Please try again."
)

// Snapshot is the render-ready view of an in-flight run.
type Snapshot struct {
	Phase    Phase
	Tasks    []Task
	Answer   string
	Messages []Message
	Loading  bool
}

// UpdateFunc receives a snapshot after every applied event.
type UpdateFunc func(Snapshot)

// Client drives one research conversation against an autonomous chat
// endpoint: it posts the query, consumes the event stream and folds it into
// the conversation. One request may stream at a time; a second Submit while
// one is in flight is a no-op.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	conv       *Conversation
	onUpdate   UpdateFunc
}

func NewClient(endpoint, model string) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		// No client-side timeout: stream lifetime is governed by the
		// caller's context.
		httpClient: &http.Client{},
		conv:       NewConversation(),
	}
}

// OnUpdate registers the snapshot callback. Must be set before Submit.
func (c *Client) OnUpdate(fn UpdateFunc) {
	c.onUpdate = fn
}

// Conversation exposes the message store backing this client.
func (c *Client) Conversation() *Conversation {
	return c.conv
}

type chatRequest struct {
	Query               string         `json:"query"`
	ConversationHistory []HistoryEntry `json:"conversationHistory"`
	Model               string         `json:"model"`
	Stream              bool           `json:"stream"`
}

// Submit sends one query and blocks until the stream ends, the context is
// canceled, or the request fails. Every failure resolves to a visible
// assistant message; the returned error is for call-site logging only.
func (c *Client) Submit(ctx context.Context, query string) error {
	if !c.conv.beginRun() {
		return nil
	}

	state := NewRunState()
	defer func() {
		c.conv.endRun()
		c.notify(state)
	}()

	history := c.conv.History()
	c.conv.AppendUser(query)
	c.notify(state)

	body, err := json.Marshal(chatRequest{
		Query:               query,
		ConversationHistory: history,
		Model:               c.model,
		Stream:              true,
	})
	if err != nil {
		return c.fail(state, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return c.fail(state, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(state, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return c.fail(state, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	dec := NewDecoder(resp.Body)
	for {
		ev, err := dec.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				// Abandoned by the caller; no synthetic message.
				return ctx.Err()
			}
			return c.fail(state, fmt.Errorf("stream read failed: %w", err))
		}
		c.apply(state, ev)
	}

	// A stream that closes without a complete/error event leaves the phase
	// wherever the sender last set it; loading still resolves.
	c.conv.AttachRunMeta(state.Tasks, state.ToolResults)
	return nil
}

func (c *Client) apply(state *RunState, ev Event) {
	state.Apply(ev)

	switch ev.Type {
	case EventAnswerChunk:
		c.conv.SetStreamingContent(state.Answer())
	case EventError:
		c.conv.AppendAssistant(streamErrorText)
	}

	c.notify(state)
}

func (c *Client) fail(state *RunState, err error) error {
	logger.Errorf("research request failed: %v", err)
	state.Apply(Event{Type: EventError})
	c.conv.AppendAssistant(transportFailureText)
	return err
}

func (c *Client) notify(state *RunState) {
	if c.onUpdate == nil {
		return
	}
	c.onUpdate(Snapshot{
		Phase:    state.Phase,
		Tasks:    append([]Task(nil), state.Tasks...),
		Answer:   state.Answer(),
		Messages: c.conv.Messages(),
		Loading:  c.conv.Loading(),
	})
}
