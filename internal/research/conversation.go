package research

import (
	"sync"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the visible conversation. Assistant messages may
// carry the research metadata (tasks, tool results) gathered while they were
// streamed.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Tasks       []Task       `json:"tasks,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// HistoryEntry is the role/content pair sent as conversation context.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered in-memory message list for one chat session.
// It lives only for the life of the process; nothing is persisted. At most
// one message is being streamed into at any time.
type Conversation struct {
	mu            sync.Mutex
	messages      []Message
	streamingID   string
	loading       bool
	historyWindow int
}

func NewConversation() *Conversation {
	return &Conversation{historyWindow: 6}
}

// Loading reports whether a request is currently in flight.
func (c *Conversation) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// beginRun flips the loading guard. Returns false if a request is already in
// flight, in which case the submit is a no-op.
func (c *Conversation) beginRun() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return false
	}
	c.loading = true
	return true
}

// endRun releases the loading guard and detaches the streaming message.
func (c *Conversation) endRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.streamingID = ""
}

// History returns the most recent messages as role/content pairs. The window
// is a fixed sliding window; older context is silently dropped.
func (c *Conversation) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := len(c.messages) - c.historyWindow
	if start < 0 {
		start = 0
	}

	history := make([]HistoryEntry, 0, len(c.messages)-start)
	for _, m := range c.messages[start:] {
		history = append(history, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(content string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := Message{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: content,
	}
	c.messages = append(c.messages, msg)
	return msg
}

// AppendAssistant appends a standalone assistant message, used for the
// synthetic error fallbacks.
func (c *Conversation) AppendAssistant(content string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := Message{
		ID:      uuid.New().String(),
		Role:    RoleAssistant,
		Content: content,
	}
	c.messages = append(c.messages, msg)
	return msg
}

// SetStreamingContent writes the full accumulated answer into the in-flight
// assistant message, creating it on the first chunk. The message content is
// replaced wholesale each time so renderers just show current state.
func (c *Conversation) SetStreamingContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamingID == "" {
		msg := Message{
			ID:      uuid.New().String(),
			Role:    RoleAssistant,
			Content: content,
		}
		c.streamingID = msg.ID
		c.messages = append(c.messages, msg)
		return
	}

	for i := range c.messages {
		if c.messages[i].ID == c.streamingID {
			c.messages[i].Content = content
			return
		}
	}
}

// AttachRunMeta attaches the run's tasks and tool results to the in-flight
// assistant message. No-op when no answer has streamed yet.
func (c *Conversation) AttachRunMeta(tasks []Task, toolResults []ToolResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamingID == "" {
		return
	}
	for i := range c.messages {
		if c.messages[i].ID == c.streamingID {
			c.messages[i].Tasks = append([]Task(nil), tasks...)
			c.messages[i].ToolResults = append([]ToolResult(nil), toolResults...)
			return
		}
	}
}

// Messages returns a snapshot copy of the conversation.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
