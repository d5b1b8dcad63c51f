package research

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationHistoryWindow(t *testing.T) {
	c := NewConversation()
	for i := 0; i < 10; i++ {
		c.AppendUser(fmt.Sprintf("q%d", i))
	}

	history := c.History()
	require.Len(t, history, 6)
	assert.Equal(t, "q4", history[0].Content)
	assert.Equal(t, "q9", history[5].Content)
}

func TestConversationHistoryShorterThanWindow(t *testing.T) {
	c := NewConversation()
	c.AppendUser("hello")

	history := c.History()
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)
}

func TestConversationStreamingContentCreatesThenReplaces(t *testing.T) {
	c := NewConversation()
	c.AppendUser("q")

	c.SetStreamingContent("Hel")
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hel", msgs[1].Content)

	c.SetStreamingContent("Hello world")
	msgs = c.Messages()
	require.Len(t, msgs, 2, "subsequent chunks update the same message")
	assert.Equal(t, "Hello world", msgs[1].Content)
}

func TestConversationAttachRunMeta(t *testing.T) {
	c := NewConversation()
	c.SetStreamingContent("answer")
	c.AttachRunMeta(
		[]Task{{ID: "1", Description: "Fetch data", Status: TaskCompleted}},
		[]ToolResult{{Tool: "snapshot"}},
	)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Tasks, 1)
	require.Len(t, msgs[0].ToolResults, 1)
}

func TestConversationAttachRunMetaWithoutStreamingMessage(t *testing.T) {
	c := NewConversation()
	c.AttachRunMeta([]Task{{ID: "1"}}, nil)
	assert.Empty(t, c.Messages())
}

func TestConversationLoadingGuard(t *testing.T) {
	c := NewConversation()
	require.True(t, c.beginRun())
	assert.True(t, c.Loading())
	assert.False(t, c.beginRun(), "second begin while in flight is a no-op")

	c.endRun()
	assert.False(t, c.Loading())
	assert.True(t, c.beginRun())
}

func TestConversationEndRunDetachesStreamingMessage(t *testing.T) {
	c := NewConversation()
	require.True(t, c.beginRun())
	c.SetStreamingContent("first answer")
	c.endRun()

	require.True(t, c.beginRun())
	c.SetStreamingContent("second answer")

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first answer", msgs[0].Content, "finished message stays immutable")
	assert.Equal(t, "second answer", msgs[1].Content)
}
