// Package model holds the persisted chat types and the HTTP DTOs.
package model

import (
	"time"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
)

// Message is one persisted chat message. Assistant messages keep the
// research metadata from the run that produced them.
type Message struct {
	ID          string                `json:"id"`
	SessionID   string                `json:"session_id"`
	Role        string                `json:"role"`
	Content     string                `json:"content"`
	Tasks       []research.Task       `json:"tasks,omitempty"`
	ToolResults []research.ToolResult `json:"tool_results,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

// Session is one persisted research conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AutonomousChatRequest is the body of POST /api/chat/autonomous, matching
// what the research client sends.
type AutonomousChatRequest struct {
	Query               string                  `json:"query" binding:"required"`
	ConversationHistory []research.HistoryEntry `json:"conversationHistory"`
	Model               string                  `json:"model"`
	Stream              bool                    `json:"stream"`
	SessionID           string                  `json:"session_id"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
