// Package service owns session lifecycle and bridges the agent runner to
// persistence: every streamed run is also written back to the session it
// belongs to.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SebastianBO/quant-platform-sub005/internal/agent"
	"github.com/SebastianBO/quant-platform-sub005/internal/config"
	"github.com/SebastianBO/quant-platform-sub005/internal/model"
	"github.com/SebastianBO/quant-platform-sub005/internal/research"
	"github.com/SebastianBO/quant-platform-sub005/internal/storage"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

type ResearchService struct {
	storage storage.Storage
	runner  *agent.Runner
	cfg     *config.Config
}

func NewResearchService(cfg *config.Config, runner *agent.Runner) *ResearchService {
	var store storage.Storage
	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("failed to initialize storage, falling back to memory: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	s := &ResearchService{
		storage: store,
		runner:  runner,
		cfg:     cfg,
	}

	if cfg.Session.CleanupInterval > 0 && cfg.Session.TTL > 0 {
		go s.cleanupExpiredSessions()
	}

	return s
}

func (s *ResearchService) CreateSession(title string) (*model.Session, error) {
	if title == "" {
		title = "New research " + time.Now().Format("2006-01-02 15:04")
	}

	session := &model.Session{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  make([]model.Message, 0),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *ResearchService) GetSession(sessionID string) (*model.Session, error) {
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *ResearchService) GetSessionMessages(sessionID string) ([]model.Message, error) {
	messages, err := s.storage.GetMessages(sessionID)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = *msg
	}
	return result, nil
}

func (s *ResearchService) AddMessage(sessionID, role, content string) (*model.Message, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	firstMessage := len(session.Messages) == 0

	message := &model.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	if err := s.storage.AddMessage(sessionID, message); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	// First user message names the session, unless it was renamed already.
	if role == research.RoleUser && firstMessage && strings.HasPrefix(session.Title, "New research") {
		session.Title = truncate(content, 40)
		session.UpdatedAt = time.Now()
		if err := s.storage.UpdateSession(session); err != nil {
			logger.Warnf("failed to update session title: %v", err)
		}
	}

	return message, nil
}

func (s *ResearchService) UpdateSessionTitle(sessionID, title string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	session.Title = title
	session.UpdatedAt = time.Now()

	if err := s.storage.UpdateSession(session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *ResearchService) GetAllSessions() ([]*model.Session, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *ResearchService) DeleteSession(sessionID string) error {
	if err := s.storage.DeleteSession(sessionID); err != nil {
		if err == storage.ErrSessionNotFound {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *ResearchService) ClearAllSessions() error {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, session := range sessions {
		if err := s.storage.DeleteSession(session.ID); err != nil {
			logger.Errorf("failed to delete session %s: %v", session.ID, err)
		}
	}
	return nil
}

// StreamResearch runs one autonomous research pass and forwards its events.
// With a session id the user message and the finished assistant message
// (answer plus research metadata) are persisted; without one the run is
// anonymous and nothing is stored.
func (s *ResearchService) StreamResearch(ctx context.Context, sessionID, query string, history []research.HistoryEntry) (<-chan research.Event, <-chan error) {
	events := make(chan research.Event, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errChan)

		if sessionID != "" {
			if _, err := s.GetSession(sessionID); err != nil {
				errChan <- err
				return
			}
			if _, err := s.AddMessage(sessionID, research.RoleUser, query); err != nil {
				errChan <- err
				return
			}
			if len(history) == 0 {
				history = s.sessionHistory(sessionID)
			}
		}

		// Fold the stream into a run state as we forward it, so the
		// persisted assistant message matches what the consumer saw.
		state := research.NewRunState()
		for ev := range s.runner.Run(ctx, query, history) {
			state.Apply(ev)
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}

		if sessionID != "" && state.Answer() != "" {
			assistant := &model.Message{
				ID:          uuid.New().String(),
				SessionID:   sessionID,
				Role:        research.RoleAssistant,
				Content:     state.Answer(),
				Tasks:       state.Tasks,
				ToolResults: state.ToolResults,
				Timestamp:   time.Now(),
			}
			if err := s.storage.AddMessage(sessionID, assistant); err != nil {
				logger.Errorf("failed to persist assistant message: %v", err)
			}
		}
	}()

	return events, errChan
}

// sessionHistory builds the sliding context window from stored messages,
// excluding the just-appended user message.
func (s *ResearchService) sessionHistory(sessionID string) []research.HistoryEntry {
	messages, err := s.storage.GetMessages(sessionID)
	if err != nil {
		return nil
	}
	if len(messages) > 0 {
		messages = messages[:len(messages)-1]
	}

	window := s.cfg.Research.MaxHistoryMessages
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}

	history := make([]research.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, research.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

func (s *ResearchService) cleanupExpiredSessions() {
	ticker := time.NewTicker(s.cfg.Session.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		sessions, err := s.storage.ListSessions()
		if err != nil {
			logger.Errorf("failed to list sessions for cleanup: %v", err)
			continue
		}

		cutoff := time.Now().Add(-s.cfg.Session.TTL)
		for _, session := range sessions {
			if session.UpdatedAt.Before(cutoff) {
				if err := s.storage.DeleteSession(session.ID); err != nil {
					logger.Errorf("failed to delete expired session %s: %v", session.ID, err)
				} else {
					logger.Infof("cleaned up expired session %s", session.ID)
				}
			}
		}
	}
}

func truncate(str string, maxLen int) string {
	runes := []rune(str)
	if len(runes) <= maxLen {
		return str
	}
	return string(runes[:maxLen]) + "..."
}
