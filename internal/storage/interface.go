package storage

import (
	"github.com/SebastianBO/quant-platform-sub005/internal/model"
)

// Storage persists research chat sessions and their messages.
type Storage interface {
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	AddMessage(sessionID string, message *model.Message) error
	GetMessages(sessionID string) ([]*model.Message, error)
	UpdateMessage(sessionID string, message *model.Message) error

	Init() error
	Close() error
}
