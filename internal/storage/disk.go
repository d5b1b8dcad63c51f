package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/SebastianBO/quant-platform-sub005/internal/model"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

// DiskStorage keeps sessions as JSON files under dataDir with a bounded
// write-through cache in front. Layout: sessions.json index, one file per
// session under sessions/ and one message list per session under messages/.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Session
	cacheSize int
}

type sessionIndex struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Session),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	for _, dir := range []string{
		d.dataDir,
		filepath.Join(d.dataDir, "sessions"),
		filepath.Join(d.dataDir, "messages"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	if err := d.warmCache(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Info("disk storage initialized")
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) warmCache() error {
	indexes, err := d.readIndex()
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}
		session, err := d.readSession(idx.ID)
		if err != nil {
			logger.Errorf("failed to load session %s: %v", idx.ID, err)
			continue
		}
		d.cache[idx.ID] = session
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

func (d *DiskStorage) sessionPath(sessionID string) string {
	return filepath.Join(d.dataDir, "sessions", sessionID+".json")
}

func (d *DiskStorage) messagesPath(sessionID string) string {
	return filepath.Join(d.dataDir, "messages", sessionID+".json")
}

func (d *DiskStorage) readIndex() ([]sessionIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var indexes []sessionIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}

func (d *DiskStorage) writeIndex(indexes []sessionIndex) error {
	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].UpdatedAt.After(indexes[j].UpdatedAt)
	})
	data, err := json.MarshalIndent(indexes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.indexPath(), data, 0o644)
}

func (d *DiskStorage) readSession(sessionID string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	msgData, err := os.ReadFile(d.messagesPath(sessionID))
	if err == nil {
		if err := json.Unmarshal(msgData, &session.Messages); err != nil {
			logger.Errorf("corrupt message file for session %s: %v", sessionID, err)
			session.Messages = nil
		}
	}

	return &session, nil
}

func (d *DiskStorage) writeSession(session *model.Session) error {
	// Messages live in their own file; keep the session record slim.
	record := *session
	record.Messages = nil

	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.sessionPath(session.ID), data, 0o644); err != nil {
		return err
	}

	msgData, err := json.MarshalIndent(session.Messages, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.messagesPath(session.ID), msgData, 0o644)
}

func (d *DiskStorage) updateIndexEntry(session *model.Session) error {
	indexes, err := d.readIndex()
	if err != nil {
		return err
	}

	entry := sessionIndex{
		ID:        session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	found := false
	for i := range indexes {
		if indexes[i].ID == session.ID {
			indexes[i] = entry
			found = true
			break
		}
	}
	if !found {
		indexes = append(indexes, entry)
	}

	return d.writeIndex(indexes)
}

func (d *DiskStorage) CreateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeSession(session); err != nil {
		return err
	}
	if err := d.updateIndexEntry(session); err != nil {
		return err
	}

	d.admit(session)
	return nil
}

func (d *DiskStorage) GetSession(sessionID string) (*model.Session, error) {
	d.mu.RLock()
	if session, ok := d.cache[sessionID]; ok {
		d.mu.RUnlock()
		return session, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.readSession(sessionID)
	if err != nil {
		return nil, err
	}
	d.admit(session)
	return session, nil
}

func (d *DiskStorage) UpdateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.sessionPath(session.ID)); os.IsNotExist(err) {
		return ErrSessionNotFound
	}

	if err := d.writeSession(session); err != nil {
		return err
	}
	if err := d.updateIndexEntry(session); err != nil {
		return err
	}

	d.admit(session)
	return nil
}

func (d *DiskStorage) DeleteSession(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.sessionPath(sessionID)); os.IsNotExist(err) {
		return ErrSessionNotFound
	}

	os.Remove(d.sessionPath(sessionID))
	os.Remove(d.messagesPath(sessionID))
	delete(d.cache, sessionID)

	indexes, err := d.readIndex()
	if err != nil {
		return err
	}
	kept := indexes[:0]
	for _, idx := range indexes {
		if idx.ID != sessionID {
			kept = append(kept, idx)
		}
	}
	return d.writeIndex(kept)
}

func (d *DiskStorage) ListSessions() ([]*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	indexes, err := d.readIndex()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(indexes))
	for _, idx := range indexes {
		if session, ok := d.cache[idx.ID]; ok {
			sessions = append(sessions, session)
			continue
		}
		session, err := d.readSession(idx.ID)
		if err != nil {
			logger.Errorf("failed to load session %s: %v", idx.ID, err)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (d *DiskStorage) AddMessage(sessionID string, message *model.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(sessionID)
	if err != nil {
		return err
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = time.Now()

	if err := d.writeSession(session); err != nil {
		return err
	}
	return d.updateIndexEntry(session)
}

func (d *DiskStorage) GetMessages(sessionID string) ([]*model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		messages[i] = &session.Messages[i]
	}
	return messages, nil
}

func (d *DiskStorage) UpdateMessage(sessionID string, message *model.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.sessionLocked(sessionID)
	if err != nil {
		return err
	}

	for i := range session.Messages {
		if session.Messages[i].ID == message.ID {
			session.Messages[i] = *message
			session.UpdatedAt = time.Now()
			if err := d.writeSession(session); err != nil {
				return err
			}
			return d.updateIndexEntry(session)
		}
	}

	return ErrMessageNotFound
}

// sessionLocked returns the cached session, loading it from disk on a miss.
// Callers must hold the write lock.
func (d *DiskStorage) sessionLocked(sessionID string) (*model.Session, error) {
	if session, ok := d.cache[sessionID]; ok {
		return session, nil
	}
	session, err := d.readSession(sessionID)
	if err != nil {
		return nil, err
	}
	d.admit(session)
	return session, nil
}

// admit inserts into the cache, evicting an arbitrary entry when full.
// Callers must hold the write lock.
func (d *DiskStorage) admit(session *model.Session) {
	if len(d.cache) >= d.cacheSize {
		for id := range d.cache {
			if id != session.ID {
				delete(d.cache, id)
				break
			}
		}
	}
	d.cache[session.ID] = session
}
