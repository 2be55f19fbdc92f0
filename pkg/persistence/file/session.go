package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chalique/botflow/pkg/models"
)

// SessionRepository handles session-related file operations. A mutex
// serializes access: a turn reads a session once and writes it once, and
// two turns for the same key must not interleave those writes.
type SessionRepository struct {
	root string // File system root for storing sessions
	mu   sync.Mutex
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(root string) *SessionRepository {
	return &SessionRepository{root: root}
}

func (sr *SessionRepository) dir() string {
	return filepath.Join(sr.root, "sessions")
}

func (sr *SessionRepository) fileName(botID, userID, sessionID string) string {
	return fmt.Sprintf("%s__%s__%s.json", botID, userID, sessionID)
}

// Session loads a session snapshot, returning (nil, nil) when none exists.
func (sr *SessionRepository) Session(_ context.Context, botID, userID, sessionID string) (*models.Session, error) {
	for _, id := range []string{botID, userID, sessionID} {
		if err := validateID(id); err != nil {
			return nil, fmt.Errorf("invalid session key: %w", err)
		}
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(sr.dir(), sr.fileName(botID, userID, sessionID)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// PutSession writes a session snapshot, overwriting any previous one for
// the same key.
func (sr *SessionRepository) PutSession(_ context.Context, session *models.Session) error {
	for _, id := range []string{session.BotID, session.UserID, session.SessionID} {
		if err := validateID(id); err != nil {
			return fmt.Errorf("invalid session key: %w", err)
		}
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if err := os.MkdirAll(sr.dir(), 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	filePath := filepath.Join(sr.dir(), sr.fileName(session.BotID, session.UserID, session.SessionID))
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// DeleteIdleSessions removes sessions not updated since olderThan and
// reports how many were removed.
func (sr *SessionRepository) DeleteIdleSessions(_ context.Context, olderThan time.Time) (int, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, err := os.Stat(sr.dir()); os.IsNotExist(err) {
		return 0, nil
	}

	root := os.DirFS(sr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return 0, fmt.Errorf("failed to list session files: %w", err)
	}

	removed := 0

	for _, name := range jsonFiles {
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return removed, fmt.Errorf("failed to read session file %s: %w", name, err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			// An unreadable snapshot is stale by definition.
			if err := os.Remove(filepath.Join(sr.dir(), name)); err != nil {
				return removed, fmt.Errorf("failed to remove session file %s: %w", name, err)
			}

			removed++

			continue
		}

		if session.UpdatedAt.After(olderThan) {
			continue
		}

		if err := os.Remove(filepath.Join(sr.dir(), name)); err != nil {
			return removed, fmt.Errorf("failed to remove session file %s: %w", name, err)
		}

		removed++
	}

	return removed, nil
}
