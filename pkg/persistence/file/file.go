// Package file provides file-based persistence for flows, bots and sessions.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/chalique/botflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system. Each record is a JSON document under the root directory.
type Persistence struct {
	root        string
	flowRepo    *FlowRepository
	botRepo     *BotRepository
	sessionRepo *SessionRepository
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		flowRepo:    NewFlowRepository(cleanRoot),
		botRepo:     NewBotRepository(cleanRoot),
		sessionRepo: NewSessionRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Flows returns the flow repository implementation for file persistence.
func (fp *Persistence) Flows() persistence.FlowRepository {
	return fp.flowRepo
}

// Bots returns the bot repository implementation for file persistence.
func (fp *Persistence) Bots() persistence.BotRepository {
	return fp.botRepo
}

// Sessions returns the session repository implementation for file persistence.
func (fp *Persistence) Sessions() persistence.SessionRepository {
	return fp.sessionRepo
}
