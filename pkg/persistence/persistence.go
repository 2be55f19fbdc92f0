// Package persistence provides the storage abstraction for flows, bots and
// conversation sessions.
package persistence

import (
	"context"
	"time"

	"github.com/chalique/botflow/pkg/models"
)

// Persistence bundles the repositories a deployment provides. The flow
// interpreter treats absence of any record as a normal "not found", never a
// fault.
type Persistence interface {
	Flows() FlowRepository
	Bots() BotRepository
	Sessions() SessionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores authored conversation flows.
type FlowRepository interface {
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	FlowsByBot(ctx context.Context, botID string) ([]*models.Flow, error)

	// DefaultFlowByBot returns the active default flow for a bot, or
	// ErrFlowNotFound when none is configured.
	DefaultFlowByBot(ctx context.Context, botID string) (*models.Flow, error)

	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error

	// SetDefaultFlow marks one flow as the bot's default and clears the
	// flag on every other flow of the same bot.
	SetDefaultFlow(ctx context.Context, botID, flowID string) error
}

// BotRepository stores the bots the platform drives.
type BotRepository interface {
	BotByID(ctx context.Context, id string) (*models.Bot, error)
	BotByToken(ctx context.Context, token string) (*models.Bot, error)
	Bots(ctx context.Context) ([]*models.Bot, error)
	SaveBot(ctx context.Context, bot *models.Bot) error
	DeleteBot(ctx context.Context, id string) error
}

// SessionRepository stores conversation session snapshots keyed by
// (bot, user, session). A missing session returns (nil, nil): first turns
// legitimately have no prior state.
//
// The interpreter performs exactly one read at turn start and one write at
// turn end; implementations must serialize concurrent access per key to
// avoid lost updates.
type SessionRepository interface {
	Session(ctx context.Context, botID, userID, sessionID string) (*models.Session, error)
	PutSession(ctx context.Context, session *models.Session) error

	// DeleteIdleSessions removes sessions not updated since the given
	// time and reports how many were removed. Retention is a store
	// concern; the interpreter never deletes sessions.
	DeleteIdleSessions(ctx context.Context, olderThan time.Time) (int, error)
}
