// Package postgresql provides PostgreSQL persistence for bots, flows and
// conversation sessions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/chalique/botflow/pkg/persistence"
	"github.com/chalique/botflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	flowRepo    *FlowRepository
	botRepo     *BotRepository
	sessionRepo *SessionRepository
}

// NewPersistence connects, runs migrations and returns a ready store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		flowRepo:    NewFlowRepository(database, logger),
		botRepo:     NewBotRepository(database, logger),
		sessionRepo: NewSessionRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Flows() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) Bots() persistence.BotRepository {
	return p.botRepo
}

func (p *Persistence) Sessions() persistence.SessionRepository {
	return p.sessionRepo
}
