package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chalique/botflow/pkg/persistence"
	"github.com/chalique/botflow/pkg/persistence/file"
	"github.com/chalique/botflow/pkg/persistence/postgresql"
	"github.com/chalique/botflow/pkg/persistence/redisstore"
)

// NewPersistence creates the primary store from a database URL.
// postgres:// URLs get the SQL backend; everything else is treated as a
// file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect database: %w", err))
		}

		return store
	}

	return file.NewPersistence(databaseURL)
}

// WithSessionStore overlays a Redis session store on the base persistence
// when a sessions URL is configured, leaving flows and bots on the base.
func WithSessionStore(ctx context.Context, base persistence.Persistence, sessionsURL string, logger *slog.Logger) persistence.Persistence {
	if sessionsURL == "" {
		return base
	}

	store, err := redisstore.NewStore(ctx, sessionsURL, logger)
	if err != nil {
		panic(fmt.Errorf("failed to connect session store: %w", err))
	}

	return persistence.NewComposite(base, store)
}
