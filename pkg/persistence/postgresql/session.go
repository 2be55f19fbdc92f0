package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chalique/botflow/pkg/models"
)

// SessionRepository handles session snapshot storage. Per-key writes are
// serialized by the primary key upsert; no extra locking is needed.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

func (r *SessionRepository) Session(ctx context.Context, botID, userID, sessionID string) (*models.Session, error) {
	query := `
		SELECT bot_id, user_id, session_id, current_node_id, variables, updated_at
		FROM sessions
		WHERE bot_id = $1 AND user_id = $2 AND session_id = $3
	`

	var (
		session   models.Session
		variables []byte
	)

	err := r.db.QueryRowContext(ctx, query, botID, userID, sessionID).Scan(
		&session.BotID, &session.UserID, &session.SessionID,
		&session.CurrentNodeID, &variables, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal(variables, &session.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session variables: %w", err)
	}

	return &session, nil
}

func (r *SessionRepository) PutSession(ctx context.Context, session *models.Session) error {
	variables, err := json.Marshal(session.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal session variables: %w", err)
	}

	query := `
		INSERT INTO sessions (bot_id, user_id, session_id, current_node_id, variables, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bot_id, user_id, session_id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id,
			variables = EXCLUDED.variables,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		session.BotID, session.UserID, session.SessionID,
		session.CurrentNodeID, variables, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *SessionRepository) DeleteIdleSessions(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at <= $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}

	return int(affected), nil
}
