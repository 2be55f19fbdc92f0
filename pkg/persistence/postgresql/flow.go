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
	"github.com/chalique/botflow/pkg/persistence"
)

const flowColumns = `
	id
  , bot_id
  , name
  , description
  , active
  , is_default
  , nodes
  , edges
  , triggers
  , variables
  , created_at
  , updated_at
`

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

func (r *FlowRepository) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	return flow, nil
}

func (r *FlowRepository) FlowsByBot(ctx context.Context, botID string) ([]*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE bot_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, persistence.NewFlowError("FlowsByBot", botID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, persistence.NewFlowError("FlowsByBot", botID, err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewFlowError("FlowsByBot", botID, err)
	}

	return flows, nil
}

func (r *FlowRepository) DefaultFlowByBot(ctx context.Context, botID string) (*models.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE bot_id = $1 AND is_default AND active`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, botID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("DefaultFlowByBot", botID, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("DefaultFlowByBot", botID, err)
	}

	return flow, nil
}

func (r *FlowRepository) SaveFlow(ctx context.Context, flow *models.Flow) error {
	nodes, edges, triggers, variables, err := marshalFlowDocuments(flow)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	query := `
		INSERT INTO flows (id, bot_id, name, description, active, is_default,
			nodes, edges, triggers, variables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			bot_id = EXCLUDED.bot_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			is_default = EXCLUDED.is_default,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			triggers = EXCLUDED.triggers,
			variables = EXCLUDED.variables,
			updated_at = EXCLUDED.updated_at
	`

	createdAt := flow.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, query,
		flow.ID, flow.BotID, flow.Name, flow.Description, flow.Active, flow.Default,
		nodes, edges, triggers, variables, createdAt, time.Now().UTC())
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) DeleteFlow(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	return nil
}

// SetDefaultFlow flips the default flag to the given flow inside one
// transaction, so the bot never has two defaults.
func (r *FlowRepository) SetDefaultFlow(ctx context.Context, botID, flowID string) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewFlowError("SetDefaultFlow", flowID, err)
	}

	result, err := transaction.ExecContext(ctx,
		`UPDATE flows SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND bot_id = $2`,
		flowID, botID)
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewFlowError("SetDefaultFlow", flowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewFlowError("SetDefaultFlow", flowID, err)
	}

	if affected == 0 {
		_ = transaction.Rollback()

		return persistence.NewFlowError("SetDefaultFlow", flowID, persistence.ErrFlowNotFound)
	}

	_, err = transaction.ExecContext(ctx,
		`UPDATE flows SET is_default = FALSE, updated_at = NOW() WHERE bot_id = $1 AND id <> $2 AND is_default`,
		botID, flowID)
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewFlowError("SetDefaultFlow", flowID, err)
	}

	if err := transaction.Commit(); err != nil {
		return persistence.NewFlowError("SetDefaultFlow", flowID, err)
	}

	return nil
}

func marshalFlowDocuments(flow *models.Flow) (nodes, edges, triggers, variables []byte, err error) {
	nodes, err = json.Marshal(flow.Nodes)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edges, err = json.Marshal(flow.Edges)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	triggers, err = json.Marshal(flow.Triggers)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal triggers: %w", err)
	}

	variables, err = json.Marshal(flow.Variables)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	return nodes, edges, triggers, variables, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow      models.Flow
		nodes     []byte
		edges     []byte
		triggers  []byte
		variables []byte
	)

	err := row.Scan(&flow.ID, &flow.BotID, &flow.Name, &flow.Description,
		&flow.Active, &flow.Default, &nodes, &edges, &triggers, &variables,
		&flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &flow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &flow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if err := json.Unmarshal(triggers, &flow.Triggers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triggers: %w", err)
	}

	if err := json.Unmarshal(variables, &flow.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	return &flow, nil
}
