package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

const botColumns = `
	id
  , token
  , username
  , first_name
  , owner_chat_id
  , active
  , created_at
  , updated_at
`

// BotRepository handles bot-related database operations.
type BotRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBotRepository creates a new bot repository.
func NewBotRepository(db *sql.DB, logger *slog.Logger) *BotRepository {
	return &BotRepository{db: db, logger: logger}
}

func (r *BotRepository) BotByID(ctx context.Context, id string) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`

	bot, err := scanBot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewBotError("BotByID", id, persistence.ErrBotNotFound)
		}

		return nil, persistence.NewBotError("BotByID", id, err)
	}

	return bot, nil
}

func (r *BotRepository) BotByToken(ctx context.Context, token string) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE token = $1`

	bot, err := scanBot(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewBotError("BotByToken", "", persistence.ErrBotNotFound)
		}

		return nil, persistence.NewBotError("BotByToken", "", err)
	}

	return bot, nil
}

func (r *BotRepository) Bots(ctx context.Context) ([]*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewBotError("Bots", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	bots := make([]*models.Bot, 0)

	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, persistence.NewBotError("Bots", "", err)
		}

		bots = append(bots, bot)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewBotError("Bots", "", err)
	}

	return bots, nil
}

func (r *BotRepository) SaveBot(ctx context.Context, bot *models.Bot) error {
	query := `
		INSERT INTO bots (id, token, username, first_name, owner_chat_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			owner_chat_id = EXCLUDED.owner_chat_id,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	createdAt := bot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		bot.ID, bot.Token, bot.Username, bot.FirstName, bot.OwnerChatID, bot.Active,
		createdAt, time.Now().UTC())
	if err != nil {
		return persistence.NewBotError("SaveBot", bot.ID, err)
	}

	return nil
}

func (r *BotRepository) DeleteBot(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return persistence.NewBotError("DeleteBot", id, err)
	}

	return nil
}

func scanBot(row rowScanner) (*models.Bot, error) {
	var bot models.Bot

	err := row.Scan(&bot.ID, &bot.Token, &bot.Username, &bot.FirstName,
		&bot.OwnerChatID, &bot.Active, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &bot, nil
}
