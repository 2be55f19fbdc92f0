package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

// BotRepository handles bot-related file operations.
type BotRepository struct {
	root string // File system root for storing bots
}

// NewBotRepository creates a new bot repository.
func NewBotRepository(root string) *BotRepository {
	return &BotRepository{root: root}
}

func (br *BotRepository) dir() string {
	return filepath.Join(br.root, "bots")
}

// BotByID loads a single bot from the file system.
func (br *BotRepository) BotByID(_ context.Context, id string) (*models.Bot, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewBotError("BotByID", id, err)
	}

	data, err := os.ReadFile(filepath.Join(br.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewBotError("BotByID", id, persistence.ErrBotNotFound)
		}

		return nil, persistence.NewBotError("BotByID", id, err)
	}

	var bot models.Bot
	if err := json.Unmarshal(data, &bot); err != nil {
		return nil, persistence.NewBotError("BotByID", id, fmt.Errorf("failed to unmarshal bot: %w", err))
	}

	return &bot, nil
}

// BotByToken finds the bot registered with the given gateway token.
func (br *BotRepository) BotByToken(ctx context.Context, token string) (*models.Bot, error) {
	bots, err := br.Bots(ctx)
	if err != nil {
		return nil, err
	}

	for _, bot := range bots {
		if bot.Token == token {
			return bot, nil
		}
	}

	return nil, persistence.NewBotError("BotByToken", "", persistence.ErrBotNotFound)
}

// Bots returns every registered bot, in file name order.
func (br *BotRepository) Bots(_ context.Context) ([]*models.Bot, error) {
	if _, err := os.Stat(br.dir()); os.IsNotExist(err) {
		return []*models.Bot{}, nil
	}

	root := os.DirFS(br.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewBotError("Bots", "", fmt.Errorf("failed to list bot files: %w", err))
	}

	bots := make([]*models.Bot, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return nil, persistence.NewBotError("Bots", "", fmt.Errorf("failed to read bot file %s: %w", name, err))
		}

		var bot models.Bot
		if err := json.Unmarshal(data, &bot); err != nil {
			return nil, persistence.NewBotError("Bots", "", fmt.Errorf("failed to unmarshal bot file %s: %w", name, err))
		}

		bots = append(bots, &bot)
	}

	return bots, nil
}

// SaveBot writes a bot to the file system.
func (br *BotRepository) SaveBot(_ context.Context, bot *models.Bot) error {
	if err := validateID(bot.ID); err != nil {
		return persistence.NewBotError("SaveBot", bot.ID, err)
	}

	if err := os.MkdirAll(br.dir(), 0755); err != nil {
		return persistence.NewBotError("SaveBot", bot.ID, fmt.Errorf("failed to create bots directory: %w", err))
	}

	data, err := json.MarshalIndent(bot, "", "  ")
	if err != nil {
		return persistence.NewBotError("SaveBot", bot.ID, fmt.Errorf("failed to marshal bot: %w", err))
	}

	filePath := filepath.Join(br.dir(), bot.ID+".json")
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewBotError("SaveBot", bot.ID, fmt.Errorf("failed to write bot file: %w", err))
	}

	return nil
}

// DeleteBot removes a bot from the file system.
func (br *BotRepository) DeleteBot(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewBotError("DeleteBot", id, err)
	}

	err := os.Remove(filepath.Join(br.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewBotError("DeleteBot", id, persistence.ErrBotNotFound)
		}

		return persistence.NewBotError("DeleteBot", id, err)
	}

	return nil
}
