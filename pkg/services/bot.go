package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

// Bot is the management service for the bots the platform drives.
type Bot struct {
	persistence persistence.Persistence
}

// NewBot creates a new bot service.
func NewBot(persistence persistence.Persistence) *Bot {
	return &Bot{persistence: persistence}
}

// FetchByID retrieves a bot by its ID.
func (s *Bot) FetchByID(ctx context.Context, id string) (*models.Bot, error) {
	return s.persistence.Bots().BotByID(ctx, id)
}

// FetchByToken retrieves the bot registered with a gateway token.
func (s *Bot) FetchByToken(ctx context.Context, token string) (*models.Bot, error) {
	return s.persistence.Bots().BotByToken(ctx, token)
}

// List retrieves every registered bot.
func (s *Bot) List(ctx context.Context) ([]*models.Bot, error) {
	return s.persistence.Bots().Bots(ctx)
}

// Create registers a new bot.
func (s *Bot) Create(ctx context.Context, bot *models.Bot) (*models.Bot, error) {
	if bot == nil {
		return nil, ErrBotNil
	}

	if strings.TrimSpace(bot.Token) == "" {
		return nil, ErrBotTokenRequired
	}

	now := time.Now().UTC()
	bot.ID = uuid.New().String()
	bot.CreatedAt = now
	bot.UpdatedAt = now

	if err := s.persistence.Bots().SaveBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return bot, nil
}

// Patch applies a partial update to an existing bot.
func (s *Bot) Patch(ctx context.Context, botID string, update models.BotUpdate) (*models.Bot, error) {
	existing, err := s.persistence.Bots().BotByID(ctx, botID)
	if err != nil {
		return nil, err
	}

	update.Apply(existing)
	existing.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Bots().SaveBot(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to patch bot: %w", err)
	}

	return existing, nil
}

// Delete removes a bot and all of its flows.
func (s *Bot) Delete(ctx context.Context, botID string) error {
	if _, err := s.persistence.Bots().BotByID(ctx, botID); err != nil {
		return err
	}

	flows, err := s.persistence.Flows().FlowsByBot(ctx, botID)
	if err != nil {
		return fmt.Errorf("failed to list flows for bot: %w", err)
	}

	for _, flow := range flows {
		if err := s.persistence.Flows().DeleteFlow(ctx, flow.ID); err != nil {
			return fmt.Errorf("failed to delete flow %s: %w", flow.ID, err)
		}
	}

	if err := s.persistence.Bots().DeleteBot(ctx, botID); err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}

	return nil
}
