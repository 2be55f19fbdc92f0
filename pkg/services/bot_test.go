package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence/file"
)

func TestBotService_CreateAndFetch(t *testing.T) {
	service := NewBot(file.NewPersistence(t.TempDir()))
	ctx := t.Context()

	created, err := service.Create(ctx, &models.Bot{Token: "123:abc", Username: "support_bot", Active: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "support_bot", fetched.Username)

	byToken, err := service.FetchByToken(ctx, "123:abc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)
}

func TestBotService_Create_RequiresToken(t *testing.T) {
	service := NewBot(file.NewPersistence(t.TempDir()))

	_, err := service.Create(t.Context(), &models.Bot{Username: "no_token"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBotTokenRequired)
	assert.True(t, IsValidationError(err))
}

func TestBotService_Patch(t *testing.T) {
	service := NewBot(file.NewPersistence(t.TempDir()))
	ctx := t.Context()

	created, err := service.Create(ctx, &models.Bot{Token: "123:abc", Active: true})
	require.NoError(t, err)

	owner := "owner-chat-42"
	patched, err := service.Patch(ctx, created.ID, models.BotUpdate{OwnerChatID: &owner})
	require.NoError(t, err)
	assert.Equal(t, "owner-chat-42", patched.OwnerChatID)
	assert.True(t, patched.Active)
}

func TestBotService_Delete_RemovesFlowsToo(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	bots := NewBot(store)
	flows := NewFlow(store)
	ctx := t.Context()

	bot, err := bots.Create(ctx, &models.Bot{Token: "123:abc"})
	require.NoError(t, err)

	flow, err := flows.Create(ctx, bot.ID, validFlow())
	require.NoError(t, err)

	require.NoError(t, bots.Delete(ctx, bot.ID))

	_, err = bots.FetchByID(ctx, bot.ID)
	assert.ErrorIs(t, err, ErrBotNotFound)

	_, err = flows.FetchByID(ctx, flow.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}
