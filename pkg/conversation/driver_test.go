package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chalique/botflow/pkg/flow"
	"github.com/chalique/botflow/pkg/log"
	"github.com/chalique/botflow/pkg/mocks"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
	"github.com/chalique/botflow/pkg/persistence/file"
)

const testToken = "123456:test-token"

func newTestDriver(t *testing.T, flows ...*models.Flow) (*Driver, persistence.Persistence) {
	t.Helper()

	logger := log.WithModule("conversation-test")

	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.Bots().SaveBot(t.Context(), &models.Bot{
		ID:        "bot-1",
		Token:     testToken,
		FirstName: "Concierge",
		Active:    true,
	}))

	for _, f := range flows {
		require.NoError(t, store.Flows().SaveFlow(t.Context(), f))
	}

	engine := flow.NewEngine(store, nil, nil, logger)

	return NewDriver(store, engine, nil, logger), store
}

func greetingFlow() *models.Flow {
	return &models.Flow{
		ID:      "flow-1",
		BotID:   "bot-1",
		Name:    "greeting",
		Active:  true,
		Default: true,
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart},
			{ID: "hello", Kind: models.NodeKindMessage, Data: models.NodeData{
				Content:      "Hi {{first_name}}! Coffee or tea?",
				QuickReplies: []string{"coffee", "tea"},
			}},
			{ID: "coffee-msg", Kind: models.NodeKindMessage, Data: models.NodeData{Content: "Coffee it is."}},
		},
		Edges: []models.Edge{
			{Source: "start", Target: "hello"},
			{Source: "hello", Target: "coffee-msg", Condition: "coffee"},
		},
	}
}

func textUpdate(text string) Update {
	return Update{
		UpdateID: 7,
		Message: &Message{
			MessageID: 11,
			From:      &User{ID: 42, Username: "ann", FirstName: "Ann"},
			Chat:      Chat{ID: 900, Type: "private"},
			Text:      text,
		},
	}
}

func TestHandleUpdateAcksNonMessageUpdate(t *testing.T) {
	driver, _ := newTestDriver(t, greetingFlow())

	reply := driver.HandleUpdate(t.Context(), testToken, Update{UpdateID: 7})

	assert.Equal(t, Reply{"ok": true}, reply)
}

func TestHandleUpdateUnknownBot(t *testing.T) {
	driver, _ := newTestDriver(t, greetingFlow())

	reply := driver.HandleUpdate(t.Context(), "999:wrong", textUpdate("hi"))

	assert.Equal(t, Reply{"ok": true}, reply)
}

func TestHandleUpdateInactiveBotAcks(t *testing.T) {
	driver, store := newTestDriver(t, greetingFlow())

	bot, err := store.Bots().BotByID(t.Context(), "bot-1")
	require.NoError(t, err)
	bot.Active = false
	require.NoError(t, store.Bots().SaveBot(t.Context(), bot))

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("hi"))

	assert.Equal(t, Reply{"ok": true}, reply)
}

func TestHandleUpdateNoDefaultFlow(t *testing.T) {
	driver, _ := newTestDriver(t)

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("hi"))

	assert.Equal(t, "sendMessage", reply["method"])
	assert.Equal(t, int64(900), reply["chat_id"])
	assert.Equal(t, "Hello! I'm Concierge. I'm still being configured with conversation flows.", reply["text"])
}

func TestHandleUpdateGreetingTurnSeedsVariables(t *testing.T) {
	driver, store := newTestDriver(t, greetingFlow())

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("/start"))

	assert.Equal(t, "sendMessage", reply["method"])
	assert.Equal(t, "Hi Ann! Coffee or tea?", reply["text"])
	assert.Contains(t, reply, "reply_markup")

	session, err := store.Sessions().Session(t.Context(), "bot-1", "42", "tg_900_42")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "hello", session.CurrentNodeID)
	assert.Equal(t, "ann", session.Variables["username"])
	assert.EqualValues(t, 900, session.Variables["chat_id"])
	assert.WithinDuration(t, time.Now(), session.UpdatedAt, 5*time.Second)
}

func TestHandleUpdateResumesStoredSession(t *testing.T) {
	driver, store := newTestDriver(t, greetingFlow())

	driver.HandleUpdate(t.Context(), testToken, textUpdate("/start"))

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("coffee"))

	assert.Equal(t, "Coffee it is.", reply["text"])

	session, err := store.Sessions().Session(t.Context(), "bot-1", "42", "tg_900_42")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "coffee-msg", session.CurrentNodeID)
}

func TestHandleUpdateResetCommandRestartsFlow(t *testing.T) {
	driver, store := newTestDriver(t, greetingFlow())

	driver.HandleUpdate(t.Context(), testToken, textUpdate("/start"))
	driver.HandleUpdate(t.Context(), testToken, textUpdate("coffee"))

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("/restart"))

	assert.Equal(t, "Hi Ann! Coffee or tea?", reply["text"])

	session, err := store.Sessions().Session(t.Context(), "bot-1", "42", "tg_900_42")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "hello", session.CurrentNodeID)
}

func TestHandleUpdatePublishesTurnLifecycleEvents(t *testing.T) {
	logger := log.WithModule("conversation-test")
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.Bots().SaveBot(t.Context(), &models.Bot{
		ID:        "bot-1",
		Token:     testToken,
		FirstName: "Concierge",
		Active:    true,
	}))
	require.NoError(t, store.Flows().SaveFlow(t.Context(), greetingFlow()))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "bot-1", mock.AnythingOfType("events.TurnStarted")).Return(nil).Once()
	bus.On("Publish", mock.Anything, "bot-1", mock.AnythingOfType("events.TurnCompleted")).Return(nil).Once()

	driver := NewDriver(store, flow.NewEngine(store, nil, nil, logger), bus, logger)

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("/start"))

	assert.Equal(t, "Hi Ann! Coffee or tea?", reply["text"])
	bus.AssertExpectations(t)
}

func TestHandleUpdateBotLookupErrorAcks(t *testing.T) {
	logger := log.WithModule("conversation-test")

	store := mocks.NewMockPersistence()
	store.BotRepo.On("BotByToken", mock.Anything, testToken).Return(nil, errors.New("store unavailable"))

	driver := NewDriver(store, flow.NewEngine(store, nil, nil, logger), nil, logger)

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("hi"))

	assert.Equal(t, Reply{"ok": true}, reply)
	store.BotRepo.AssertExpectations(t)
}

func TestHandleUpdateFailureSendsClarifyingReply(t *testing.T) {
	broken := greetingFlow()
	broken.Nodes = nil
	broken.Edges = nil

	driver, _ := newTestDriver(t, broken)

	reply := driver.HandleUpdate(t.Context(), testToken, textUpdate("hi"))

	assert.Equal(t, "sendMessage", reply["method"])
	assert.Equal(t, "I didn't understand that. Could you try again?", reply["text"])
}
