package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(TurnStartedEvent, "bot-1", "flow-1", "tg_10_20")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TurnStartedEvent, event.Type)
	assert.Equal(t, "bot-1", event.BotID)
	assert.Equal(t, "flow-1", event.FlowID)
	assert.Equal(t, "tg_10_20", event.SessionID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)
}

func TestTurnCompleted_JSONSerialization(t *testing.T) {
	original := TurnCompleted{
		BaseEvent:       NewBaseEvent(TurnCompletedEvent, "bot-1", "flow-1", "tg_10_20"),
		UserID:          "user-1",
		NodeID:          "hello",
		ResponseMessage: "Hi! Ann",
		Duration:        120 * time.Millisecond,
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"turn.completed"`)
	assert.Contains(t, string(jsonData), `"node_id":"hello"`)

	var deserialized TurnCompleted

	require.NoError(t, json.Unmarshal(jsonData, &deserialized))
	assert.Equal(t, original.ResponseMessage, deserialized.ResponseMessage)
	assert.Equal(t, original.Duration, deserialized.Duration)
	assert.Equal(t, TurnCompletedEvent, deserialized.GetType())
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, TurnStartedEvent, TurnStarted{}.GetType())
	assert.Equal(t, TurnFailedEvent, TurnFailed{}.GetType())
	assert.Equal(t, ActionPerformedEvent, ActionPerformed{}.GetType())
	assert.Equal(t, ModerationFlaggedEvent, ModerationFlagged{}.GetType())
}
