// Package events defines event types and structures for conversation turn
// lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event stream all turn lifecycle events are published to.
const Topic = "botflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Turn lifecycle events.
	TurnStartedEvent   EventType = "turn.started"
	TurnCompletedEvent EventType = "turn.completed"
	TurnFailedEvent    EventType = "turn.failed"

	// Side-effect events.
	ActionPerformedEvent   EventType = "action.performed"
	ModerationFlaggedEvent EventType = "moderation.flagged"
)

// BaseEvent carries the identity every event shares: which bot, flow and
// session the turn belongs to.
type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	BotID     string         `json:"bot_id"`
	FlowID    string         `json:"flow_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps an event with a fresh id and the current time.
func NewBaseEvent(eventType EventType, botID, flowID, sessionID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		BotID:     botID,
		FlowID:    flowID,
		SessionID: sessionID,
	}
}

// TurnStarted is published when a user message enters the interpreter.
type TurnStarted struct {
	BaseEvent

	UserID string `json:"user_id"`
	Input  string `json:"input,omitempty"`
}

func (e TurnStarted) GetType() EventType {
	return TurnStartedEvent
}

// TurnCompleted is published after a successful turn.
type TurnCompleted struct {
	BaseEvent

	UserID          string        `json:"user_id"`
	NodeID          string        `json:"node_id,omitempty"`
	ResponseMessage string        `json:"response_message,omitempty"`
	Duration        time.Duration `json:"duration"`
}

func (e TurnCompleted) GetType() EventType {
	return TurnCompletedEvent
}

// TurnFailed is published when a turn yields a failure result.
type TurnFailed struct {
	BaseEvent

	UserID   string        `json:"user_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e TurnFailed) GetType() EventType {
	return TurnFailedEvent
}

// ActionPerformed is published once per side effect an action node reports.
type ActionPerformed struct {
	BaseEvent

	UserID string `json:"user_id"`
	NodeID string `json:"node_id,omitempty"`
	Action string `json:"action"`
}

func (e ActionPerformed) GetType() EventType {
	return ActionPerformedEvent
}

// ModerationFlagged is published when the moderation gate judges a message
// toxic.
type ModerationFlagged struct {
	BaseEvent

	UserID      string  `json:"user_id,omitempty"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	Sensitivity float64 `json:"sensitivity"`
}

func (e ModerationFlagged) GetType() EventType {
	return ModerationFlaggedEvent
}
