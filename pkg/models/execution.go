package models

import "time"

// ExecutionContext is the per-session mutable state carried across turns.
// It is owned exclusively by one turn while the interpreter runs; the
// persisted copy belongs to the session store between turns.
type ExecutionContext struct {
	BotID     string `json:"bot_id"`
	UserID    string `json:"user_id"`
	ChatID    string `json:"chat_id"`
	SessionID string `json:"session_id"`

	// CurrentNodeID is empty when the session starts fresh.
	CurrentNodeID string         `json:"current_node_id,omitempty"`
	Variables     map[string]any `json:"variables"`
	History       []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry records one node execution within a turn. The log is
// append-only; truncation is a store concern.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id"`
	Input     string         `json:"input"`
	Response  string         `json:"bot_response,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// SetVariable assigns a context variable, allocating the map on first use.
// Variables only grow or overwrite by key; nothing ever deletes one.
func (c *ExecutionContext) SetVariable(name string, value any) {
	if c.Variables == nil {
		c.Variables = make(map[string]any)
	}

	c.Variables[name] = value
}

// ExecutionResult is the outcome of executing one node, and — for the last
// node of a turn — of the turn itself.
type ExecutionResult struct {
	Success bool `json:"success"`

	// NextNodeID is empty when the turn is terminal. A node that returns
	// its own id is holding for the next user message.
	NextNodeID string `json:"next_node_id,omitempty"`

	// Output is used as the synthetic input for the following hop.
	Output string `json:"output,omitempty"`

	ResponseMessage  string         `json:"response_message,omitempty"`
	QuickReplies     []string       `json:"quick_replies,omitempty"`
	VariablesUpdated map[string]any `json:"variables_updated,omitempty"`
	ActionsPerformed []string       `json:"actions_performed,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// Session is the persisted snapshot of a conversation, keyed by
// (bot, user, session). It is overwritten at the end of every successful
// turn and never deleted by the interpreter itself.
type Session struct {
	BotID         string         `json:"bot_id"`
	UserID        string         `json:"user_id"`
	SessionID     string         `json:"session_id"`
	CurrentNodeID string         `json:"current_node_id,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
