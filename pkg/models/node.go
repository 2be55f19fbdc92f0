// Package models defines the core domain models for conversation flow execution.
package models

// NodeKind identifies the execution contract of a flow node. The set is
// closed: the interpreter dispatches with an exhaustive switch and reports
// anything else as an unknown node kind.
type NodeKind string

const (
	NodeKindStart     NodeKind = "start"
	NodeKindMessage   NodeKind = "message"
	NodeKindCondition NodeKind = "condition"
	NodeKindAction    NodeKind = "action"
	NodeKindWebhook   NodeKind = "webhook"
	NodeKindInput     NodeKind = "input"
	NodeKindEnd       NodeKind = "end"
)

// ConditionType selects the predicate a condition node evaluates against its
// input.
type ConditionType string

const (
	ConditionEquals      ConditionType = "equals"
	ConditionContains    ConditionType = "contains"
	ConditionRegex       ConditionType = "regex"
	ConditionNumber      ConditionType = "number"
	ConditionEmail       ConditionType = "email"
	ConditionPhoneNumber ConditionType = "phone_number"
	ConditionDate        ConditionType = "date"
	ConditionToxicity    ConditionType = "toxicity"
)

// ActionType selects the side effect an action node performs.
type ActionType string

const (
	ActionSetVariable     ActionType = "set_variable"
	ActionNotifyOwner     ActionType = "notify_owner"
	ActionBanChatMember   ActionType = "ban_chat_member"
	ActionUnbanChatMember ActionType = "unban_chat_member"
	ActionDeleteMessage   ActionType = "delete_message"
	ActionSendEmail       ActionType = "send_email"
	ActionLogEvent        ActionType = "log_event"
	ActionTransferHuman   ActionType = "transfer_human"
)

// Node is a single step in a flow. Data carries the kind-specific payload;
// fields irrelevant to the node's kind are left zero by the authoring layer.
type Node struct {
	ID    string   `json:"id"              validate:"required"`
	Label string   `json:"label,omitempty"`
	Kind  NodeKind `json:"kind"            validate:"required,oneof=start message condition action webhook input end"`
	Data  NodeData `json:"data"`
}

// NodeData is the union of per-kind node payloads.
type NodeData struct {
	// Message and End nodes.
	Content      string   `json:"content,omitempty"`
	QuickReplies []string `json:"quick_replies,omitempty"`
	Delay        int      `json:"delay,omitempty"` // pre-send delay in milliseconds

	// Condition nodes.
	ConditionType       ConditionType `json:"condition_type,omitempty"`
	ConditionValue      string        `json:"condition_value,omitempty"`
	ToxicitySensitivity *float64      `json:"toxicity_sensitivity,omitempty"` // in [0,1], defaults to 0.5

	// Action nodes. ActionParams is a JSON object; a malformed document is
	// treated as empty parameters, never an error.
	ActionType   ActionType `json:"action_type,omitempty"`
	ActionParams string     `json:"action_params,omitempty"`

	// Webhook nodes.
	WebhookURL        string   `json:"webhook_url,omitempty"`
	Method            string   `json:"method,omitempty"`
	Headers           string   `json:"headers,omitempty"`
	RequestBody       string   `json:"request_body,omitempty"`
	ResponseVariables []string `json:"response_variables,omitempty"`
	RetryCount        int      `json:"retry_count,omitempty"`

	// Input nodes.
	Prompt       string `json:"prompt,omitempty"`
	VariableName string `json:"variable_name,omitempty"`
}

// Sensitivity returns the toxicity sensitivity for condition nodes, applying
// the 0.5 default when unset.
func (d NodeData) Sensitivity() float64 {
	if d.ToxicitySensitivity == nil {
		return 0.5
	}

	return *d.ToxicitySensitivity
}
