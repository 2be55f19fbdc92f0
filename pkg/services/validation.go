package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/chalique/botflow/pkg/models"
)

// Per-kind JSON schemas for node payloads, checked at save time. These are
// shape checks only; graph well-formedness (dangling edges, unreachable
// nodes, cycles) stays a traversal-time concern.
var nodePayloadSchemas = map[models.NodeKind]map[string]any{
	models.NodeKindStart: {
		"type": "object",
	},
	models.NodeKindMessage: {
		"type": "object",
		"properties": map[string]any{
			"content":       map[string]any{"type": "string"},
			"quick_replies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"delay":         map[string]any{"type": "integer", "minimum": 0},
		},
	},
	models.NodeKindCondition: {
		"type": "object",
		"properties": map[string]any{
			"condition_type": map[string]any{
				"type": "string",
				"enum": []any{"equals", "contains", "regex", "number", "email", "phone_number", "date", "toxicity"},
			},
			"condition_value":      map[string]any{"type": "string"},
			"toxicity_sensitivity": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
	},
	models.NodeKindAction: {
		"type": "object",
		"properties": map[string]any{
			"action_type": map[string]any{
				"type": "string",
				"enum": []any{
					"set_variable", "notify_owner", "ban_chat_member", "unban_chat_member",
					"delete_message", "send_email", "log_event", "transfer_human",
				},
			},
			"action_params": map[string]any{"type": "string"},
		},
	},
	models.NodeKindWebhook: {
		"type": "object",
		"properties": map[string]any{
			"webhook_url": map[string]any{"type": "string"},
			"method": map[string]any{
				"type": "string",
				"enum": []any{"GET", "POST", "PUT", "DELETE", "get", "post", "put", "delete", ""},
			},
			"headers":            map[string]any{"type": "string"},
			"request_body":       map[string]any{"type": "string"},
			"response_variables": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"retry_count":        map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
		},
	},
	models.NodeKindInput: {
		"type": "object",
		"properties": map[string]any{
			"prompt":        map[string]any{"type": "string"},
			"variable_name": map[string]any{"type": "string"},
		},
	},
	models.NodeKindEnd: {
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
		},
	},
}

// validateNodes checks every node's kind and payload shape.
func validateNodes(nodes []models.Node) error {
	for _, node := range nodes {
		schema, ok := nodePayloadSchemas[node.Kind]
		if !ok {
			return NewValidationError(
				"validateNodes",
				"UNKNOWN_NODE_KIND",
				fmt.Sprintf("node %s has unknown kind %q", node.ID, node.Kind),
				ErrInvalidNodePayload,
			)
		}

		if err := validateJSONSchema(node.Data, schema); err != nil {
			return NewValidationError(
				"validateNodes",
				"INVALID_NODE_PAYLOAD",
				fmt.Sprintf("node %s: %v", node.ID, err),
				ErrInvalidNodePayload,
			)
		}
	}

	return nil
}

// validateJSONSchema validates a payload against a JSON schema.
func validateJSONSchema(payload any, schema map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
