package flow

import (
	"context"
	"time"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/template"
)

// clarifyMessage is shown when a held message node cannot route the reply.
const clarifyMessage = "I couldn't understand your message. Please try again."

// executeStartNode advances unconditionally along the first outgoing edge.
// Start nodes never emit a message; the input is ignored entirely.
func (e *Engine) executeStartNode(flow *models.Flow, node *models.Node) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success:    true,
		NextNodeID: findNextNode(flow, node.ID, ""),
	}
}

// executeMessageNode sends a message on arrival and holds for the reply.
// On the reply it routes via the edge conditions, staying put with a
// clarification when nothing matches.
func (e *Engine) executeMessageNode(ctx context.Context, flow *models.Flow, node *models.Node, input string, execCtx *models.ExecutionContext, isFirstVisit bool) *models.ExecutionResult {
	message := template.Interpolate(node.Data.Content, execCtx.Variables)

	if node.Data.Delay > 0 {
		select {
		case <-time.After(time.Duration(node.Data.Delay) * time.Millisecond):
		case <-ctx.Done():
		}
	}

	if isFirstVisit || input == "" {
		return &models.ExecutionResult{
			Success:         true,
			NextNodeID:      node.ID,
			ResponseMessage: message,
			QuickReplies:    node.Data.QuickReplies,
		}
	}

	if nextNodeID := findNextNode(flow, node.ID, input); nextNodeID != "" {
		return &models.ExecutionResult{
			Success:    true,
			NextNodeID: nextNodeID,
			Output:     input,
		}
	}

	return &models.ExecutionResult{
		Success:         true,
		NextNodeID:      node.ID,
		Output:          input,
		ResponseMessage: clarifyMessage,
		QuickReplies:    node.Data.QuickReplies,
	}
}

// executeInputNode prompts on arrival, then stores the raw reply verbatim
// into the named variable. No validation or coercion is performed; edge
// conditions downstream decide what to do with the value.
func (e *Engine) executeInputNode(flow *models.Flow, node *models.Node, input string, isFirstVisit bool) *models.ExecutionResult {
	if node.Data.VariableName == "" {
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: "variable name not specified for input node",
		}
	}

	if isFirstVisit {
		prompt := node.Data.Prompt
		if prompt == "" {
			prompt = node.Data.Content
		}

		if prompt == "" {
			prompt = "Please provide input."
		}

		return &models.ExecutionResult{
			Success:         true,
			NextNodeID:      node.ID,
			ResponseMessage: prompt,
		}
	}

	return &models.ExecutionResult{
		Success:          true,
		NextNodeID:       findNextNode(flow, node.ID, input),
		Output:           input,
		VariablesUpdated: map[string]any{node.Data.VariableName: input},
	}
}

// executeEndNode emits the terminal message and ends the turn.
func (e *Engine) executeEndNode(node *models.Node, execCtx *models.ExecutionContext) *models.ExecutionResult {
	message := node.Data.Content
	if message == "" {
		message = "Conversation ended"
	}

	return &models.ExecutionResult{
		Success:         true,
		ResponseMessage: template.Interpolate(message, execCtx.Variables),
	}
}
