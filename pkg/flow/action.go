package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/template"
)

// executeActionNode performs the node's side effect and advances via the
// edge router using the action's output. Malformed action parameters are
// treated as empty, never as an error.
func (e *Engine) executeActionNode(ctx context.Context, flow *models.Flow, node *models.Node, execCtx *models.ExecutionContext) *models.ExecutionResult {
	var params map[string]any
	if err := json.Unmarshal([]byte(node.Data.ActionParams), &params); err != nil {
		params = map[string]any{}
	}

	params, _ = template.InterpolateTree(params, execCtx.Variables).(map[string]any)

	variablesUpdated := map[string]any{}
	actionsPerformed := []string{}
	output := ""

	switch node.Data.ActionType {
	case models.ActionSetVariable:
		name, _ := params["variable"].(string)
		if name != "" {
			value := params["value"]
			output = template.Stringify(value)
			variablesUpdated[name] = value
			actionsPerformed = append(actionsPerformed, fmt.Sprintf("Set variable %s = %v", name, value))
		}

	case models.ActionNotifyOwner:
		output = e.notifyOwner(ctx, params, execCtx, &actionsPerformed)

	case models.ActionBanChatMember:
		output = e.moderateChat(ctx, node.Data.ActionType, params, execCtx, &actionsPerformed)

	case models.ActionUnbanChatMember:
		output = e.moderateChat(ctx, node.Data.ActionType, params, execCtx, &actionsPerformed)

	case models.ActionDeleteMessage:
		output = e.moderateChat(ctx, node.Data.ActionType, params, execCtx, &actionsPerformed)

	case models.ActionSendEmail:
		actionsPerformed = append(actionsPerformed, "Email sent")

	case models.ActionLogEvent:
		actionsPerformed = append(actionsPerformed, "Event logged")

	case models.ActionTransferHuman:
		actionsPerformed = append(actionsPerformed, "Transferred to human agent")

	default:
		e.logger.WarnContext(ctx, "Unknown action type", "node_id", node.ID, "action_type", node.Data.ActionType)
	}

	return &models.ExecutionResult{
		Success:          true,
		NextNodeID:       findNextNode(flow, node.ID, output),
		Output:           output,
		VariablesUpdated: variablesUpdated,
		ActionsPerformed: actionsPerformed,
	}
}

// notifyOwner sends an interpolated message to the owner of the bot the
// session belongs to. A bot without an owner chat is a no-op.
func (e *Engine) notifyOwner(ctx context.Context, params map[string]any, execCtx *models.ExecutionContext, actionsPerformed *[]string) string {
	message, _ := params["message"].(string)
	if message == "" {
		message = fmt.Sprintf("Notification from conversation with user %s", execCtx.UserID)
	}

	bot, err := e.bots.BotByID(ctx, execCtx.BotID)
	if err != nil {
		e.logger.WarnContext(ctx, "Owner notification skipped, bot not resolvable", "bot_id", execCtx.BotID, "error", err)
		*actionsPerformed = append(*actionsPerformed, "Owner notification failed: bot not found")

		return "false"
	}

	if bot.OwnerChatID == "" {
		*actionsPerformed = append(*actionsPerformed, "Owner notification skipped: no owner chat configured")

		return "false"
	}

	result := e.gateway.SendMessage(ctx, bot.Token, bot.OwnerChatID, message, nil)
	if !result.OK {
		*actionsPerformed = append(*actionsPerformed, fmt.Sprintf("Owner notification failed: %s", result.Description))

		return "false"
	}

	*actionsPerformed = append(*actionsPerformed, "Owner notified")

	return "true"
}

// moderateChat dispatches a chat moderation primitive through the gateway.
// Chat and user ids come from the action parameters, falling back to the
// session's own ids.
func (e *Engine) moderateChat(ctx context.Context, action models.ActionType, params map[string]any, execCtx *models.ExecutionContext, actionsPerformed *[]string) string {
	chatID := stringParam(params, "chat_id", execCtx.ChatID)
	userID := stringParam(params, "user_id", execCtx.UserID)

	bot, err := e.bots.BotByID(ctx, execCtx.BotID)
	if err != nil {
		e.logger.WarnContext(ctx, "Moderation action skipped, bot not resolvable", "bot_id", execCtx.BotID, "action", action, "error", err)
		*actionsPerformed = append(*actionsPerformed, fmt.Sprintf("%s failed: bot not found", action))

		return "false"
	}

	result := e.dispatchModeration(ctx, action, bot.Token, chatID, userID, params)
	if !result.OK {
		*actionsPerformed = append(*actionsPerformed, fmt.Sprintf("%s failed: %s", action, result.Description))

		return "false"
	}

	*actionsPerformed = append(*actionsPerformed, fmt.Sprintf("%s performed", action))

	return "true"
}

func (e *Engine) dispatchModeration(ctx context.Context, action models.ActionType, botToken, chatID, userID string, params map[string]any) gateway.Result {
	switch action {
	case models.ActionBanChatMember:
		return e.gateway.BanChatMember(ctx, botToken, chatID, userID)
	case models.ActionUnbanChatMember:
		return e.gateway.UnbanChatMember(ctx, botToken, chatID, userID)
	case models.ActionDeleteMessage:
		messageID := stringParam(params, "message_id", "")

		return e.gateway.DeleteMessage(ctx, botToken, chatID, messageID)
	default:
		return gateway.Result{Description: "unsupported moderation action"}
	}
}

// stringParam reads a string-valued parameter, rendering non-string values
// through the same stringification used for interpolation.
func stringParam(params map[string]any, key, fallback string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return fallback
	}

	if s := template.Stringify(value); s != "" {
		return s
	}

	return fallback
}
