package flow

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/chalique/botflow/pkg/events"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/template"
)

// Fixed-format patterns for typed condition checks. Email matching is
// anchored at the start only; phone and date patterns match the whole
// input.
var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
	}
)

// executeConditionNode evaluates the node's predicate against the input
// and routes on the literal strings "true"/"false". The evaluation result
// is always exported as the last_condition_result variable.
func (e *Engine) executeConditionNode(ctx context.Context, flow *models.Flow, node *models.Node, input string, execCtx *models.ExecutionContext) *models.ExecutionResult {
	conditionValue := template.Interpolate(node.Data.ConditionValue, execCtx.Variables)

	var conditionMet bool

	if node.Data.ConditionType == models.ConditionToxicity && e.moderation != nil {
		sensitivity := node.Data.Sensitivity()

		var score float64
		conditionMet, score = e.moderation.Check(ctx, input, sensitivity)

		if conditionMet {
			e.publishFlagged(ctx, flow, execCtx, input, score, sensitivity)
		}
	} else {
		conditionMet = e.evaluateCondition(ctx, input, node.Data, conditionValue)
	}

	output := "false"
	if conditionMet {
		output = "true"
	}

	return &models.ExecutionResult{
		Success:          true,
		NextNodeID:       findNextNode(flow, node.ID, output),
		Output:           output,
		VariablesUpdated: map[string]any{"last_condition_result": conditionMet},
	}
}

// publishFlagged reports a toxic message on the event stream. Publish
// failures never affect the turn.
func (e *Engine) publishFlagged(ctx context.Context, flow *models.Flow, execCtx *models.ExecutionContext, text string, score, sensitivity float64) {
	if e.publisher == nil {
		return
	}

	event := events.ModerationFlagged{
		BaseEvent:   events.NewBaseEvent(events.ModerationFlaggedEvent, execCtx.BotID, flow.ID, execCtx.SessionID),
		UserID:      execCtx.UserID,
		Text:        text,
		Score:       score,
		Sensitivity: sensitivity,
	}

	if err := e.publisher.Publish(ctx, execCtx.BotID, event); err != nil {
		e.logger.WarnContext(ctx, "Event publish failed", "event_type", event.GetType(), "error", err)
	}
}

// evaluateCondition applies one predicate to the input. Malformed regex
// patterns and unknown condition types evaluate false; nothing here ever
// fails the turn.
func (e *Engine) evaluateCondition(ctx context.Context, input string, data models.NodeData, conditionValue string) bool {
	inputStr := strings.TrimSpace(input)
	valueStr := strings.TrimSpace(conditionValue)

	switch data.ConditionType {
	case models.ConditionEquals:
		return strings.EqualFold(inputStr, valueStr)

	case models.ConditionContains:
		return strings.Contains(strings.ToLower(inputStr), strings.ToLower(valueStr))

	case models.ConditionRegex:
		pattern, err := regexp.Compile("(?i)" + valueStr)
		if err != nil {
			return false
		}

		return pattern.MatchString(inputStr)

	case models.ConditionNumber:
		inputNum, err := strconv.ParseFloat(inputStr, 64)
		if err != nil {
			return false
		}

		if valueStr == "" {
			return true
		}

		condNum, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return false
		}

		return inputNum == condNum

	case models.ConditionEmail:
		return emailPattern.MatchString(inputStr)

	case models.ConditionPhoneNumber:
		return phonePattern.MatchString(inputStr)

	case models.ConditionDate:
		for _, pattern := range datePatterns {
			if pattern.MatchString(inputStr) {
				return true
			}
		}

		return false

	case models.ConditionToxicity:
		if e.moderation == nil {
			return false
		}

		return e.moderation.IsToxic(ctx, input, data.Sensitivity())

	default:
		return false
	}
}
