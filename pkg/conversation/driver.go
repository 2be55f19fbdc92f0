package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chalique/botflow/pkg/eventbus"
	"github.com/chalique/botflow/pkg/events"
	"github.com/chalique/botflow/pkg/flow"
	"github.com/chalique/botflow/pkg/metrics"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/otelhelper"
	"github.com/chalique/botflow/pkg/persistence"
)

// clarifyReply is sent when a turn fails; users never see error details.
const clarifyReply = "I didn't understand that. Could you try again?"

// resetCommands restart the conversation from the flow's start node.
var resetCommands = map[string]bool{
	"/start":   true,
	"/restart": true,
	"/reset":   true,
}

// Driver executes one conversation turn per incoming update.
type Driver struct {
	store     persistence.Persistence
	engine    *flow.Engine
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewDriver creates a turn driver. The publisher may be nil; lifecycle
// events are then skipped.
func NewDriver(store persistence.Persistence, engine *flow.Engine, publisher eventbus.EventPublisher, logger *slog.Logger) *Driver {
	return &Driver{
		store:     store,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

// WithTracer enables per-turn tracing. A nil tracer leaves tracing off.
func (d *Driver) WithTracer(tracer trace.Tracer) *Driver {
	d.tracer = tracer

	return d
}

// HandleUpdate runs the turn for one incoming update and returns the
// webhook reply. Unknown bots, inactive bots and non-message updates are
// acknowledged without executing anything.
func (d *Driver) HandleUpdate(ctx context.Context, botToken string, update Update) Reply {
	if update.Message == nil || update.Message.From == nil {
		return ack()
	}

	message := update.Message
	userID := strconv.FormatInt(message.From.ID, 10)
	chatID := message.Chat.ID
	text := message.Text

	bot, err := d.store.Bots().BotByToken(ctx, botToken)
	if err != nil {
		if !persistence.IsBotNotFound(err) {
			d.logger.ErrorContext(ctx, "Bot lookup failed", "error", err)
		}

		return ack()
	}

	if !bot.Active {
		return ack()
	}

	defaultFlow, err := d.store.Flows().DefaultFlowByBot(ctx, bot.ID)
	if err != nil {
		if !persistence.IsFlowNotFound(err) {
			d.logger.ErrorContext(ctx, "Default flow lookup failed", "bot_id", bot.ID, "error", err)

			return ack()
		}

		return sendMessageReply(chatID,
			fmt.Sprintf("Hello! I'm %s. I'm still being configured with conversation flows.", bot.FirstName), nil)
	}

	sessionID := fmt.Sprintf("tg_%d_%d", chatID, message.From.ID)

	execCtx, err := d.buildContext(ctx, bot, message, userID, sessionID, text)
	if err != nil {
		d.logger.ErrorContext(ctx, "Session load failed", "bot_id", bot.ID, "session_id", sessionID, "error", err)

		return sendMessageReply(chatID, clarifyReply, nil)
	}

	if d.tracer != nil {
		var span trace.Span
		ctx, span = otelhelper.StartSpan(ctx, d.tracer, "conversation.turn",
			attribute.String(otelhelper.BotIDKey, bot.ID),
			attribute.String(otelhelper.FlowIDKey, defaultFlow.ID),
			attribute.String(otelhelper.SessionIDKey, sessionID),
			attribute.String(otelhelper.UserIDKey, userID),
		)
		defer span.End()
	}

	d.publish(ctx, bot.ID, events.TurnStarted{
		BaseEvent: events.NewBaseEvent(events.TurnStartedEvent, bot.ID, defaultFlow.ID, sessionID),
		UserID:    userID,
		Input:     text,
	})

	started := time.Now()
	result := d.engine.Execute(ctx, defaultFlow.ID, text, execCtx)
	duration := time.Since(started)

	metrics.TurnDuration.WithLabelValues(bot.ID).Observe(duration.Seconds())

	if !result.Success {
		otelhelper.SetError(trace.SpanFromContext(ctx), errors.New(result.ErrorMessage),
			attribute.String(otelhelper.NodeIDKey, execCtx.CurrentNodeID))

		metrics.TurnsTotal.WithLabelValues(bot.ID, "failure").Inc()
		d.logger.WarnContext(ctx, "Turn failed",
			"bot_id", bot.ID, "flow_id", defaultFlow.ID, "session_id", sessionID, "error", result.ErrorMessage)

		d.publish(ctx, bot.ID, events.TurnFailed{
			BaseEvent: events.NewBaseEvent(events.TurnFailedEvent, bot.ID, defaultFlow.ID, sessionID),
			UserID:    userID,
			Error:     result.ErrorMessage,
			Duration:  duration,
		})

		return sendMessageReply(chatID, clarifyReply, nil)
	}

	metrics.TurnsTotal.WithLabelValues(bot.ID, "success").Inc()

	if err := d.store.Sessions().PutSession(ctx, &models.Session{
		BotID:         bot.ID,
		UserID:        userID,
		SessionID:     sessionID,
		CurrentNodeID: execCtx.CurrentNodeID,
		Variables:     execCtx.Variables,
		UpdatedAt:     time.Now().UTC(),
	}); err != nil {
		d.logger.ErrorContext(ctx, "Session write failed", "bot_id", bot.ID, "session_id", sessionID, "error", err)
	}

	d.publish(ctx, bot.ID, events.TurnCompleted{
		BaseEvent:       events.NewBaseEvent(events.TurnCompletedEvent, bot.ID, defaultFlow.ID, sessionID),
		UserID:          userID,
		NodeID:          execCtx.CurrentNodeID,
		ResponseMessage: result.ResponseMessage,
		Duration:        duration,
	})

	for _, action := range result.ActionsPerformed {
		metrics.ActionsPerformed.WithLabelValues(bot.ID).Inc()
		d.publish(ctx, bot.ID, events.ActionPerformed{
			BaseEvent: events.NewBaseEvent(events.ActionPerformedEvent, bot.ID, defaultFlow.ID, sessionID),
			UserID:    userID,
			NodeID:    execCtx.CurrentNodeID,
			Action:    action,
		})
	}

	if result.ResponseMessage != "" {
		return sendMessageReply(chatID, result.ResponseMessage, result.QuickReplies)
	}

	return ack()
}

// buildContext loads (or resets) the session and seeds the execution
// context. Reset commands discard the stored node and variables; fresh
// sessions are seeded with the sender's identity.
func (d *Driver) buildContext(ctx context.Context, bot *models.Bot, message *Message, userID, sessionID, text string) (*models.ExecutionContext, error) {
	session, err := d.store.Sessions().Session(ctx, bot.ID, userID, sessionID)
	if err != nil {
		return nil, err
	}

	seed := map[string]any{
		"chat_id":    message.Chat.ID,
		"username":   message.From.Username,
		"first_name": message.From.FirstName,
	}

	currentNodeID := ""
	variables := seed

	if !resetCommands[strings.ToLower(strings.TrimSpace(text))] && session != nil {
		currentNodeID = session.CurrentNodeID
		if len(session.Variables) > 0 {
			variables = session.Variables
		}
	}

	return &models.ExecutionContext{
		BotID:         bot.ID,
		UserID:        userID,
		ChatID:        strconv.FormatInt(message.Chat.ID, 10),
		SessionID:     sessionID,
		CurrentNodeID: currentNodeID,
		Variables:     variables,
	}, nil
}

func (d *Driver) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.Publish(ctx, key, event); err != nil {
		d.logger.WarnContext(ctx, "Event publish failed", "event_type", event.GetType(), "error", err)
	}
}
