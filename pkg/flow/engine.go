// Package flow implements the conversation flow interpreter: a sequential
// state machine that replays an authored node graph one user turn at a time.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chalique/botflow/pkg/eventbus"
	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/metrics"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/moderation"
	"github.com/chalique/botflow/pkg/otelhelper"
	"github.com/chalique/botflow/pkg/persistence"
)

// maxIterations caps node hops per turn. Malformed or adversarial graphs
// can contain cycles; the cap guarantees every turn terminates.
const maxIterations = 10

// webhookTimeout is the total HTTP timeout for a single webhook attempt.
const webhookTimeout = 30 * time.Second

// Engine executes conversation flows. It holds no mutable state across
// calls beyond the injected dependencies, so one Engine serves many
// concurrent turns.
type Engine struct {
	flows      persistence.FlowRepository
	bots       persistence.BotRepository
	gateway    gateway.Gateway
	moderation *moderation.Gate
	publisher  eventbus.EventPublisher
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEngine creates a flow engine with its collaborators. The moderation
// gate may be nil; toxicity conditions then evaluate false.
func NewEngine(store persistence.Persistence, gw gateway.Gateway, gate *moderation.Gate, logger *slog.Logger) *Engine {
	return &Engine{
		flows:      store.Flows(),
		bots:       store.Bots(),
		gateway:    gw,
		moderation: gate,
		httpClient: &http.Client{Timeout: webhookTimeout},
		logger:     logger,
	}
}

// WithPublisher enables moderation.flagged event publishing. A nil
// publisher leaves it off.
func (e *Engine) WithPublisher(publisher eventbus.EventPublisher) *Engine {
	e.publisher = publisher

	return e
}

// Close releases pooled I/O resources.
func (e *Engine) Close() {
	e.httpClient.CloseIdleConnections()
}

// Execute runs one turn of a flow: it resumes at the session's current
// node (or the start node for a fresh session) and hops through the graph
// until a node holds for the next user message, the flow ends, or the
// iteration cap is reached. It mutates execCtx in place and always returns
// a result, never an error: every fault becomes a failure result.
func (e *Engine) Execute(ctx context.Context, flowID, input string, execCtx *models.ExecutionContext) (result *models.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "Flow execution panic", "flow_id", flowID, "panic", r)

			result = &models.ExecutionResult{
				Success:      false,
				ErrorMessage: fmt.Sprintf("flow execution error: %v", r),
			}
		}
	}()

	flow, err := e.flows.FlowByID(ctx, flowID)
	if err != nil {
		if !persistence.IsFlowNotFound(err) {
			e.logger.ErrorContext(ctx, "Flow lookup failed", "flow_id", flowID, "error", err)
		}

		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: ErrFlowNotFound.Error(),
		}
	}

	if !flow.Active {
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: ErrFlowNotFound.Error(),
		}
	}

	node := e.resolveCurrentNode(flow, execCtx)
	if node == nil {
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: ErrNoStartNode.Error(),
		}
	}

	final := &models.ExecutionResult{
		Success:      false,
		ErrorMessage: "no response generated from flow",
	}

	for range maxIterations {
		// First visit means the interpreter just arrived here from
		// elsewhere, as opposed to resuming a held node.
		isFirstVisit := execCtx.CurrentNodeID != node.ID
		execCtx.CurrentNodeID = node.ID

		result := e.executeNode(ctx, flow, node, input, execCtx, isFirstVisit)

		if result.Success && len(result.VariablesUpdated) > 0 {
			for name, value := range result.VariablesUpdated {
				execCtx.SetVariable(name, value)
			}
		}

		execCtx.History = append(execCtx.History, models.HistoryEntry{
			Timestamp: time.Now().UTC(),
			NodeID:    node.ID,
			Input:     input,
			Response:  result.ResponseMessage,
			Variables: result.VariablesUpdated,
		})

		final = result

		if result.NextNodeID == execCtx.CurrentNodeID {
			// The node is holding for the next user message.
			break
		}

		if result.NextNodeID != "" {
			if next := flow.NodeByID(result.NextNodeID); next != nil {
				node = next
				input = result.Output

				continue
			}
		}

		break
	}

	return final
}

// resolveCurrentNode picks where this turn begins: the session's current
// node when it still exists in the flow, otherwise the flow's start node.
func (e *Engine) resolveCurrentNode(flow *models.Flow, execCtx *models.ExecutionContext) *models.Node {
	if execCtx.CurrentNodeID != "" {
		if node := flow.NodeByID(execCtx.CurrentNodeID); node != nil {
			return node
		}
	}

	return flow.StartNode()
}

// executeNode dispatches a node to its executor. The kind set is closed;
// anything else is reported as an unknown node kind.
func (e *Engine) executeNode(ctx context.Context, flow *models.Flow, node *models.Node, input string, execCtx *models.ExecutionContext, isFirstVisit bool) *models.ExecutionResult {
	metrics.NodeExecutions.WithLabelValues(string(node.Kind)).Inc()

	// Child span of the turn span when tracing is on; a noop otherwise.
	ctx, span := otel.Tracer("botflow/flow").Start(ctx, "flow.node", trace.WithAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
	))
	defer span.End()

	switch node.Kind {
	case models.NodeKindStart:
		return e.executeStartNode(flow, node)
	case models.NodeKindMessage:
		return e.executeMessageNode(ctx, flow, node, input, execCtx, isFirstVisit)
	case models.NodeKindCondition:
		return e.executeConditionNode(ctx, flow, node, input, execCtx)
	case models.NodeKindAction:
		return e.executeActionNode(ctx, flow, node, execCtx)
	case models.NodeKindWebhook:
		return e.executeWebhookNode(ctx, flow, node, input, execCtx)
	case models.NodeKindInput:
		return e.executeInputNode(flow, node, input, isFirstVisit)
	case models.NodeKindEnd:
		return e.executeEndNode(node, execCtx)
	default:
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("%s: %s", ErrUnknownNodeKind.Error(), node.Kind),
		}
	}
}
