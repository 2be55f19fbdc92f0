package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/log"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence/file"
	"github.com/chalique/botflow/pkg/testutil"
)

// fakeGateway records outbound calls and returns a canned result.
type fakeGateway struct {
	result gateway.Result
	calls  []string
}

func (g *fakeGateway) SendMessage(_ context.Context, _, chatID, text string, _ []string) gateway.Result {
	g.calls = append(g.calls, fmt.Sprintf("send:%s:%s", chatID, text))

	return g.result
}

func (g *fakeGateway) BanChatMember(_ context.Context, _, chatID, userID string) gateway.Result {
	g.calls = append(g.calls, fmt.Sprintf("ban:%s:%s", chatID, userID))

	return g.result
}

func (g *fakeGateway) UnbanChatMember(_ context.Context, _, chatID, userID string) gateway.Result {
	g.calls = append(g.calls, fmt.Sprintf("unban:%s:%s", chatID, userID))

	return g.result
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _, chatID, messageID string) gateway.Result {
	g.calls = append(g.calls, fmt.Sprintf("delete:%s:%s", chatID, messageID))

	return g.result
}

func newTestEngine(t *testing.T, flows ...*models.Flow) (*Engine, *fakeGateway) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	ctx := t.Context()

	bot := testutil.CreateTestBot(func(b *models.Bot) {
		b.ID = "bot-1"
		b.OwnerChatID = "owner-chat"
	})
	require.NoError(t, store.Bots().SaveBot(ctx, bot))

	for _, f := range flows {
		require.NoError(t, store.Flows().SaveFlow(ctx, f))
	}

	gw := &fakeGateway{result: gateway.Result{OK: true}}

	return NewEngine(store, gw, nil, log.WithModule("flow-test")), gw
}

func newExecContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		BotID:     "bot-1",
		UserID:    "user-1",
		ChatID:    "chat-1",
		SessionID: "tg_1_1",
		Variables: map[string]any{},
	}
}

func greetingFlow() *models.Flow {
	return testutil.CreateTestFlow("bot-1",
		func(f *models.Flow) { f.ID = "greeting" },
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("start"), testutil.WithKind(models.NodeKindStart)),
			testutil.CreateTestNode(testutil.WithID("hello"), testutil.WithContent("Hi! {{name}}")),
		),
		testutil.WithEdges(
			models.Edge{ID: "e1", Source: "start", Target: "hello"},
			models.Edge{ID: "e2", Source: "hello", Target: "A", Condition: "yes"},
			models.Edge{ID: "e3", Source: "hello", Target: "B", Condition: "no"},
		),
	)
}

func TestExecute_FlowNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	defer engine.Close()

	result := engine.Execute(t.Context(), "missing", "hi", newExecContext())

	assert.False(t, result.Success)
	assert.Equal(t, ErrFlowNotFound.Error(), result.ErrorMessage)
}

func TestExecute_InactiveFlow(t *testing.T) {
	flow := testutil.CreateTestFlow("bot-1",
		func(f *models.Flow) { f.ID = "greeting" },
		testutil.WithInactive(),
	)

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "greeting", "hi", newExecContext())

	assert.False(t, result.Success)
	assert.Equal(t, ErrFlowNotFound.Error(), result.ErrorMessage)
}

func TestExecute_EmptyFlowHasNoStartingNode(t *testing.T) {
	engine, _ := newTestEngine(t, &models.Flow{ID: "empty", BotID: "bot-1", Name: "Empty", Active: true})
	defer engine.Close()

	result := engine.Execute(t.Context(), "empty", "", newExecContext())

	assert.False(t, result.Success)
	assert.Equal(t, ErrNoStartNode.Error(), result.ErrorMessage)
}

func TestExecute_GreetingScenario(t *testing.T) {
	engine, _ := newTestEngine(t, greetingFlow())
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.Variables["name"] = "Ann"

	// First turn: start advances into the message node, which greets and
	// holds for the reply.
	result := engine.Execute(t.Context(), "greeting", "", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "Hi! Ann", result.ResponseMessage)
	assert.Equal(t, "hello", result.NextNodeID)
	assert.Equal(t, "hello", execCtx.CurrentNodeID)

	// Second turn: the reply routes through the "yes" edge with no
	// message of its own.
	result = engine.Execute(t.Context(), "greeting", "yes", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "A", result.NextNodeID)
	assert.Empty(t, result.ResponseMessage)
}

func TestExecute_StartNodeNeverEmitsMessage(t *testing.T) {
	flow := &models.Flow{
		ID:     "solo",
		BotID:  "bot-1",
		Name:   "Solo start",
		Active: true,
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart, Data: models.NodeData{Content: "should never be sent"}},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "solo", "hi", newExecContext())

	assert.Empty(t, result.ResponseMessage)
}

func TestExecute_MessageNodeClarifiesOnNoMatch(t *testing.T) {
	engine, _ := newTestEngine(t, greetingFlow())
	defer engine.Close()

	execCtx := newExecContext()
	engine.Execute(t.Context(), "greeting", "", execCtx)

	result := engine.Execute(t.Context(), "greeting", "something entirely different", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "hello", result.NextNodeID)
	assert.Equal(t, clarifyMessage, result.ResponseMessage)
}

func TestExecute_IterationCap(t *testing.T) {
	// Two action nodes looping over default edges forever.
	flow := testutil.CreateTestFlow("bot-1",
		func(f *models.Flow) { f.ID = "cycle" },
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("a"), testutil.WithAction(models.ActionLogEvent, "")),
			testutil.CreateTestNode(testutil.WithID("b"), testutil.WithAction(models.ActionLogEvent, "")),
		),
		testutil.WithEdges(
			models.Edge{ID: "e1", Source: "a", Target: "b"},
			models.Edge{ID: "e2", Source: "b", Target: "a"},
		),
	)

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	result := engine.Execute(t.Context(), "cycle", "go", execCtx)

	require.NotNil(t, result)
	assert.Len(t, execCtx.History, maxIterations)
}

func TestExecute_ConditionNumberScenario(t *testing.T) {
	flow := testutil.CreateTestFlow("bot-1",
		func(f *models.Flow) { f.ID = "numeric" },
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("check"), testutil.WithCondition(models.ConditionNumber, "")),
		),
		testutil.WithEdges(
			models.Edge{ID: "e1", Source: "check", Target: "is-number", Condition: "true"},
			models.Edge{ID: "e2", Source: "check", Target: "not-number", Condition: "false"},
		),
	)

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.CurrentNodeID = "check"

	result := engine.Execute(t.Context(), "numeric", "42", execCtx)
	require.True(t, result.Success)
	assert.Equal(t, "is-number", result.NextNodeID)
	assert.Equal(t, true, execCtx.Variables["last_condition_result"])

	execCtx = newExecContext()
	execCtx.CurrentNodeID = "check"

	result = engine.Execute(t.Context(), "numeric", "forty-two", execCtx)
	require.True(t, result.Success)
	assert.Equal(t, "not-number", result.NextNodeID)
	assert.Equal(t, false, execCtx.Variables["last_condition_result"])
}

func TestExecute_ActionSetVariable(t *testing.T) {
	flow := &models.Flow{
		ID:     "scoring",
		BotID:  "bot-1",
		Name:   "Scoring",
		Active: true,
		Nodes: []models.Node{
			{ID: "set", Kind: models.NodeKindAction, Data: models.NodeData{
				ActionType:   models.ActionSetVariable,
				ActionParams: `{"variable": "score", "value": 5}`,
			}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "set", Target: "five", Condition: "5"},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	result := engine.Execute(t.Context(), "scoring", "", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, float64(5), result.VariablesUpdated["score"])
	assert.Equal(t, "5", result.Output)

	// The stringified value routed through the matching edge.
	assert.Equal(t, "five", result.NextNodeID)
}

func TestExecute_ActionMalformedParamsIsEmptyMap(t *testing.T) {
	flow := &models.Flow{
		ID:     "broken-params",
		BotID:  "bot-1",
		Name:   "Broken params",
		Active: true,
		Nodes: []models.Node{
			{ID: "set", Kind: models.NodeKindAction, Data: models.NodeData{
				ActionType:   models.ActionSetVariable,
				ActionParams: `{not json`,
			}},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "broken-params", "", newExecContext())

	require.True(t, result.Success)
	assert.Empty(t, result.VariablesUpdated)
}

func TestExecute_ActionNotifyOwner(t *testing.T) {
	flow := &models.Flow{
		ID:     "escalate",
		BotID:  "bot-1",
		Name:   "Escalate",
		Active: true,
		Nodes: []models.Node{
			{ID: "notify", Kind: models.NodeKindAction, Data: models.NodeData{
				ActionType:   models.ActionNotifyOwner,
				ActionParams: `{"message": "User {{name}} needs help"}`,
			}},
		},
	}

	engine, gw := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.Variables["name"] = "Ann"

	result := engine.Execute(t.Context(), "escalate", "", execCtx)

	require.True(t, result.Success)
	assert.Contains(t, result.ActionsPerformed, "Owner notified")
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "send:owner-chat:User Ann needs help", gw.calls[0])
}

func TestExecute_ActionBanChatMember(t *testing.T) {
	flow := &models.Flow{
		ID:     "moderate",
		BotID:  "bot-1",
		Name:   "Moderate",
		Active: true,
		Nodes: []models.Node{
			{ID: "ban", Kind: models.NodeKindAction, Data: models.NodeData{
				ActionType: models.ActionBanChatMember,
			}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "ban", Target: "done", Condition: "true"},
			{ID: "e2", Source: "ban", Target: "failed", Condition: "false"},
		},
	}

	engine, gw := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "moderate", "", newExecContext())

	require.True(t, result.Success)
	assert.Equal(t, "true", result.Output)
	assert.Equal(t, "done", result.NextNodeID)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "ban:chat-1:user-1", gw.calls[0])
}

func TestExecute_ActionGatewayFailureRoutesFalse(t *testing.T) {
	flow := &models.Flow{
		ID:     "moderate",
		BotID:  "bot-1",
		Name:   "Moderate",
		Active: true,
		Nodes: []models.Node{
			{ID: "ban", Kind: models.NodeKindAction, Data: models.NodeData{
				ActionType: models.ActionBanChatMember,
			}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "ban", Target: "done", Condition: "true"},
			{ID: "e2", Source: "ban", Target: "failed", Condition: "false"},
		},
	}

	engine, gw := newTestEngine(t, flow)
	defer engine.Close()

	gw.result = gateway.Result{OK: false, Description: "not enough rights"}

	result := engine.Execute(t.Context(), "moderate", "", newExecContext())

	require.True(t, result.Success)
	assert.Equal(t, "false", result.Output)
	assert.Equal(t, "failed", result.NextNodeID)
}

func TestExecute_InputNodeStoresRawValue(t *testing.T) {
	flow := &models.Flow{
		ID:     "ask-age",
		BotID:  "bot-1",
		Name:   "Ask age",
		Active: true,
		Nodes: []models.Node{
			{ID: "ask", Kind: models.NodeKindInput, Data: models.NodeData{
				Prompt:       "How old are you?",
				VariableName: "age",
			}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "ask", Target: "next"},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()

	result := engine.Execute(t.Context(), "ask-age", "", execCtx)
	require.True(t, result.Success)
	assert.Equal(t, "How old are you?", result.ResponseMessage)
	assert.Equal(t, "ask", result.NextNodeID)

	// The reply is stored verbatim, with no coercion or validation.
	result = engine.Execute(t.Context(), "ask-age", "thirty", execCtx)
	require.True(t, result.Success)
	assert.Equal(t, "thirty", execCtx.Variables["age"])
}

func TestExecute_InputNodeWithoutVariableNameFails(t *testing.T) {
	flow := &models.Flow{
		ID:     "bad-input",
		BotID:  "bot-1",
		Name:   "Bad input",
		Active: true,
		Nodes: []models.Node{
			{ID: "ask", Kind: models.NodeKindInput},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "bad-input", "", newExecContext())

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestExecute_EndNodeInterpolatesAndTerminates(t *testing.T) {
	flow := &models.Flow{
		ID:     "bye",
		BotID:  "bot-1",
		Name:   "Bye",
		Active: true,
		Nodes: []models.Node{
			{ID: "end", Kind: models.NodeKindEnd, Data: models.NodeData{Content: "Bye, {{name}}!"}},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.Variables["name"] = "Ann"
	execCtx.CurrentNodeID = "end"

	result := engine.Execute(t.Context(), "bye", "ok", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "Bye, Ann!", result.ResponseMessage)
	assert.Empty(t, result.NextNodeID)
}

func TestExecute_UnknownNodeKindFails(t *testing.T) {
	flow := &models.Flow{
		ID:     "weird",
		BotID:  "bot-1",
		Name:   "Weird",
		Active: true,
		Nodes: []models.Node{
			{ID: "mystery", Kind: "teleport"},
		},
	}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	result := engine.Execute(t.Context(), "weird", "", newExecContext())

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "unknown node kind")
}

func webhookFlow(url string, retryCount int) *models.Flow {
	return &models.Flow{
		ID:     "hook",
		BotID:  "bot-1",
		Name:   "Hook",
		Active: true,
		Nodes: []models.Node{
			{ID: "call", Kind: models.NodeKindWebhook, Data: models.NodeData{
				WebhookURL:  url,
				Method:      "POST",
				RequestBody: `{"greeting": "hello {{name}}"}`,
				RetryCount:  retryCount,
			}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "call", Target: "after"},
		},
	}
}

func TestExecute_WebhookEnvelopeAndResponse(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message": "Order confirmed", "variables": {"order_id": "A-1"}}`)
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, webhookFlow(server.URL, 0))
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.Variables["name"] = "Ann"
	execCtx.CurrentNodeID = "call"

	result := engine.Execute(t.Context(), "hook", "place order", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "Order confirmed", result.ResponseMessage)
	assert.Equal(t, "A-1", execCtx.Variables["order_id"])

	// The interpolated body and the standard envelope were both present.
	assert.Equal(t, "hello Ann", received["greeting"])
	assert.Equal(t, "user-1", received["user_id"])
	assert.Equal(t, "tg_1_1", received["session_id"])
	assert.Equal(t, "place order", received["message"])
	assert.Equal(t, "hook", received["flow_id"])
	assert.Equal(t, "call", received["node_id"])
}

func TestExecute_WebhookRetriesThenFails(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, webhookFlow(server.URL, 2))
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.CurrentNodeID = "call"

	started := time.Now()
	result := engine.Execute(t.Context(), "hook", "", execCtx)
	elapsed := time.Since(started)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "webhook request failed")
	assert.Equal(t, int32(3), attempts.Load())

	// Two waits of one second between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
}

func TestExecute_WebhookMissingURL(t *testing.T) {
	engine, _ := newTestEngine(t, webhookFlow("", 0))
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.CurrentNodeID = "call"

	result := engine.Execute(t.Context(), "hook", "", execCtx)

	assert.False(t, result.Success)
	assert.Equal(t, ErrWebhookURLMissing.Error(), result.ErrorMessage)
}

func TestExecute_WebhookRawResponseStoredAsVariable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "plain text payload")
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, webhookFlow(server.URL, 0))
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.CurrentNodeID = "call"

	result := engine.Execute(t.Context(), "hook", "", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "plain text payload", execCtx.Variables["response"])
}

func TestExecute_WebhookResponseVariablesAllowList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "ok", "secret": "do-not-store"}`)
	}))
	defer server.Close()

	flow := webhookFlow(server.URL, 0)
	flow.Nodes[0].Data.ResponseVariables = []string{"status"}

	engine, _ := newTestEngine(t, flow)
	defer engine.Close()

	execCtx := newExecContext()
	execCtx.CurrentNodeID = "call"

	result := engine.Execute(t.Context(), "hook", "", execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "ok", execCtx.Variables["status"])
	assert.NotContains(t, execCtx.Variables, "secret")
}
