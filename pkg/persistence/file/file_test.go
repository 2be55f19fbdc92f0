package file

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	tempDir := t.TempDir()

	p := NewPersistence(tempDir)
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence(filepath.Join(tempDir, "does-not-exist"))
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestPersistence_Close(t *testing.T) {
	p := NewPersistence(t.TempDir())
	assert.NoError(t, p.Close(t.Context()))
}

func TestFlowRepository_SaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := t.Context()

	flow := &models.Flow{
		ID:    "flow-1",
		BotID: "bot-1",
		Name:  "Greeting",
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart},
			{ID: "hello", Kind: models.NodeKindMessage, Data: models.NodeData{Content: "Hi! {{name}}"}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "start", Target: "hello"},
		},
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Flows().SaveFlow(ctx, flow))

	// File lands under flows/
	assert.FileExists(t, filepath.Join(tempDir, "flows", "flow-1.json"))

	loaded, err := p.Flows().FlowByID(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "Greeting", loaded.Name)
	assert.Len(t, loaded.Nodes, 2)
	assert.Equal(t, models.NodeKindMessage, loaded.Nodes[1].Kind)
	assert.Equal(t, "Hi! {{name}}", loaded.Nodes[1].Data.Content)
}

func TestFlowRepository_FlowByID_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Flows().FlowByID(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_FlowByID_InvalidID(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Flows().FlowByID(t.Context(), "../../etc/passwd")
	require.Error(t, err)
	assert.False(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_FlowsByBot(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "a", BotID: "bot-1", Name: "A"}))
	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "b", BotID: "bot-2", Name: "B"}))
	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "c", BotID: "bot-1", Name: "C"}))

	flows, err := p.Flows().FlowsByBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Len(t, flows, 2)

	// No flows for an unknown bot is a normal empty result
	flows, err = p.Flows().FlowsByBot(ctx, "bot-9")
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestFlowRepository_SetDefaultFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "a", BotID: "bot-1", Name: "A", Active: true, Default: true}))
	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "b", BotID: "bot-1", Name: "B", Active: true}))

	require.NoError(t, p.Flows().SetDefaultFlow(ctx, "bot-1", "b"))

	def, err := p.Flows().DefaultFlowByBot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "b", def.ID)

	// The previous default lost its flag
	a, err := p.Flows().FlowByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, a.Default)
}

func TestFlowRepository_DefaultFlowByBot_SkipsInactive(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "a", BotID: "bot-1", Name: "A", Default: true, Active: false}))

	_, err := p.Flows().DefaultFlowByBot(ctx, "bot-1")
	require.Error(t, err)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_DeleteFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.Flows().SaveFlow(ctx, &models.Flow{ID: "a", BotID: "bot-1", Name: "A"}))
	require.NoError(t, p.Flows().DeleteFlow(ctx, "a"))

	_, err := p.Flows().FlowByID(ctx, "a")
	assert.True(t, persistence.IsFlowNotFound(err))

	err = p.Flows().DeleteFlow(ctx, "a")
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestBotRepository_SaveAndLoad(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	bot := &models.Bot{
		ID:          "bot-1",
		Token:       "123:abc",
		Username:    "support_bot",
		OwnerChatID: "42",
		Active:      true,
	}

	require.NoError(t, p.Bots().SaveBot(ctx, bot))

	loaded, err := p.Bots().BotByID(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "support_bot", loaded.Username)

	byToken, err := p.Bots().BotByToken(ctx, "123:abc")
	require.NoError(t, err)
	assert.Equal(t, "bot-1", byToken.ID)

	_, err = p.Bots().BotByToken(ctx, "999:zzz")
	assert.True(t, persistence.IsBotNotFound(err))

	bots, err := p.Bots().Bots(ctx)
	require.NoError(t, err)
	assert.Len(t, bots, 1)
}

func TestBotRepository_DeleteBot(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.Bots().SaveBot(ctx, &models.Bot{ID: "bot-1", Token: "t"}))
	require.NoError(t, p.Bots().DeleteBot(ctx, "bot-1"))

	_, err := p.Bots().BotByID(ctx, "bot-1")
	assert.True(t, persistence.IsBotNotFound(err))
}
