// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/chalique/botflow/pkg/models"
)

// CreateTestNode creates a message node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) models.Node {
	node := models.Node{
		ID:    uuid.New().String(),
		Label: "Test Node",
		Kind:  models.NodeKindMessage,
		Data:  models.NodeData{Content: "Hello!"},
	}

	for _, override := range overrides {
		override(&node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithKind sets the node kind.
func WithKind(kind models.NodeKind) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
	}
}

// WithContent sets the message content.
func WithContent(content string) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Content = content
	}
}

// WithCondition configures the node as a condition node.
func WithCondition(conditionType models.ConditionType, value string) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindCondition
		n.Data = models.NodeData{
			ConditionType:  conditionType,
			ConditionValue: value,
		}
	}
}

// WithAction configures the node as an action node.
func WithAction(actionType models.ActionType, params string) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindAction
		n.Data = models.NodeData{
			ActionType:   actionType,
			ActionParams: params,
		}
	}
}

// CreateTestFlow creates an active default flow with a start node wired to
// a greeting message. Overrides run after the defaults are set.
func CreateTestFlow(botID string, overrides ...func(*models.Flow)) *models.Flow {
	flow := &models.Flow{
		ID:      uuid.New().String(),
		BotID:   botID,
		Name:    "Test Flow",
		Active:  true,
		Default: true,
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart},
			CreateTestNode(WithID("greeting")),
		},
		Edges: []models.Edge{
			{Source: "start", Target: "greeting"},
		},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithNodes replaces the flow's nodes.
func WithNodes(nodes ...models.Node) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Nodes = nodes
	}
}

// WithEdges replaces the flow's edges.
func WithEdges(edges ...models.Edge) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Edges = edges
	}
}

// WithInactive marks the flow inactive.
func WithInactive() func(*models.Flow) {
	return func(f *models.Flow) {
		f.Active = false
	}
}

// CreateTestBot creates an active bot with default values that can be
// overridden.
func CreateTestBot(overrides ...func(*models.Bot)) *models.Bot {
	bot := &models.Bot{
		ID:        uuid.New().String(),
		Token:     "123456:" + uuid.New().String(),
		Username:  "test_bot",
		FirstName: "Test Bot",
		Active:    true,
	}

	for _, override := range overrides {
		override(bot)
	}

	return bot
}
