package models

import "time"

// Edge is a directed transition between two nodes. An empty condition marks
// the unconditional default edge for its source node.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source" validate:"required"`
	Target    string `json:"target" validate:"required"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}

// TriggerType classifies how a flow can be entered from outside.
type TriggerType string

const (
	TriggerKeyword TriggerType = "keyword"
	TriggerIntent  TriggerType = "intent"
	TriggerEvent   TriggerType = "event"
	TriggerWebhook TriggerType = "webhook"
)

// FlowTrigger is authored metadata describing an entry point for a flow.
type FlowTrigger struct {
	ID     string      `json:"id"`
	Type   TriggerType `json:"type"   validate:"required,oneof=keyword intent event webhook"`
	Value  string      `json:"value"`
	Active bool        `json:"active"`
}

// Flow is an authored conversation graph. It is immutable during a single
// turn's execution; edits go through the authoring API between turns.
type Flow struct {
	ID          string         `json:"id"`
	BotID       string         `json:"bot_id"`
	Name        string         `json:"name"        validate:"required,min=1,max=255"`
	Description string         `json:"description,omitempty"`
	Active      bool           `json:"active"`
	Default     bool           `json:"default"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Triggers    []FlowTrigger  `json:"triggers,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil when the flow has no
// such node.
func (f *Flow) NodeByID(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}

	return nil
}

// StartNode returns the node a fresh session begins at: the first node of
// kind start, or the first node in definition order when no start node
// exists. Returns nil for an empty flow.
func (f *Flow) StartNode() *Node {
	for i := range f.Nodes {
		if f.Nodes[i].Kind == NodeKindStart {
			return &f.Nodes[i]
		}
	}

	if len(f.Nodes) == 0 {
		return nil
	}

	return &f.Nodes[0]
}

// OutgoingEdges returns the edges leaving the given node, in definition
// order. Definition order is load-bearing for edge routing.
func (f *Flow) OutgoingEdges(nodeID string) []Edge {
	var out []Edge

	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			out = append(out, edge)
		}
	}

	return out
}

// FlowUpdate lists exactly the mutable flow fields for partial updates. Nil
// fields are left untouched.
type FlowUpdate struct {
	Name        *string         `json:"name,omitempty"        validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description,omitempty"`
	Active      *bool           `json:"active,omitempty"`
	Default     *bool           `json:"default,omitempty"`
	Nodes       *[]Node         `json:"nodes,omitempty"`
	Edges       *[]Edge         `json:"edges,omitempty"`
	Triggers    *[]FlowTrigger  `json:"triggers,omitempty"`
	Variables   *map[string]any `json:"variables,omitempty"`
}

// Apply copies the set fields onto the flow.
func (u FlowUpdate) Apply(f *Flow) {
	if u.Name != nil {
		f.Name = *u.Name
	}

	if u.Description != nil {
		f.Description = *u.Description
	}

	if u.Active != nil {
		f.Active = *u.Active
	}

	if u.Default != nil {
		f.Default = *u.Default
	}

	if u.Nodes != nil {
		f.Nodes = *u.Nodes
	}

	if u.Edges != nil {
		f.Edges = *u.Edges
	}

	if u.Triggers != nil {
		f.Triggers = *u.Triggers
	}

	if u.Variables != nil {
		f.Variables = *u.Variables
	}
}
