// Package web provides HTTP request and response types for the bot and
// flow management API.
package web

import "github.com/chalique/botflow/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateBotRequest represents the request body for registering a new bot.
type CreateBotRequest struct {
	Token       string `json:"token"         validate:"required"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	OwnerChatID string `json:"owner_chat_id"`
	Active      bool   `json:"active"`
}

// Bot converts the request into a domain bot for the service layer.
func (r CreateBotRequest) Bot() *models.Bot {
	return &models.Bot{
		Token:       r.Token,
		Username:    r.Username,
		FirstName:   r.FirstName,
		OwnerChatID: r.OwnerChatID,
		Active:      r.Active,
	}
}

// CreateFlowRequest represents the request body for creating a new flow.
// Nodes and edges may be supplied up front or added through updates.
type CreateFlowRequest struct {
	Name        string               `json:"name"        validate:"required,min=1,max=255"`
	Description string               `json:"description"`
	Active      bool                 `json:"active"`
	Default     bool                 `json:"default"`
	Nodes       []models.Node        `json:"nodes"`
	Edges       []models.Edge        `json:"edges"`
	Triggers    []models.FlowTrigger `json:"triggers,omitempty"`
	Variables   map[string]any       `json:"variables,omitempty"`
}

// Flow converts the request into a domain flow for the service layer.
func (r CreateFlowRequest) Flow() *models.Flow {
	return &models.Flow{
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		Default:     r.Default,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		Triggers:    r.Triggers,
		Variables:   r.Variables,
	}
}

// UpdateFlowRequest represents the request body for replacing a flow's
// authored content. Identity fields are taken from the URL, never the body.
type UpdateFlowRequest struct {
	Name        string               `json:"name"        validate:"required,min=1,max=255"`
	Description string               `json:"description"`
	Active      bool                 `json:"active"`
	Default     bool                 `json:"default"`
	Nodes       []models.Node        `json:"nodes"`
	Edges       []models.Edge        `json:"edges"`
	Triggers    []models.FlowTrigger `json:"triggers,omitempty"`
	Variables   map[string]any       `json:"variables,omitempty"`
}

// Flow converts the request into a domain flow for the service layer.
func (r UpdateFlowRequest) Flow() *models.Flow {
	return &models.Flow{
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		Default:     r.Default,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		Triggers:    r.Triggers,
		Variables:   r.Variables,
	}
}
