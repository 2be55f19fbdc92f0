package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

// Flow is the authoring service for conversation flows.
type Flow struct {
	persistence persistence.Persistence
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence) *Flow {
	return &Flow{persistence: persistence}
}

// HealthCheck checks the health of the persistence layer.
func (s *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchByID retrieves a flow by its ID.
func (s *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return s.persistence.Flows().FlowByID(ctx, id)
}

// ListByBot retrieves every flow belonging to a bot.
func (s *Flow) ListByBot(ctx context.Context, botID string) ([]*models.Flow, error) {
	return s.persistence.Flows().FlowsByBot(ctx, botID)
}

// Create adds a new flow for a bot.
func (s *Flow) Create(ctx context.Context, botID string, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	if err := s.validate(flow); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flow.ID = uuid.New().String()
	flow.BotID = botID
	flow.CreatedAt = now
	flow.UpdatedAt = now

	if err := s.persistence.Flows().SaveFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	return flow, nil
}

// Update replaces an existing flow wholesale, keeping its identity and
// creation time.
func (s *Flow) Update(ctx context.Context, flowID string, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	existing, err := s.persistence.Flows().FlowByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if err := s.validate(flow); err != nil {
		return nil, err
	}

	flow.ID = flowID
	flow.BotID = existing.BotID
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Flows().SaveFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	return flow, nil
}

// Patch applies a partial update to an existing flow. Only the fields set
// in the update are touched.
func (s *Flow) Patch(ctx context.Context, flowID string, update models.FlowUpdate) (*models.Flow, error) {
	existing, err := s.persistence.Flows().FlowByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	update.Apply(existing)

	if err := s.validate(existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Flows().SaveFlow(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to patch flow: %w", err)
	}

	return existing, nil
}

// Delete removes a flow by its ID.
func (s *Flow) Delete(ctx context.Context, flowID string) error {
	if _, err := s.persistence.Flows().FlowByID(ctx, flowID); err != nil {
		return err
	}

	if err := s.persistence.Flows().DeleteFlow(ctx, flowID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	return nil
}

// SetDefault marks a flow as the bot's default conversation entry point.
func (s *Flow) SetDefault(ctx context.Context, botID, flowID string) error {
	return s.persistence.Flows().SetDefaultFlow(ctx, botID, flowID)
}

// validate applies shape checks an authored flow must pass before it is
// stored.
func (s *Flow) validate(flow *models.Flow) error {
	if strings.TrimSpace(flow.Name) == "" {
		return ErrFlowNameRequired
	}

	if err := validateNodes(flow.Nodes); err != nil {
		return err
	}

	for _, edge := range flow.Edges {
		if edge.Source == "" || edge.Target == "" {
			return NewValidationError(
				"validate",
				"INVALID_EDGE",
				fmt.Sprintf("edge %s is missing its source or target", edge.ID),
				ErrEdgeEndpointMissing,
			)
		}
	}

	return nil
}
