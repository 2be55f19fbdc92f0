package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	root string // File system root for storing flows
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

// validateID validates that an identifier is safe for file operations.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	// Check for path traversal attempts
	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func (fr *FlowRepository) dir() string {
	return filepath.Join(fr.root, "flows")
}

// FlowByID loads a single flow from the file system.
func (fr *FlowRepository) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	data, err := os.ReadFile(filepath.Join(fr.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, fmt.Errorf("failed to unmarshal flow: %w", err))
	}

	return &flow, nil
}

// FlowsByBot returns every flow belonging to a bot, in file name order.
func (fr *FlowRepository) FlowsByBot(ctx context.Context, botID string) ([]*models.Flow, error) {
	all, err := fr.loadAll()
	if err != nil {
		return nil, persistence.NewFlowError("FlowsByBot", botID, err)
	}

	flows := make([]*models.Flow, 0)

	for _, flow := range all {
		if flow.BotID == botID {
			flows = append(flows, flow)
		}
	}

	return flows, nil
}

// DefaultFlowByBot returns the active default flow for a bot, or
// ErrFlowNotFound when the bot has none.
func (fr *FlowRepository) DefaultFlowByBot(ctx context.Context, botID string) (*models.Flow, error) {
	flows, err := fr.FlowsByBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	for _, flow := range flows {
		if flow.Default && flow.Active {
			return flow, nil
		}
	}

	return nil, persistence.NewFlowError("DefaultFlowByBot", botID, persistence.ErrFlowNotFound)
}

// SaveFlow writes a flow to the file system.
func (fr *FlowRepository) SaveFlow(_ context.Context, flow *models.Flow) error {
	if err := validateID(flow.ID); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	if err := os.MkdirAll(fr.dir(), 0755); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, fmt.Errorf("failed to create flows directory: %w", err))
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, fmt.Errorf("failed to marshal flow: %w", err))
	}

	filePath := filepath.Join(fr.dir(), flow.ID+".json")
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, fmt.Errorf("failed to write flow file: %w", err))
	}

	return nil
}

// DeleteFlow removes a flow from the file system.
func (fr *FlowRepository) DeleteFlow(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	err := os.Remove(filepath.Join(fr.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	return nil
}

// SetDefaultFlow marks one flow as the bot's default and clears the flag on
// every other flow of the same bot.
func (fr *FlowRepository) SetDefaultFlow(ctx context.Context, botID, flowID string) error {
	flows, err := fr.FlowsByBot(ctx, botID)
	if err != nil {
		return err
	}

	var target *models.Flow

	for _, flow := range flows {
		if flow.ID == flowID {
			target = flow

			break
		}
	}

	if target == nil {
		return persistence.NewFlowError("SetDefaultFlow", flowID, persistence.ErrFlowNotFound)
	}

	for _, flow := range flows {
		wasDefault := flow.Default
		flow.Default = flow.ID == flowID

		if flow.Default == wasDefault {
			continue
		}

		if err := fr.SaveFlow(ctx, flow); err != nil {
			return err
		}
	}

	return nil
}

// loadAll decodes every flow file under the flows directory. A missing
// directory means no flow was ever saved.
func (fr *FlowRepository) loadAll() ([]*models.Flow, error) {
	if _, err := os.Stat(fr.dir()); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(fr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read flow file %s: %w", name, err)
		}

		var flow models.Flow
		if err := json.Unmarshal(data, &flow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow file %s: %w", name, err)
		}

		flows = append(flows, &flow)
	}

	return flows, nil
}
