package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/cdp"
)

// WorkflowName is the single workflow entry point inside every copy project.
const WorkflowName = "vs_copy_all"

// Manager drives Digdag project deployment and execution on the workflow
// host, plus td2td connection management on the REST API host. Both clients
// authenticate as the source account.
type Manager struct {
	Workflow *cdp.Client
	API      *cdp.Client
	Logger   *zap.Logger

	now func() time.Time
}

// NewManager builds a manager for one region, authenticated with the source
// API key.
func NewManager(region cdp.Region, apiKey string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		Workflow: cdp.NewClient("https://"+region.WorkflowHost, apiKey, logger),
		API:      cdp.NewClient("https://"+region.APIHost, apiKey, logger),
		Logger:   logger,
		now:      time.Now,
	}
}

// clock tolerates zero-value construction in tests.
func (m *Manager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// CreateConnection registers a treasure_data result connection pointing at
// the destination instance. Workflows reference it by name.
func (m *Manager) CreateConnection(ctx context.Context, name, description, destKey, destHost string) error {
	payload := map[string]interface{}{
		"name":        name,
		"description": description,
		"type":        "treasure_data",
		"settings": map[string]interface{}{
			"api_key":      destKey,
			"api_hostname": destHost,
		},
		"shared":      false,
		"user":        nil,
		"permissions": map[string]bool{"update": true, "destroy": true},
	}
	if _, err := m.API.Post(ctx, "v4/connections", payload); err != nil {
		return fmt.Errorf("creating td2td connection %s: %w", name, err)
	}
	m.Logger.Info("created td2td connection", zap.String("name", name))
	return nil
}

// DeployProject uploads a project bundle under a fresh revision and returns
// the project id.
func (m *Manager) DeployProject(ctx context.Context, projectName string, archive []byte) (string, error) {
	path := fmt.Sprintf("api/projects?project=%s&revision=%s", projectName, uuid.NewString())
	body, err := m.Workflow.Do(ctx, http.MethodPut, path, "application/gzip", archive)
	if err != nil {
		return "", fmt.Errorf("uploading project %s: %w", projectName, err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding project response: %w", err)
	}
	id := cast.ToString(resp["id"])
	if id == "" {
		return "", fmt.Errorf("project %s: response carries no id", projectName)
	}
	m.Logger.Info("deployed project", zap.String("project", projectName), zap.String("id", id))
	return id, nil
}

// WorkflowID resolves the workflow inside a deployed project.
func (m *Manager) WorkflowID(ctx context.Context, projectID string) (string, error) {
	var resp map[string]interface{}
	if err := m.Workflow.GetJSON(ctx, fmt.Sprintf("api/projects/%s/workflows/%s", projectID, WorkflowName), &resp); err != nil {
		return "", fmt.Errorf("resolving workflow in project %s: %w", projectID, err)
	}
	id := cast.ToString(resp["id"])
	if id == "" {
		return "", fmt.Errorf("project %s: workflow has no id", projectID)
	}
	return id, nil
}

// Start launches an attempt of the workflow and returns the attempt id.
func (m *Manager) Start(ctx context.Context, workflowID string) (string, error) {
	payload := map[string]interface{}{
		"workflowId":  workflowID,
		"sessionTime": m.clock().UTC().Format("2006-01-02T15:04:05Z"),
		"params":      map[string]interface{}{},
	}
	body, err := m.Workflow.Put(ctx, "api/attempts", payload)
	if err != nil {
		return "", fmt.Errorf("starting workflow %s: %w", workflowID, err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding attempt response: %w", err)
	}
	id := cast.ToString(resp["id"])
	if id == "" {
		return "", fmt.Errorf("workflow %s: attempt has no id", workflowID)
	}
	m.Logger.Info("started workflow attempt", zap.String("workflow", workflowID), zap.String("attempt", id))
	return id, nil
}

// AttemptStatus fetches the current status string of an attempt.
func (m *Manager) AttemptStatus(ctx context.Context, attemptID string) (string, error) {
	var resp map[string]interface{}
	if err := m.Workflow.GetJSON(ctx, "api/attempts/"+attemptID, &resp); err != nil {
		return "", err
	}
	return cast.ToString(resp["status"]), nil
}
