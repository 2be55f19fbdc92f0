package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chalique/botflow/pkg/metrics"
	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/template"
)

// webhookRetryDelay is the pause between failed webhook attempts.
const webhookRetryDelay = 1 * time.Second

// webhookEnvelope is the standard payload merged into every outgoing
// webhook body. Target endpoints rely on this shape.
type webhookEnvelope struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Variables map[string]any `json:"variables"`
	FlowID    string         `json:"flow_id"`
	NodeID    string         `json:"node_id"`
}

// executeWebhookNode calls an external HTTP endpoint, retrying on failure,
// and folds the JSON response back into the conversation's variables.
func (e *Engine) executeWebhookNode(ctx context.Context, flow *models.Flow, node *models.Node, input string, execCtx *models.ExecutionContext) *models.ExecutionResult {
	if node.Data.WebhookURL == "" {
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: ErrWebhookURLMissing.Error(),
		}
	}

	method := strings.ToUpper(node.Data.Method)
	if method == "" {
		method = http.MethodPost
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return &models.ExecutionResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("unsupported HTTP method: %s", method),
		}
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(node.Data.Headers), &headers); err != nil {
		headers = map[string]string{}
	}

	body := e.buildWebhookBody(flow, node, input, execCtx)

	attempts := node.Data.RetryCount + 1

	var lastErr error

	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-time.After(webhookRetryDelay):
			case <-ctx.Done():
				return &models.ExecutionResult{
					Success:      false,
					ErrorMessage: fmt.Sprintf("%s: %v", ErrWebhookRequestFailed.Error(), ctx.Err()),
				}
			}
		}

		responseData, rawBody, err := e.callWebhook(ctx, method, node.Data.WebhookURL, headers, body)
		if err != nil {
			lastErr = err

			metrics.WebhookAttempts.WithLabelValues("failure").Inc()
			e.logger.WarnContext(ctx, "Webhook attempt failed",
				"node_id", node.ID, "url", node.Data.WebhookURL, "attempt", attempt+1, "error", err)

			continue
		}

		metrics.WebhookAttempts.WithLabelValues("success").Inc()

		return e.webhookSuccess(flow, node, method, responseData, rawBody)
	}

	return &models.ExecutionResult{
		Success:      false,
		ErrorMessage: fmt.Sprintf("%s: %v", ErrWebhookRequestFailed.Error(), lastErr),
	}
}

// buildWebhookBody interpolates the authored request body and merges the
// standard envelope into it. A body that is not valid JSON is sent as
// interpolated raw text without the envelope.
func (e *Engine) buildWebhookBody(flow *models.Flow, node *models.Node, input string, execCtx *models.ExecutionContext) []byte {
	raw := node.Data.RequestBody
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var bodyMap map[string]any
	if err := json.Unmarshal([]byte(raw), &bodyMap); err != nil {
		return []byte(template.Interpolate(raw, execCtx.Variables))
	}

	bodyMap, _ = template.InterpolateTree(bodyMap, execCtx.Variables).(map[string]any)
	if bodyMap == nil {
		bodyMap = map[string]any{}
	}

	envelope := webhookEnvelope{
		UserID:    execCtx.UserID,
		SessionID: execCtx.SessionID,
		Message:   input,
		Variables: execCtx.Variables,
		FlowID:    flow.ID,
		NodeID:    node.ID,
	}

	envelopeMap := map[string]any{}

	envelopeJSON, _ := json.Marshal(envelope)
	_ = json.Unmarshal(envelopeJSON, &envelopeMap)

	for key, value := range envelopeMap {
		bodyMap[key] = value
	}

	body, _ := json.Marshal(bodyMap)

	return body
}

// callWebhook performs one HTTP attempt. GET and DELETE requests carry no
// body. Non-2xx statuses count as failures and trigger a retry.
func (e *Engine) callWebhook(ctx context.Context, method, url string, headers map[string]string, body []byte) (map[string]any, string, error) {
	var reader io.Reader
	if method == http.MethodPost || method == http.MethodPut {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build webhook request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if reader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("webhook request error: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil, string(rawBody), nil
	}

	var responseData map[string]any
	if err := json.Unmarshal(rawBody, &responseData); err != nil {
		return nil, string(rawBody), nil
	}

	return responseData, string(rawBody), nil
}

// webhookSuccess maps a successful response onto the execution result:
// a "message" key becomes the reply, declared response variables (or a
// "variables" object) merge into the session, and anything else lands
// under the "response" variable.
func (e *Engine) webhookSuccess(flow *models.Flow, node *models.Node, method string, responseData map[string]any, rawBody string) *models.ExecutionResult {
	variablesUpdated := map[string]any{}
	responseMessage := ""

	if responseData != nil {
		if message, ok := responseData["message"].(string); ok {
			responseMessage = message
		}

		if len(node.Data.ResponseVariables) > 0 {
			for _, name := range node.Data.ResponseVariables {
				if value, ok := responseData[name]; ok {
					variablesUpdated[name] = value
				}
			}
		} else if vars, ok := responseData["variables"].(map[string]any); ok {
			for name, value := range vars {
				variablesUpdated[name] = value
			}
		}
	}

	if len(variablesUpdated) == 0 && responseMessage == "" && rawBody != "" {
		variablesUpdated["response"] = rawBody
	}

	return &models.ExecutionResult{
		Success:          true,
		NextNodeID:       findNextNode(flow, node.ID, ""),
		ResponseMessage:  responseMessage,
		VariablesUpdated: variablesUpdated,
		ActionsPerformed: []string{fmt.Sprintf("Webhook %s request to %s", method, node.Data.WebhookURL)},
	}
}
