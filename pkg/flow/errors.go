package flow

import "errors"

// Failure categories surfaced in ExecutionResult error messages. Node
// executors never propagate errors to the interpreter's caller; these
// sentinels exist so tests and callers can classify failure results.
var (
	// ErrFlowNotFound indicates the flow does not exist or is inactive.
	ErrFlowNotFound = errors.New("flow not found or inactive")

	// ErrNoStartNode indicates the flow has no executable starting node.
	ErrNoStartNode = errors.New("no valid starting node found")

	// ErrUnknownNodeKind indicates a node kind outside the closed set.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrWebhookURLMissing indicates a webhook node without a URL.
	ErrWebhookURLMissing = errors.New("webhook URL not specified")

	// ErrWebhookRequestFailed indicates retry exhaustion on a webhook call.
	ErrWebhookRequestFailed = errors.New("webhook request failed")
)
