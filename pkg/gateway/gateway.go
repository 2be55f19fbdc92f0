// Package gateway delivers bot messages and moderation commands to the
// messaging platform.
package gateway

import "context"

// Result reports the outcome of a gateway call. Gateway methods never
// return errors into the flow interpreter; failures are folded into the
// result so node executors can route on them.
type Result struct {
	OK          bool
	Description string
}

// Gateway is the outbound messaging boundary: message delivery plus the
// moderation primitives used by action nodes.
type Gateway interface {
	SendMessage(ctx context.Context, botToken, chatID, text string, quickReplies []string) Result
	BanChatMember(ctx context.Context, botToken, chatID, userID string) Result
	UnbanChatMember(ctx context.Context, botToken, chatID, userID string) Result
	DeleteMessage(ctx context.Context, botToken, chatID, messageID string) Result
}
