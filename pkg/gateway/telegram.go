package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTelegramAPIURL is the production Bot API endpoint.
const DefaultTelegramAPIURL = "https://api.telegram.org"

const requestTimeout = 30 * time.Second

// Telegram implements Gateway over the Telegram Bot API.
type Telegram struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewTelegram creates a Telegram gateway. An empty baseURL selects the
// production API; tests point it at a local server.
func NewTelegram(baseURL string, logger *slog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramAPIURL
	}

	return &Telegram{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger.With("module", "telegram_gateway"),
	}
}

type replyKeyboard struct {
	Keyboard        [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard"`
	OneTimeKeyboard bool               `json:"one_time_keyboard"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers a text message, rendering quick replies as a
// one-time reply keyboard.
func (t *Telegram) SendMessage(ctx context.Context, botToken, chatID, text string, quickReplies []string) Result {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}

	if len(quickReplies) > 0 {
		keyboard := make([][]keyboardButton, len(quickReplies))
		for i, reply := range quickReplies {
			keyboard[i] = []keyboardButton{{Text: reply}}
		}

		payload["reply_markup"] = replyKeyboard{
			Keyboard:        keyboard,
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	}

	return t.call(ctx, botToken, "sendMessage", payload)
}

// BanChatMember permanently bans a user from a chat.
func (t *Telegram) BanChatMember(ctx context.Context, botToken, chatID, userID string) Result {
	return t.call(ctx, botToken, "banChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	})
}

// UnbanChatMember lifts a ban if one exists.
func (t *Telegram) UnbanChatMember(ctx context.Context, botToken, chatID, userID string) Result {
	return t.call(ctx, botToken, "unbanChatMember", map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	})
}

// DeleteMessage removes a message from a chat.
func (t *Telegram) DeleteMessage(ctx context.Context, botToken, chatID, messageID string) Result {
	return t.call(ctx, botToken, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
}

func (t *Telegram) call(ctx context.Context, botToken, method string, payload map[string]any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Description: fmt.Sprintf("failed to encode %s payload: %v", method, err)}
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Description: fmt.Sprintf("failed to create %s request: %v", method, err)}
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.WarnContext(ctx, "Telegram call failed", "method", method, "error", err)

		return Result{Description: fmt.Sprintf("%s request failed: %v", method, err)}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Description: fmt.Sprintf("failed to read %s response: %v", method, err)}
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{Description: fmt.Sprintf("failed to decode %s response: %v", method, err)}
	}

	if !parsed.OK {
		t.logger.WarnContext(ctx, "Telegram rejected call", "method", method, "description", parsed.Description)

		return Result{Description: parsed.Description}
	}

	return Result{OK: true}
}
