package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_SendMessage(t *testing.T) {
	var gotPath string

	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	tg := NewTelegram(server.URL, slog.Default())
	result := tg.SendMessage(context.Background(), "token-1", "42", "hello", []string{"yes", "no"})

	assert.True(t, result.OK)
	assert.Equal(t, "/bottoken-1/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])

	markup, ok := gotBody["reply_markup"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, markup["one_time_keyboard"])
	assert.Len(t, markup["keyboard"], 2)
}

func TestTelegram_SendMessage_NoQuickRepliesOmitsKeyboard(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	tg := NewTelegram(server.URL, slog.Default())
	result := tg.SendMessage(context.Background(), "token-1", "42", "hello", nil)

	assert.True(t, result.OK)
	assert.NotContains(t, gotBody, "reply_markup")
}

func TestTelegram_BanChatMember_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "not enough rights"}`))
	}))
	defer server.Close()

	tg := NewTelegram(server.URL, slog.Default())
	result := tg.BanChatMember(context.Background(), "token-1", "42", "99")

	assert.False(t, result.OK)
	assert.Equal(t, "not enough rights", result.Description)
}

func TestTelegram_NetworkFailureIsReportedNotThrown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	tg := NewTelegram(server.URL, slog.Default())
	result := tg.DeleteMessage(context.Background(), "token-1", "42", "7")

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Description)
}
