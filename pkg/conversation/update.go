// Package conversation drives one messaging turn: it maps an incoming
// platform update onto a flow execution and renders the result as a
// webhook reply.
package conversation

// Update is the subset of a Telegram update the turn driver consumes.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// User is the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Reply is the JSON object returned to the messaging platform as a
// webhook reply. Its shape varies: a bare acknowledgement, or an inline
// Bot API method call such as sendMessage.
type Reply map[string]any

// ack acknowledges an update without sending anything.
func ack() Reply {
	return Reply{"ok": true}
}

// sendMessageReply renders a sendMessage webhook reply, attaching quick
// replies as a one-time reply keyboard.
func sendMessageReply(chatID int64, text string, quickReplies []string) Reply {
	reply := Reply{
		"method":  "sendMessage",
		"chat_id": chatID,
		"text":    text,
	}

	if len(quickReplies) > 0 {
		keyboard := make([][]map[string]string, 0, len(quickReplies))
		for _, quickReply := range quickReplies {
			keyboard = append(keyboard, []map[string]string{{"text": quickReply}})
		}

		reply["reply_markup"] = map[string]any{
			"keyboard":          keyboard,
			"resize_keyboard":   true,
			"one_time_keyboard": true,
		}
	}

	return reply
}
