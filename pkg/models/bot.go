package models

import "time"

// Bot is a messaging bot the platform drives. OwnerChatID receives
// notify_owner action messages.
type Bot struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"      validate:"required"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	OwnerChatID string    `json:"owner_chat_id,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BotUpdate lists exactly the mutable bot fields for partial updates. Nil
// fields are left untouched.
type BotUpdate struct {
	Username    *string `json:"username,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	OwnerChatID *string `json:"owner_chat_id,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// Apply copies the set fields onto the bot.
func (u BotUpdate) Apply(b *Bot) {
	if u.Username != nil {
		b.Username = *u.Username
	}

	if u.FirstName != nil {
		b.FirstName = *u.FirstName
	}

	if u.OwnerChatID != nil {
		b.OwnerChatID = *u.OwnerChatID
	}

	if u.Active != nil {
		b.Active = *u.Active
	}
}
