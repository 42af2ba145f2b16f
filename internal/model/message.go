// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status tracks the delivery state of an assistant message. The UI contract
// still treats empty content as "response pending"; Status exists alongside
// it so callers don't have to infer state from the content string.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a chat. ID, ChatID, and Role are
// immutable after creation; Content and Status are updated only by the
// orchestrator while a response is pending or when it settles.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a generated ID. An assistant message
// created with empty content is the loading placeholder and starts pending.
func NewMessage(chatID string, role Role, content string) *Message {
	status := StatusComplete
	if role == RoleAssistant && content == "" {
		status = StatusPending
	}
	return &Message{
		ID:        NewMessageID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// IsPending reports whether the message is a loading placeholder. Empty
// content is the authoritative signal; Status is the explicit mirror.
func (m *Message) IsPending() bool {
	return m.Role == RoleAssistant && m.Content == ""
}

// Preview returns a single-line, rune-safe preview of the content.
func (m *Message) Preview(maxRunes int) string {
	return previewLine(m.Content, maxRunes)
}
