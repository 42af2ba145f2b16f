// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

// DefaultTitle is the title a chat carries until its first user message.
const DefaultTitle = "New Chat"

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is a titled, timestamped conversation container. UpdatedAt is
// monotonically non-decreasing; it is bumped on every message append.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChat creates a chat with a generated ID. The title is synthesized from
// firstMessage, or DefaultTitle when no seed text is given.
func NewChat(firstMessage string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        NewChatID(),
		Title:     SynthesizeTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt, keeping it monotonically non-decreasing even if
// the wall clock steps backwards.
func (c *Chat) Touch() {
	if now := time.Now(); now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionState is the full persisted shape: every chat, every message list,
// and the currently selected chat ("" means none). Every chat id referenced
// by Messages has a corresponding entry in Chats; both sides are written in
// a single store transition.
type SessionState struct {
	Chats         []*Chat               `json:"chats"`
	Messages      map[string][]*Message `json:"messages"`
	CurrentChatID string                `json:"current_chat_id"`
}

// NewSessionState returns an empty session state.
func NewSessionState() *SessionState {
	return &SessionState{
		Chats:    make([]*Chat, 0),
		Messages: make(map[string][]*Message),
	}
}

// ChatByID returns the chat with the given id, or nil.
func (s *SessionState) ChatByID(id string) *Chat {
	for _, c := range s.Chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ChatsByRecency returns the chats sorted by UpdatedAt descending. The
// stored order is insertion order; sorting happens only for display.
func (s *SessionState) ChatsByRecency() []*Chat {
	out := make([]*Chat, len(s.Chats))
	copy(out, s.Chats)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Clone returns a deep copy of the session state. Messages are value
// copied so mutations on the clone never alias the original.
func (s *SessionState) Clone() *SessionState {
	clone := &SessionState{
		Chats:         make([]*Chat, len(s.Chats)),
		Messages:      make(map[string][]*Message, len(s.Messages)),
		CurrentChatID: s.CurrentChatID,
	}
	for i, c := range s.Chats {
		chatCopy := *c
		clone.Chats[i] = &chatCopy
	}
	for id, msgs := range s.Messages {
		list := make([]*Message, len(msgs))
		for i, m := range msgs {
			msgCopy := *m
			list[i] = &msgCopy
		}
		clone.Messages[id] = list
	}
	return clone
}
