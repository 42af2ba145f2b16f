// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/frontdesk/internal/model"
)

// SessionStore is the single shared mutable resource of the session core.
// All mutations are serialized through one mutex, so no partial writes are
// ever observable. Messages are created by the orchestrator only; the UI
// layer reads through the accessors.
type SessionStore struct {
	mu      sync.Mutex
	state   *model.SessionState
	adapter Adapter
	logger  *slog.Logger
}

// NewSessionStore creates a store backed by the given adapter and loads the
// persisted state. A nil adapter yields a memory-only store. An unreadable
// or stale persisted record logs a warning and starts empty rather than
// failing construction.
func NewSessionStore(adapter Adapter, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SessionStore{
		state:   model.NewSessionState(),
		adapter: adapter,
		logger:  logger,
	}

	if adapter != nil {
		state, err := adapter.Load()
		if err != nil {
			logger.Warn("failed to load session state, starting empty", "error", err)
		} else {
			s.state = state
		}
	}
	return s
}

// flush persists the current state. Called with the mutex held. Failures
// are logged and swallowed: store operations are total functions.
func (s *SessionStore) flush() {
	if s.adapter == nil {
		return
	}
	if err := s.adapter.Save(s.state); err != nil {
		s.logger.Error("failed to persist session state", "error", err)
	}
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// CreateChat allocates a new chat, seeds its title from firstMessage (or
// DefaultTitle when empty), selects it as current, and returns its id.
func (s *SessionStore) CreateChat(firstMessage string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := model.NewChat(firstMessage)
	s.state.Chats = append(s.state.Chats, chat)
	s.state.Messages[chat.ID] = make([]*model.Message, 0)
	s.state.CurrentChatID = chat.ID

	s.flush()
	return chat.ID
}

// DeleteChat removes a chat and its message list. If it was the current
// chat, the most recently updated remaining chat becomes current, or none.
func (s *SessionStore) DeleteChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	chats := make([]*model.Chat, 0, len(s.state.Chats))
	for _, c := range s.state.Chats {
		if c.ID == chatID {
			found = true
			continue
		}
		chats = append(chats, c)
	}
	if !found {
		return
	}
	s.state.Chats = chats
	delete(s.state.Messages, chatID)

	if s.state.CurrentChatID == chatID {
		s.state.CurrentChatID = ""
		var latest *model.Chat
		for _, c := range s.state.Chats {
			if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
				latest = c
			}
		}
		if latest != nil {
			s.state.CurrentChatID = latest.ID
		}
	}

	s.flush()
}

// SetCurrentChat stores the selection as-is. Callers are responsible for
// passing a known id; "" clears the selection.
func (s *SessionStore) SetCurrentChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentChatID = chatID
	s.flush()
}

// CurrentChatID returns the currently selected chat id, or "".
func (s *SessionStore) CurrentChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentChatID
}

// ChatByID returns a copy of the chat, or nil if unknown.
func (s *SessionStore) ChatByID(chatID string) *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.state.ChatByID(chatID)
	if c == nil {
		return nil
	}
	chatCopy := *c
	return &chatCopy
}

// Chats returns all chats sorted by UpdatedAt descending.
func (s *SessionStore) Chats() []*model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.state.ChatsByRecency()
	out := make([]*model.Chat, len(recent))
	for i, c := range recent {
		chatCopy := *c
		out[i] = &chatCopy
	}
	return out
}

// ClearAllChats resets chats, messages, and the selection.
func (s *SessionStore) ClearAllChats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = model.NewSessionState()
	s.flush()
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AddMessage constructs and appends a message, bumps the chat's UpdatedAt,
// and synthesizes the title if this is the chat's first user message. The
// returned message is a copy. Unknown chat ids are a no-op returning nil.
func (s *SessionStore) AddMessage(chatID string, role model.Role, content string) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.state.ChatByID(chatID)
	if chat == nil {
		return nil
	}

	msg := model.NewMessage(chatID, role, content)

	if role == model.RoleUser && !s.hasUserMessage(chatID) {
		chat.Title = model.SynthesizeTitle(content)
	}

	s.state.Messages[chatID] = append(s.state.Messages[chatID], msg)
	chat.Touch()

	s.flush()

	msgCopy := *msg
	return &msgCopy
}

// hasUserMessage reports whether the chat already has a user-role message.
// Called with the mutex held.
func (s *SessionStore) hasUserMessage(chatID string) bool {
	for _, m := range s.state.Messages[chatID] {
		if m.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// UpdateMessage replaces a message's content in place and marks an
// assistant placeholder complete. No-op if the id is not found.
func (s *SessionStore) UpdateMessage(chatID, messageID, content string) {
	s.setContent(chatID, messageID, content, model.StatusComplete)
}

// FailMessage replaces a message's content (typically the user-facing
// apology) and marks it failed. No-op if the id is not found.
func (s *SessionStore) FailMessage(chatID, messageID, content string) {
	s.setContent(chatID, messageID, content, model.StatusFailed)
}

func (s *SessionStore) setContent(chatID, messageID, content string, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.state.Messages[chatID] {
		if m.ID == messageID {
			m.Content = content
			if m.Role == model.RoleAssistant {
				m.Status = status
			}
			s.flush()
			return
		}
	}
}

// DeleteMessage removes exactly one message by id. No-op if not found.
func (s *SessionStore) DeleteMessage(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.state.Messages[chatID]
	for i, m := range msgs {
		if m.ID == messageID {
			s.state.Messages[chatID] = append(msgs[:i], msgs[i+1:]...)
			s.flush()
			return
		}
	}
}

// Messages returns copies of the chat's messages in append order. Unknown
// ids yield an empty slice.
func (s *SessionStore) Messages(chatID string) []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.state.Messages[chatID]
	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		msgCopy := *m
		out[i] = &msgCopy
	}
	return out
}

// LastMessageByRole returns a copy of the chat's most recent message with
// the given role, scanning from the end, or nil.
func (s *SessionStore) LastMessageByRole(chatID string, role model.Role) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.state.Messages[chatID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			msgCopy := *msgs[i]
			return &msgCopy
		}
	}
	return nil
}

// MessageCount returns the number of messages in the chat.
func (s *SessionStore) MessageCount(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Messages[chatID])
}

// Snapshot returns a deep copy of the whole session state.
func (s *SessionStore) Snapshot() *model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// =============================================================================
// SEARCH & EXPORT
// =============================================================================

// Search returns chats whose title or message content contains the query,
// case-insensitive, most recent first. An empty query returns all chats.
func (s *SessionStore) Search(query string) []*model.Chat {
	if query == "" {
		return s.Chats()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(query)
	var out []*model.Chat
	for _, c := range s.state.ChatsByRecency() {
		if s.chatMatches(c, query) {
			chatCopy := *c
			out = append(out, &chatCopy)
		}
	}
	return out
}

// chatMatches is called with the mutex held.
func (s *SessionStore) chatMatches(c *model.Chat, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(c.Title), lowerQuery) {
		return true
	}
	for _, m := range s.state.Messages[c.ID] {
		if strings.Contains(strings.ToLower(m.Content), lowerQuery) {
			return true
		}
	}
	return false
}

// ExportMarkdown renders a chat transcript as Markdown. Unknown ids yield
// an empty string.
func (s *SessionStore) ExportMarkdown(chatID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.state.ChatByID(chatID)
	if chat == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# " + chat.Title + "\n\n")
	sb.WriteString("Created: " + chat.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, m := range s.state.Messages[chatID] {
		sb.WriteString("**" + m.Role.DisplayName() + "** (" + m.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(m.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a chat and its messages as pretty-printed JSON.
func (s *SessionStore) ExportJSON(chatID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.state.ChatByID(chatID)
	if chat == nil {
		return nil, &AdapterError{Message: "chat not found"}
	}

	return json.MarshalIndent(struct {
		Chat     *model.Chat      `json:"chat"`
		Messages []*model.Message `json:"messages"`
	}{chat, s.state.Messages[chatID]}, "", "  ")
}
