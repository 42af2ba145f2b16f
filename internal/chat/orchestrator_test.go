// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/frontdesk/internal/model"
	"github.com/jeranaias/frontdesk/internal/store"
	"github.com/jeranaias/frontdesk/internal/webhook"
)

// fakeSender scripts the webhook client. The hook receives the message
// and may block on the context to simulate a slow endpoint.
type fakeSender struct {
	mu    sync.Mutex
	calls []string
	hook  func(ctx context.Context, message string) (webhook.Reply, error)
}

func (f *fakeSender) Send(ctx context.Context, message, sessionID, chatID string) (webhook.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, message)
	f.mu.Unlock()
	if f.hook != nil {
		return f.hook(ctx, message)
	}
	return webhook.Reply{Text: "reply to: " + message, Field: "output"}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestOrchestrator(t *testing.T, hook func(ctx context.Context, message string) (webhook.Reply, error)) (*Orchestrator, *store.SessionStore, *fakeSender) {
	t.Helper()
	s := store.NewSessionStore(nil, nil)
	f := &fakeSender{hook: hook}
	return New(s, f, nil), s, f
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendMessage_Success(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	o.SendMessage("Hi there, can you help me?", "")

	chatID := s.CurrentChatID()
	require.NotEmpty(t, chatID, "a chat should have been created")

	chat := s.ChatByID(chatID)
	require.NotNil(t, chat)
	assert.Equal(t, "Hi there, can you help me?", chat.Title)

	msgs := s.Messages(chatID)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hi there, can you help me?", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "reply to: Hi there, can you help me?", msgs[1].Content)
	assert.Equal(t, model.StatusComplete, msgs[1].Status)

	assert.False(t, o.IsLoading())
	assert.Equal(t, "", o.LastError())
}

func TestSendMessage_TrimsContent(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	o.SendMessage("  hello  \n", "")

	msgs := s.Messages(s.CurrentChatID())
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSendMessage_EmptyContentIgnored(t *testing.T) {
	o, s, f := newTestOrchestrator(t, nil)

	o.SendMessage("", "")
	o.SendMessage("   \n\t", "")

	assert.Empty(t, s.Chats())
	assert.Equal(t, 0, f.callCount())
}

func TestSendMessage_UsesCurrentChat(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	id := s.CreateChat("")
	o.SendMessage("question", "")

	assert.Equal(t, id, s.CurrentChatID())
	assert.Len(t, s.Messages(id), 2)
	assert.Len(t, s.Chats(), 1, "no extra chat should be created")
}

func TestSendMessage_ExplicitChatIDWins(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	first := s.CreateChat("")
	second := s.CreateChat("")
	require.Equal(t, second, s.CurrentChatID())

	o.SendMessage("to the first chat", first)

	assert.Len(t, s.Messages(first), 2)
	assert.Empty(t, s.Messages(second))
}

func TestSendMessage_UnknownChatIDCreatesChat(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	o.SendMessage("hello", "chat_gone")

	assert.Empty(t, s.Messages("chat_gone"))
	chatID := s.CurrentChatID()
	require.NotEmpty(t, chatID)
	assert.Len(t, s.Messages(chatID), 2)
}

// =============================================================================
// ERROR PATH TESTS
// =============================================================================

func TestSendMessage_FailureWritesApology(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, func(ctx context.Context, message string) (webhook.Reply, error) {
		return webhook.Reply{}, &webhook.StatusError{Status: 502}
	})

	o.SendMessage("hello", "")

	msgs := s.Messages(s.CurrentChatID())
	require.Len(t, msgs, 2)
	assert.Equal(t, ErrorReply, msgs[1].Content)
	assert.Equal(t, model.StatusFailed, msgs[1].Status)

	assert.False(t, o.IsLoading())
	assert.Equal(t, "Request failed with status 502", o.LastError())
}

func TestSendMessage_NewSendClearsLastError(t *testing.T) {
	fail := true
	o, _, _ := newTestOrchestrator(t, func(ctx context.Context, message string) (webhook.Reply, error) {
		if fail {
			return webhook.Reply{}, &webhook.StatusError{Status: 500}
		}
		return webhook.Reply{Text: "ok"}, nil
	})

	o.SendMessage("first", "")
	require.NotEmpty(t, o.LastError())

	fail = false
	o.SendMessage("second", "")
	assert.Equal(t, "", o.LastError())
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestCancelRequest_LeavesSentinelUntouched(t *testing.T) {
	started := make(chan struct{})
	o, s, _ := newTestOrchestrator(t, func(ctx context.Context, message string) (webhook.Reply, error) {
		close(started)
		<-ctx.Done()
		return webhook.Reply{}, ctx.Err()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.SendMessage("hello", "")
	}()

	<-started
	assert.True(t, o.IsLoading())
	o.CancelRequest()
	wg.Wait()

	msgs := s.Messages(s.CurrentChatID())
	require.Len(t, msgs, 2)
	// Inherited behavior: the abandoned placeholder stays empty forever.
	assert.Equal(t, "", msgs[1].Content)
	assert.Equal(t, model.StatusPending, msgs[1].Status)

	assert.False(t, o.IsLoading())
	assert.Equal(t, "", o.LastError(), "cancellation is not an error")
}

func TestCancelRequest_IdempotentWhenIdle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	o.CancelRequest()
	o.CancelRequest()
	assert.False(t, o.IsLoading())
}

func TestSendMessage_SupersedesInFlightRequest(t *testing.T) {
	firstStarted := make(chan struct{})
	o, s, f := newTestOrchestrator(t, func(ctx context.Context, message string) (webhook.Reply, error) {
		if message == "A" {
			close(firstStarted)
			<-ctx.Done()
			return webhook.Reply{}, ctx.Err()
		}
		return webhook.Reply{Text: "B reply"}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.SendMessage("A", "")
	}()
	<-firstStarted

	o.SendMessage("B", "")
	wg.Wait()

	chatID := s.CurrentChatID()
	msgs := s.Messages(chatID)
	require.Len(t, msgs, 4)

	// A's placeholder was never updated.
	assert.Equal(t, "A", msgs[0].Content)
	assert.Equal(t, "", msgs[1].Content)
	assert.Equal(t, model.StatusPending, msgs[1].Status)

	// Exactly B's call completed into the store.
	assert.Equal(t, "B", msgs[2].Content)
	assert.Equal(t, "B reply", msgs[3].Content)
	assert.Equal(t, 2, f.callCount())

	assert.False(t, o.IsLoading())
}

// =============================================================================
// REGENERATE TESTS
// =============================================================================

func seedConversation(t *testing.T, o *Orchestrator, s *store.SessionStore) string {
	t.Helper()
	o.SendMessage("first question", "")
	chatID := s.CurrentChatID()
	require.NotEmpty(t, chatID)
	require.Len(t, s.Messages(chatID), 2)
	return chatID
}

func TestRegenerateLastResponse_ReplacesAnswer(t *testing.T) {
	o, s, f := newTestOrchestrator(t, nil)
	chatID := seedConversation(t, o, s)

	before := s.Messages(chatID)
	oldAnswerID := before[1].ID

	o.RegenerateLastResponse()

	after := s.Messages(chatID)
	require.Len(t, after, 2, "net message count must be unchanged")
	assert.Equal(t, before[0].ID, after[0].ID, "the user message is never touched")
	assert.NotEqual(t, oldAnswerID, after[1].ID, "the answer gets a fresh id")
	assert.Equal(t, "reply to: first question", after[1].Content)

	// The user message content was re-sent, not re-appended.
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"first question", "first question"}, f.calls)
}

func TestRegenerateLastResponse_ErrorKeepsCount(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)
	chatID := seedConversation(t, o, s)

	// Fail only the regeneration.
	o.client.(*fakeSender).hook = func(ctx context.Context, message string) (webhook.Reply, error) {
		return webhook.Reply{}, &webhook.StatusError{Status: 500}
	}

	o.RegenerateLastResponse()

	msgs := s.Messages(chatID)
	require.Len(t, msgs, 2)
	assert.Equal(t, ErrorReply, msgs[1].Content)
	assert.Equal(t, model.StatusFailed, msgs[1].Status)
}

func TestRegenerateLastResponse_NoCurrentChat(t *testing.T) {
	o, _, f := newTestOrchestrator(t, nil)
	o.RegenerateLastResponse()
	assert.Equal(t, 0, f.callCount())
}

func TestRegenerateLastResponse_TooFewMessages(t *testing.T) {
	o, s, f := newTestOrchestrator(t, nil)

	id := s.CreateChat("")
	s.AddMessage(id, model.RoleUser, "only one message")

	o.RegenerateLastResponse()
	assert.Equal(t, 0, f.callCount())
	assert.Len(t, s.Messages(id), 1)
}

func TestRegenerateLastResponse_NoAssistantMessage(t *testing.T) {
	o, s, f := newTestOrchestrator(t, nil)

	id := s.CreateChat("")
	s.AddMessage(id, model.RoleUser, "one")
	s.AddMessage(id, model.RoleUser, "two")

	o.RegenerateLastResponse()
	assert.Equal(t, 0, f.callCount())
}

func TestRegenerateLastResponse_RejectedWhileLoading(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	o, s, f := newTestOrchestrator(t, nil)
	chatID := seedConversation(t, o, s)

	o.client.(*fakeSender).hook = func(ctx context.Context, message string) (webhook.Reply, error) {
		close(started)
		<-release
		return webhook.Reply{Text: "slow reply"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.SendMessage("second question", chatID)
	}()
	<-started

	o.RegenerateLastResponse() // must be a no-op while loading
	close(release)
	wg.Wait()

	assert.Equal(t, 2, f.callCount())
	assert.Len(t, s.Messages(chatID), 4)
}

// =============================================================================
// END-TO-END WITH REAL WEBHOOK CLIENT
// =============================================================================

func TestOrchestrator_AgainstHTTPEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": "from the wire"}`))
	}))
	defer srv.Close()

	s := store.NewSessionStore(nil, nil)
	o := New(s, webhook.NewClient(srv.URL), nil).WithTimeout(5 * time.Second)

	o.SendMessage("ping", "")

	msgs := s.Messages(s.CurrentChatID())
	require.Len(t, msgs, 2)
	assert.Equal(t, "from the wire", msgs[1].Content)
}
