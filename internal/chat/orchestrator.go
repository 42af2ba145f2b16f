// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/frontdesk/internal/model"
	"github.com/jeranaias/frontdesk/internal/store"
	"github.com/jeranaias/frontdesk/internal/webhook"
)

// ErrorReply is the fixed user-facing text written into the placeholder
// when a request fails. The underlying error is kept separately for
// diagnostics and never shown to the end user.
const ErrorReply = "Sorry, I encountered an error. Please try again."

// DefaultRequestTimeout bounds a single send, including retries.
const DefaultRequestTimeout = 60 * time.Second

// Sender is the outbound half of the webhook client consumed by the
// orchestrator.
type Sender interface {
	Send(ctx context.Context, message, sessionID, chatID string) (webhook.Reply, error)
}

// Orchestrator coordinates the session store and the webhook client. All
// messages are created here, never by the UI: SendMessage appends the user
// message plus an empty assistant placeholder, then fills the placeholder
// (or writes ErrorReply into it) when the call settles.
type Orchestrator struct {
	store  *store.SessionStore
	client Sender
	logger *slog.Logger

	timeout time.Duration

	// mu guards the in-flight request state. The handle swap and the
	// loading flip happen in one critical section so there is never a
	// window with two "current" requests.
	mu      sync.Mutex
	loading bool
	lastErr string
	cancel  context.CancelFunc
	current context.Context
}

// New creates an orchestrator over the given store and webhook client.
func New(s *store.SessionStore, client Sender, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:   s,
		client:  client,
		logger:  logger,
		timeout: DefaultRequestTimeout,
	}
}

// WithTimeout overrides the per-request timeout.
func (o *Orchestrator) WithTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.timeout = d
	}
	return o
}

// IsLoading reports whether a request is in flight.
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// LastError returns the diagnostic detail of the last failed request, or
// "". Cancellations never set it.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// SendMessage records a user message and requests the assistant reply.
// Empty or whitespace-only content is silently ignored. The target chat is
// chatID when given, else the current chat; when neither resolves to a
// known chat a new one is created and seeded with the content. A send
// issued while another request is in flight supersedes it: the previous
// call is cancelled and its placeholder is left with the empty sentinel.
//
// The call blocks until the request settles; run it on its own goroutine
// when the caller must stay responsive.
func (o *Orchestrator) SendMessage(content, chatID string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	target := chatID
	if target == "" {
		target = o.store.CurrentChatID()
	}
	if target == "" || o.store.ChatByID(target) == nil {
		target = o.store.CreateChat(content)
	}

	o.store.AddMessage(target, model.RoleUser, content)
	// The empty assistant message is the loading sentinel the UI renders
	// as a typing indicator.
	placeholder := o.store.AddMessage(target, model.RoleAssistant, "")

	ctx, done := o.begin()
	defer done()
	o.deliver(ctx, target, placeholder.ID, content)
}

// CancelRequest aborts the in-flight request, if any, and clears the
// loading flag. Idempotent. The abandoned placeholder keeps its empty
// sentinel content; it is not removed or marked failed (inherited
// behavior from the original session core).
func (o *Orchestrator) CancelRequest() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel == nil {
		return
	}
	o.cancel()
	o.cancel = nil
	o.current = nil
	o.loading = false
}

// RegenerateLastResponse replaces the current chat's last assistant
// message with a freshly requested one, re-sending the last user message.
// No-op when there is no current chat, a request is already in flight,
// fewer than two messages exist, or either role is missing. The user
// message is never touched; net message count is unchanged.
func (o *Orchestrator) RegenerateLastResponse() {
	chatID := o.store.CurrentChatID()
	if chatID == "" || o.IsLoading() {
		return
	}
	if o.store.MessageCount(chatID) < 2 {
		return
	}

	lastAssistant := o.store.LastMessageByRole(chatID, model.RoleAssistant)
	lastUser := o.store.LastMessageByRole(chatID, model.RoleUser)
	if lastAssistant == nil || lastUser == nil {
		return
	}

	o.store.DeleteMessage(chatID, lastAssistant.ID)
	placeholder := o.store.AddMessage(chatID, model.RoleAssistant, "")

	ctx, done := o.begin()
	defer done()
	o.deliver(ctx, chatID, placeholder.ID, lastUser.Content)
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// begin swaps in a fresh cancellation handle, cancelling any previous one,
// and flips the loading flag, all in one critical section. The returned
// done func releases the handle and clears the flag, but only if this
// request is still the current one (a superseding send must not have its
// flag cleared by the call it replaced).
func (o *Orchestrator) begin() (context.Context, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	o.cancel = cancel
	o.current = ctx
	o.loading = true
	o.lastErr = ""

	done := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.current == ctx {
			o.loading = false
			o.cancel = nil
			o.current = nil
		}
		cancel()
	}
	return ctx, done
}

// deliver issues the webhook call and settles the placeholder. Success
// fills it, failure writes ErrorReply into it, and cancellation leaves it
// untouched.
func (o *Orchestrator) deliver(ctx context.Context, chatID, placeholderID, content string) {
	reply, err := o.client.Send(ctx, content, chatID, chatID)

	switch {
	case err == nil:
		o.store.UpdateMessage(chatID, placeholderID, reply.Text)
		if reply.Fallback {
			o.logger.Debug("webhook reply had no known text field, stored whole payload",
				"chat", chatID)
		}

	case errors.Is(err, context.Canceled):
		// Superseded or explicitly cancelled: expected, not a failure.
		// The placeholder deliberately keeps its empty sentinel.
		o.logger.Debug("request cancelled", "chat", chatID)

	default:
		o.store.FailMessage(chatID, placeholderID, ErrorReply)
		o.setError(err)
		o.logger.Error("webhook request failed", "chat", chatID, "error", err)
	}
}

func (o *Orchestrator) setError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = err.Error()
}
