// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/frontdesk/internal/model"
	"github.com/jeranaias/frontdesk/internal/util"
)

// SchemaVersion is bumped whenever the persisted record shape changes, so
// future migrations can detect stale files instead of misreading them.
const SchemaVersion = 1

// ErrStaleSchema is returned when the persisted record carries an unknown
// schema version. Use errors.Is(err, ErrStaleSchema) to check for it.
var ErrStaleSchema = &AdapterError{Message: "persisted state has unknown schema version"}

// AdapterError represents a persistence-related error.
type AdapterError struct {
	Message string
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *AdapterError) Is(target error) bool {
	t, ok := target.(*AdapterError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Adapter loads and saves the full session state. Implementations own the
// storage medium; the store owns when to call them.
type Adapter interface {
	Load() (*model.SessionState, error)
	Save(state *model.SessionState) error
}

// =============================================================================
// FILE ADAPTER
// =============================================================================

// record is the on-disk shape: a single named, versioned JSON document.
type record struct {
	Version       int                         `json:"version"`
	Chats         []*model.Chat               `json:"chats"`
	Messages      map[string][]*model.Message `json:"messages"`
	CurrentChatID string                      `json:"current_chat_id"`
}

// FileAdapter persists the session state to one JSON file.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates an adapter writing to the given path. The parent
// directory is created on the first save.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Path returns the backing file path.
func (a *FileAdapter) Path() string {
	return a.path
}

// Load reads the persisted state. A missing file is not an error: it yields
// an empty state, matching a first run.
func (a *FileAdapter) Load() (*model.SessionState, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewSessionState(), nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if rec.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStaleSchema, rec.Version, SchemaVersion)
	}

	state := &model.SessionState{
		Chats:         rec.Chats,
		Messages:      rec.Messages,
		CurrentChatID: rec.CurrentChatID,
	}
	if state.Chats == nil {
		state.Chats = make([]*model.Chat, 0)
	}
	if state.Messages == nil {
		state.Messages = make(map[string][]*model.Message)
	}
	return state, nil
}

// Save writes the state as one atomic JSON document.
func (a *FileAdapter) Save(state *model.SessionState) error {
	rec := record{
		Version:       SchemaVersion,
		Chats:         state.Chats,
		Messages:      state.Messages,
		CurrentChatID: state.CurrentChatID,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents a truncated session
	// file if the process dies mid-flush.
	if err := util.AtomicWriteFile(a.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
