// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/frontdesk/internal/model"
)

func adapterPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sessions.json")
}

// =============================================================================
// FILE ADAPTER TESTS
// =============================================================================

func TestFileAdapter_MissingFileYieldsEmptyState(t *testing.T) {
	a := NewFileAdapter(adapterPath(t))

	state, err := a.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Chats)
	assert.Empty(t, state.Messages)
	assert.Equal(t, "", state.CurrentChatID)
}

func TestFileAdapter_RoundTrip(t *testing.T) {
	a := NewFileAdapter(adapterPath(t))

	state := model.NewSessionState()
	chat := model.NewChat("How late are you open on Fridays?")
	state.Chats = append(state.Chats, chat)
	state.Messages[chat.ID] = []*model.Message{
		model.NewMessage(chat.ID, model.RoleUser, "How late are you open on Fridays?"),
		model.NewMessage(chat.ID, model.RoleAssistant, "Until 6pm."),
	}
	state.CurrentChatID = chat.ID

	require.NoError(t, a.Save(state))

	loaded, err := a.Load()
	require.NoError(t, err)

	require.Len(t, loaded.Chats, 1)
	assert.Equal(t, chat.ID, loaded.Chats[0].ID)
	assert.Equal(t, chat.Title, loaded.Chats[0].Title)
	assert.True(t, chat.CreatedAt.Equal(loaded.Chats[0].CreatedAt))

	msgs := loaded.Messages[chat.ID]
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Until 6pm.", msgs[1].Content)
	assert.Equal(t, chat.ID, loaded.CurrentChatID)
}

func TestFileAdapter_StaleSchemaRejected(t *testing.T) {
	path := adapterPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "chats": []}`), 0644))

	_, err := NewFileAdapter(path).Load()
	assert.True(t, errors.Is(err, ErrStaleSchema), "expected ErrStaleSchema, got %v", err)
}

func TestFileAdapter_CorruptFileRejected(t *testing.T) {
	path := adapterPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileAdapter(path).Load()
	assert.Error(t, err)
}

func TestFileAdapter_WritesVersionedRecord(t *testing.T) {
	path := adapterPath(t)
	a := NewFileAdapter(path)

	require.NoError(t, a.Save(model.NewSessionState()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.EqualValues(t, SchemaVersion, rec["version"])
}

// =============================================================================
// STORE + ADAPTER INTEGRATION TESTS
// =============================================================================

func TestSessionStore_PersistsAcrossRestarts(t *testing.T) {
	path := adapterPath(t)

	s1 := NewSessionStore(NewFileAdapter(path), nil)
	id := s1.CreateChat("")
	s1.AddMessage(id, model.RoleUser, "remember me")

	// Simulate a process restart with a fresh store on the same file.
	s2 := NewSessionStore(NewFileAdapter(path), nil)

	assert.Equal(t, id, s2.CurrentChatID())
	msgs := s2.Messages(id)
	require.Len(t, msgs, 1)
	assert.Equal(t, "remember me", msgs[0].Content)
}

func TestSessionStore_CorruptFileStartsEmpty(t *testing.T) {
	path := adapterPath(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	s := NewSessionStore(NewFileAdapter(path), nil)
	assert.Empty(t, s.Chats())

	// The store is still usable and overwrites the bad file on mutation.
	id := s.CreateChat("fresh start")
	assert.Equal(t, id, s.CurrentChatID())
}
