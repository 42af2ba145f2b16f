// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the persisted collection of chats and their messages.
//
// SessionStore is a pure state container: every operation is a total
// function over the in-memory state and never returns an error to the
// caller. Durability is delegated to an Adapter that loads the state once
// at construction and flushes it after every mutation; flush failures are
// logged and swallowed so mutations always succeed from the caller's view.
package store
