// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// IDs are "sortable-enough": a base36 millisecond timestamp prefix keeps
// lexicographic order roughly matching creation order, and a random hex
// suffix keeps ids minted in the same millisecond unique.

// NewChatID creates a unique chat ID.
func NewChatID() string {
	return "chat_" + timestampedID()
}

// NewMessageID creates a unique message ID.
func NewMessageID() string {
	return "msg_" + timestampedID()
}

func timestampedID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + hex.EncodeToString(bytes)
}
