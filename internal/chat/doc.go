// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the send/cancel/regenerate lifecycle against the
// external conversational endpoint.
//
// The Orchestrator owns exactly one concurrency resource: the cancellation
// handle of the in-flight request. Starting a new send supersedes the
// previous one by cancelling its handle; the superseded call settles
// silently and its assistant placeholder keeps its empty sentinel content.
// The cancellation scope is the orchestrator, not the chat: sending to
// chat B cancels an in-flight request for chat A.
package chat
