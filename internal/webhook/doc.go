// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package webhook implements the client for the external conversational
// endpoint. The endpoint receives one user message with its session and
// chat identifiers and replies once, non-streamed, with a loosely shaped
// JSON payload. The reply text is extracted by an ordered field fallback;
// the whole payload is stringified when no known field matches, so an
// unexpected (but valid JSON) response shape never fails.
package webhook
