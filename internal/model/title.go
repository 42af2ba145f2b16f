// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"github.com/jeranaias/frontdesk/internal/util"
)

// TitleMaxRunes is the maximum title length before truncation.
const TitleMaxRunes = 50

// SynthesizeTitle derives a chat title from the first user message: the
// message verbatim up to 50 runes, or the first 50 runes plus an ellipsis.
// Newlines are collapsed so the title stays a single line. An empty or
// whitespace-only seed yields DefaultTitle.
func SynthesizeTitle(seed string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return DefaultTitle
	}
	return util.TruncateRunes(util.CollapseWhitespace(seed), TitleMaxRunes)
}

// previewLine is a single-line preview used by Message.Preview.
func previewLine(s string, maxRunes int) string {
	return util.TruncateRunes(util.CollapseWhitespace(s), maxRunes)
}
