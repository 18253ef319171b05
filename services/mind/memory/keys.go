// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// maxSlugLen bounds the name-derived portion of an outline key.
const maxSlugLen = 40

// CreateOutlineKey derives a fresh unique key from an outline name: the
// slugified name plus a short UUID fragment. An empty or unusable name
// falls back to the "outline" slug.
func CreateOutlineKey(name string) string {
	slug := slugify(name)
	if slug == "" {
		slug = "outline"
	}
	return slug + "-" + uuid.NewString()[:8]
}

// CreateLimboKey derives the soft-delete key for an outline: the limbo
// namespace, a forget timestamp, and the original key. The original key
// stays embedded so a limbo record remains attributable to its source.
func CreateLimboKey(key string) string {
	return fmt.Sprintf("limbo-%d-%s", time.Now().UnixNano(), key)
}

// slugify lowercases the name and collapses every non-alphanumeric run
// into a single hyphen.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
