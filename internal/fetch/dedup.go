// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"strings"
	"unicode"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Dedupe collapses papers whose normalized titles match. The first record
// seen for a title is kept, unless it came from a lower-priority source and
// a later duplicate comes from priority[0], in which case the later record
// replaces it in place. Papers whose title normalizes to nothing are
// dropped. The input is not modified.
func Dedupe(papers []types.Paper, priority []types.Source) []types.Paper {
	var top types.Source
	if len(priority) > 0 {
		top = priority[0]
	}

	index := make(map[string]int)
	var out []types.Paper

	for _, p := range papers {
		key := NormalizeTitle(p.Title)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if out[i].Source != top && p.Source == top {
				out[i] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

// NormalizeTitle returns the dedup key for a title: lowercased, stripped of
// everything but letters, digits and whitespace, with whitespace collapsed.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
