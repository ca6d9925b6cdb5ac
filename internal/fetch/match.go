// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Matcher decides whether a paper satisfies the keyword criteria and how
// strongly it matches. The zero value matches everything with score 0.
type Matcher struct {
	keywords []string
	logic    types.MatchLogic
}

// NewMatcher lowercases keywords and drops blank ones. Any logic other than
// MatchAND behaves as MatchOR.
func NewMatcher(keywords []string, logic types.MatchLogic) Matcher {
	m := Matcher{logic: logic}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			m.keywords = append(m.keywords, kw)
		}
	}
	return m
}

// Keywords returns the normalized keyword list.
func (m Matcher) Keywords() []string { return m.keywords }

// Matches reports whether title and summary satisfy the keyword criteria.
// Containment is a case-insensitive substring test against title + " " + summary.
func (m Matcher) Matches(title, summary string) bool {
	if len(m.keywords) == 0 {
		return true
	}

	text := strings.ToLower(title + " " + summary)
	if m.logic == types.MatchAND {
		for _, kw := range m.keywords {
			if !strings.Contains(text, kw) {
				return false
			}
		}
		return true
	}

	for _, kw := range m.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Score awards 3 points per keyword found in the title and 1 per keyword
// found in the summary.
func (m Matcher) Score(title, summary string) int {
	title = strings.ToLower(title)
	summary = strings.ToLower(summary)

	score := 0
	for _, kw := range m.keywords {
		if strings.Contains(title, kw) {
			score += 3
		}
		if strings.Contains(summary, kw) {
			score++
		}
	}
	return score
}
