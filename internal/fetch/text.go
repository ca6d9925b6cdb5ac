// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// oneLine replaces newlines with spaces and trims the result.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// collapseSpace folds every whitespace run into a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup reduces an abstract that carries HTML or JATS tags to its
// text content. Plain text is returned unchanged.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return collapseSpace(doc.Text())
}
