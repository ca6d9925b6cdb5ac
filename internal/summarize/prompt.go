// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

var languageNames = map[string]string{
	"zh-cn": "Simplified Chinese",
	"zh":    "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
	"en":    "English",
	"en-us": "English",
	"ja":    "Japanese",
	"ko":    "Korean",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
}

// LanguageName maps a language tag to the name used in prompts. Unknown tags
// are passed through.
func LanguageName(tag string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return name
	}
	return tag
}

// BuildPrompt returns the user prompt for one paper.
func BuildPrompt(p types.Paper, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Read the paper below and write a short digest in %s.\n\n", LanguageName(language))
	b.WriteString("Use exactly these sections:\n")
	b.WriteString("1. One-sentence summary: the core contribution in a single sentence.\n")
	b.WriteString("2. Problem: what the paper sets out to solve.\n")
	b.WriteString("3. Method: the key idea or technique.\n")
	b.WriteString("4. Results: the main findings, with numbers when the abstract gives them.\n\n")
	b.WriteString("Keep the whole digest under 200 words. Do not invent details that are not in the abstract.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Abstract: %s\n", p.Summary)
	return b.String()
}
