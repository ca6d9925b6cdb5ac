// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// FormatTable writes the ranked papers as a human-readable table to w.
func FormatTable(res Result, w io.Writer) {
	if len(res.Papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s  %s\n",
		"Rank", "Title", "Authors", "Published", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, p := range res.Papers {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s  %s\n",
			i+1, truncate(p.Title, 60), formatAuthors(p.Authors),
			p.Published.Format("2006-01-02"), p.Source)
	}

	fmt.Fprintf(w, "\n%d papers from %d fetched", len(res.Papers), res.Total)
	if res.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", res.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the ranked papers as indented JSON to w.
func FormatJSON(res Result, w io.Writer) error {
	papers := res.Papers
	if papers == nil {
		papers = []types.Paper{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
