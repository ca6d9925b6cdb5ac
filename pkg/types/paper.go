// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline.
// Paper is the canonical record every source adapter produces; the config
// structs describe what the fetch, summarize and mail stages consume.
package types

import "time"

// Source identifies the provider that reported a paper. Its value is the
// display name used in digests and in dedup priority lists.
type Source string

const (
	SourceArxiv           Source = "ArXiv"
	SourceSemanticScholar Source = "Semantic Scholar"
)

// DefaultSourcePriority orders sources highest priority first. When two
// sources report the same paper, the record from the first source wins.
var DefaultSourcePriority = []Source{SourceArxiv, SourceSemanticScholar}

// Paper is a recent paper in canonical form, as handed to downstream
// consumers (summarization, email rendering, export).
type Paper struct {
	// Title is the paper title with whitespace collapsed. Never empty.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Summary is the abstract with newlines collapsed to spaces.
	Summary string `json:"summary" yaml:"summary"`

	// Published is the publication time in UTC.
	Published time.Time `json:"published" yaml:"published"`

	// PDFURL links to the full text when the source provides one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// EntryID is the source-scoped identifier (arXiv abs URL, S2 paperId).
	// It is not unique across sources.
	EntryID string `json:"entry_id" yaml:"entry_id"`

	// Source is the provider that reported this record.
	Source Source `json:"source" yaml:"source"`

	// Categories lists subject categories; empty for keyword sources.
	Categories []string `json:"categories" yaml:"categories"`

	// AISummary is filled in by the summarization stage. Empty means no
	// summary was produced for this paper.
	AISummary string `json:"ai_summary,omitempty" yaml:"ai_summary,omitempty"`
}
