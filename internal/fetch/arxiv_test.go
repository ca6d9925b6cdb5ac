// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type atomEntry struct {
	id         string
	title      string
	summary    string
	published  time.Time
	authors    []string
	categories []string
}

// atomFeed renders entries as an arXiv-style Atom document.
func atomFeed(entries ...atomEntry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/test</id>
  <updated>2026-03-10T00:00:00Z</updated>
`)
	for _, e := range entries {
		fmt.Fprintf(&b, "  <entry>\n    <id>http://arxiv.org/abs/%s</id>\n", e.id)
		fmt.Fprintf(&b, "    <title>%s</title>\n", e.title)
		fmt.Fprintf(&b, "    <summary>%s</summary>\n", e.summary)
		if !e.published.IsZero() {
			fmt.Fprintf(&b, "    <published>%s</published>\n", e.published.Format(time.RFC3339))
			fmt.Fprintf(&b, "    <updated>%s</updated>\n", e.published.Format(time.RFC3339))
		}
		for _, a := range e.authors {
			fmt.Fprintf(&b, "    <author><name>%s</name></author>\n", a)
		}
		fmt.Fprintf(&b, "    <link href=\"http://arxiv.org/abs/%s\" rel=\"alternate\" type=\"text/html\"/>\n", e.id)
		fmt.Fprintf(&b, "    <link title=\"pdf\" href=\"http://arxiv.org/pdf/%s\" rel=\"related\" type=\"application/pdf\"/>\n", e.id)
		for _, c := range e.categories {
			fmt.Fprintf(&b, "    <category term=\"%s\" scheme=\"http://arxiv.org/schemas/atom\"/>\n", c)
		}
		b.WriteString("  </entry>\n")
	}
	b.WriteString("</feed>\n")
	return b.String()
}

func arxivServer(t *testing.T, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.RawQuery
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newArxivAdapter(ts *httptest.Server, categories, keywords []string, logic types.MatchLogic) *ArxivAdapter {
	return &ArxivAdapter{
		Client:     ts.Client(),
		BaseURL:    ts.URL,
		Categories: categories,
		Matcher:    NewMatcher(keywords, logic),
		Now:        func() time.Time { return testNow },
	}
}

func TestArxivFetch_LookbackWindow(t *testing.T) {
	// Three matching entries at 2h, 3h and 25h old; only the first two are
	// inside a 24h window, and with limit 1 the newer one wins on equal score.
	feed := atomFeed(
		atomEntry{id: "2603.00001v1", title: "Diffusion for Segmentation", summary: "We study diffusion.", published: testNow.Add(-2 * time.Hour)},
		atomEntry{id: "2603.00002v1", title: "Diffusion Models Revisited", summary: "More diffusion.", published: testNow.Add(-3 * time.Hour)},
		atomEntry{id: "2603.00003v1", title: "Old Diffusion Work", summary: "diffusion", published: testNow.Add(-25 * time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	a := newArxivAdapter(ts, []string{"cs.CV"}, []string{"diffusion"}, types.MatchOR)
	papers := a.Fetch(context.Background(), 1)

	require.Len(t, papers, 1)
	assert.Equal(t, "Diffusion for Segmentation", papers[0].Title)
	assert.Equal(t, types.SourceArxiv, papers[0].Source)
	assert.Equal(t, time.UTC, papers[0].Published.Location())
}

func TestArxivFetch_WindowAndKeywordFilter(t *testing.T) {
	// Only the 2h entry is both recent and a keyword match.
	feed := atomFeed(
		atomEntry{id: "2603.00011v1", title: "LLM agents", summary: "Tool use for agents.", published: testNow.Add(-2 * time.Hour)},
		atomEntry{id: "2603.00012v1", title: "Graph Coloring Bounds", summary: "Combinatorics.", published: testNow.Add(-3 * time.Hour)},
		atomEntry{id: "2603.00013v1", title: "LLM pretraining at scale", summary: "Scaling.", published: testNow.Add(-25 * time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CL"}, []string{"LLM"}, types.MatchOR).Fetch(context.Background(), 10)

	require.Len(t, papers, 1)
	assert.Equal(t, "LLM agents", papers[0].Title)
}

func TestArxivFetch_NoCategoryTermsIsEmptySlice(t *testing.T) {
	feed := atomFeed(atomEntry{id: "x", title: "Uncategorised", summary: "s", published: testNow.Add(-time.Hour)})
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CV"}, nil, types.MatchOR).Fetch(context.Background(), 10)

	require.Len(t, papers, 1)
	assert.NotNil(t, papers[0].Categories)
	assert.Empty(t, papers[0].Categories)

	b, err := json.Marshal(papers[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"categories":[]`)
}

func TestArxivFetch_StopsPastGrace(t *testing.T) {
	// The 26h entry is beyond cutoff+grace, so the recent one after it in
	// feed order is never read.
	feed := atomFeed(
		atomEntry{id: "a", title: "Recent A", summary: "s", published: testNow.Add(-1 * time.Hour)},
		atomEntry{id: "b", title: "Slightly Late", summary: "s", published: testNow.Add(-24*time.Hour - 30*time.Minute)},
		atomEntry{id: "c", title: "Too Old", summary: "s", published: testNow.Add(-26 * time.Hour)},
		atomEntry{id: "d", title: "Recent D", summary: "s", published: testNow.Add(-2 * time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CV"}, nil, types.MatchOR).Fetch(context.Background(), 10)

	var titles []string
	for _, p := range papers {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"Recent A"}, titles)
}

func TestArxivFetch_ScoreThenDate(t *testing.T) {
	feed := atomFeed(
		atomEntry{id: "1", title: "Unrelated title", summary: "mentions transformer once", published: testNow.Add(-1 * time.Hour)},
		atomEntry{id: "2", title: "Transformer Everything", summary: "a transformer paper", published: testNow.Add(-5 * time.Hour)},
		atomEntry{id: "3", title: "Another Transformer", summary: "nothing else", published: testNow.Add(-4 * time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CL"}, []string{"Transformer"}, types.MatchOR).Fetch(context.Background(), 10)

	require.Len(t, papers, 3)
	// score 4, score 3, score 1
	assert.Equal(t, "Transformer Everything", papers[0].Title)
	assert.Equal(t, "Another Transformer", papers[1].Title)
	assert.Equal(t, "Unrelated title", papers[2].Title)
}

func TestArxivFetch_ANDFilter(t *testing.T) {
	feed := atomFeed(
		atomEntry{id: "1", title: "Vision Transformers", summary: "for segmentation", published: testNow.Add(-1 * time.Hour)},
		atomEntry{id: "2", title: "Vision Only", summary: "classification", published: testNow.Add(-1 * time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CV"}, []string{"vision", "segmentation"}, types.MatchAND).Fetch(context.Background(), 10)

	require.Len(t, papers, 1)
	assert.Equal(t, "Vision Transformers", papers[0].Title)
}

func TestArxivFetch_MapsFields(t *testing.T) {
	feed := atomFeed(atomEntry{
		id:         "2603.01234v2",
		title:      "Multi\n  Line Title",
		summary:    "First line.\nSecond line.",
		published:  testNow.Add(-time.Hour),
		authors:    []string{"Ada Lovelace", "Alan Turing"},
		categories: []string{"cs.CV", "cs.LG"},
	})
	var rawQuery string
	ts := arxivServer(t, feed, &rawQuery)

	papers := newArxivAdapter(ts, []string{"cs.CV", "cs.LG"}, nil, types.MatchOR).Fetch(context.Background(), 10)
	require.Len(t, papers, 1)
	p := papers[0]

	assert.Equal(t, "Multi Line Title", p.Title)
	assert.Equal(t, "First line. Second line.", p.Summary)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, []string{"cs.CV", "cs.LG"}, p.Categories)
	assert.Equal(t, "http://arxiv.org/abs/2603.01234v2", p.EntryID)
	assert.Equal(t, "http://arxiv.org/pdf/2603.01234v2", p.PDFURL)

	assert.Contains(t, rawQuery, "search_query=cat%3Acs.CV+OR+cat%3Acs.LG")
	assert.Contains(t, rawQuery, "max_results=200")
	assert.Contains(t, rawQuery, "sortBy=submittedDate")
	assert.Contains(t, rawQuery, "sortOrder=descending")
}

func TestArxivFetch_NoCategories(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	papers := newArxivAdapter(ts, []string{" "}, []string{"x"}, types.MatchOR).Fetch(context.Background(), 10)
	assert.Empty(t, papers)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestArxivFetch_HTTPErrorIsSoft(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	m := metrics.NewFetch()
	a := newArxivAdapter(ts, []string{"cs.CV"}, nil, types.MatchOR)
	a.Metrics = m

	assert.Empty(t, a.Fetch(context.Background(), 10))
}

func TestArxivFetch_MalformedFeed(t *testing.T) {
	ts := arxivServer(t, "<feed><entry>", nil)
	papers := newArxivAdapter(ts, []string{"cs.CV"}, nil, types.MatchOR).Fetch(context.Background(), 10)
	assert.Empty(t, papers)
}

func TestArxivFetch_DropsBlankTitle(t *testing.T) {
	feed := atomFeed(
		atomEntry{id: "1", title: "   ", summary: "s", published: testNow.Add(-time.Hour)},
		atomEntry{id: "2", title: "Kept", summary: "s", published: testNow.Add(-time.Hour)},
	)
	ts := arxivServer(t, feed, nil)

	papers := newArxivAdapter(ts, []string{"cs.CV"}, nil, types.MatchOR).Fetch(context.Background(), 10)
	require.Len(t, papers, 1)
	assert.Equal(t, "Kept", papers[0].Title)
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"single", []string{"cs.CV"}, "cat:cs.CV"},
		{"multiple", []string{"cs.CV", "cs.AI"}, "cat:cs.CV OR cat:cs.AI"},
		{"blank skipped", []string{"", "cs.AI "}, "cat:cs.AI"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildArxivQuery(tt.in))
		})
	}
}

func TestRankScored_StripsScoreAndLimits(t *testing.T) {
	scored := []scoredPaper{
		{paper: types.Paper{Title: "low", Published: testNow}, score: 1},
		{paper: types.Paper{Title: "high-old", Published: testNow.Add(-time.Hour)}, score: 5},
		{paper: types.Paper{Title: "high-new", Published: testNow}, score: 5},
	}
	papers := rankScored(scored, 2)
	require.Len(t, papers, 2)
	assert.Equal(t, "high-new", papers[0].Title)
	assert.Equal(t, "high-old", papers[1].Title)

	assert.Empty(t, rankScored(scored, 0))
}
