// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/logging"
	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ArxivBaseURL is the arXiv Atom query endpoint.
const ArxivBaseURL = "https://export.arxiv.org/api/query"

const (
	arxivMaxResults = 200

	// DefaultLookbackHours is the arXiv recency window.
	DefaultLookbackHours = 24

	// arxivGrace is how far past the cutoff the feed is read before giving
	// up. Submission order and publication order differ slightly.
	arxivGrace = time.Hour
)

// ArxivAdapter fetches recent papers for a set of arXiv categories and
// filters them by keyword.
type ArxivAdapter struct {
	Client        *http.Client
	BaseURL       string
	Categories    []string
	Matcher       Matcher
	LookbackHours int
	UserAgent     string

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time

	Logger  zerolog.Logger
	Metrics *metrics.Fetch
}

// scoredPaper carries the relevance score alongside a paper until the
// adapter has ranked its results.
type scoredPaper struct {
	paper types.Paper
	score int
}

// Source returns types.SourceArxiv.
func (a *ArxivAdapter) Source() types.Source { return types.SourceArxiv }

// Fetch runs one category query and returns at most limit papers ranked by
// relevance score, then publication time. It never fails: errors are logged
// and whatever was collected before the error is returned.
func (a *ArxivAdapter) Fetch(ctx context.Context, limit int) []types.Paper {
	log := logging.WithSource(a.Logger, string(types.SourceArxiv))

	q := buildArxivQuery(a.Categories)
	if q == "" {
		log.Warn().Msg("no categories configured, skipping")
		return nil
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	hours := a.LookbackHours
	if hours <= 0 {
		hours = DefaultLookbackHours
	}
	cutoff := now().UTC().Add(-time.Duration(hours) * time.Hour)

	log.Info().Str("query", q).Time("cutoff", cutoff).Msg("querying arXiv")

	feed, err := a.query(ctx, q)
	if err != nil {
		log.Error().Err(err).Msg("arXiv fetch failed")
		a.Metrics.IncFailure(string(types.SourceArxiv))
		return nil
	}

	var scored []scoredPaper
	for _, entry := range feed.Entries {
		p, ok := arxivPaper(entry)
		if !ok {
			continue
		}
		if p.Published.Before(cutoff) {
			if p.Published.Before(cutoff.Add(-arxivGrace)) {
				break
			}
			continue
		}
		if !a.Matcher.Matches(p.Title, p.Summary) {
			continue
		}
		scored = append(scored, scoredPaper{paper: p, score: a.Matcher.Score(p.Title, p.Summary)})
	}

	papers := rankScored(scored, limit)
	log.Info().Int("count", len(papers)).Msg("arXiv fetch complete")
	return papers
}

func (a *ArxivAdapter) query(ctx context.Context, q string) (*atom.Feed, error) {
	base := a.BaseURL
	if base == "" {
		base = ArxivBaseURL
	}
	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", arxivMaxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	fp := &atom.Parser{}
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed, nil
}

// buildArxivQuery joins categories into a disjunctive search_query value.
func buildArxivQuery(categories []string) string {
	var parts []string
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, "cat:"+c)
		}
	}
	return strings.Join(parts, " OR ")
}

// arxivPaper maps a feed entry to a Paper. Entries without a title or a
// parsable publication time are rejected.
func arxivPaper(entry *atom.Entry) (types.Paper, bool) {
	if entry == nil || entry.PublishedParsed == nil {
		return types.Paper{}, false
	}
	title := collapseSpace(entry.Title)
	if title == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		Title:      title,
		Summary:    oneLine(entry.Summary),
		Published:  entry.PublishedParsed.UTC(),
		EntryID:    strings.TrimSpace(entry.ID),
		Source:     types.SourceArxiv,
		PDFURL:     arxivPDFURL(entry),
		Categories: []string{},
	}
	for _, author := range entry.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			p.Authors = append(p.Authors, strings.TrimSpace(author.Name))
		}
	}
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	return p, true
}

// arxivPDFURL returns the entry's PDF link, deriving it from the abs URL
// when the feed omits one.
func arxivPDFURL(entry *atom.Entry) string {
	for _, link := range entry.Links {
		if link == nil {
			continue
		}
		if link.Title == "pdf" || link.Type == "application/pdf" || strings.Contains(link.Href, "/pdf/") {
			return link.Href
		}
	}
	id := strings.TrimSpace(entry.ID)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		return "https://arxiv.org/pdf/" + id[i+len("/abs/"):]
	}
	return ""
}

// rankScored orders by score then publication time, both descending, and
// strips the score.
func rankScored(scored []scoredPaper, limit int) []types.Paper {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].paper.Published.After(scored[j].paper.Published)
	})

	if limit < 0 {
		limit = 0
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	papers := make([]types.Paper, len(scored))
	for i, s := range scored {
		papers[i] = s.paper
	}
	return papers
}
