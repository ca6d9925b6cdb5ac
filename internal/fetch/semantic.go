// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/logging"
	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// SemanticScholarBaseURL is the Semantic Scholar paper search endpoint.
const SemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	semanticFields = "paperId,title,abstract,url,venue,publicationDate,authors"
	semanticLimit  = 20

	// DefaultLookbackDays is the Semantic Scholar recency window.
	DefaultLookbackDays = 3

	// Per-request throttle. Keyed requests get the authenticated rate limit.
	semanticDelayKeyed = 1 * time.Second
	semanticDelayAnon  = 2 * time.Second

	abstractPlaceholder = "Abstract not available."
	bodySnippetLen      = 200
)

// SemanticScholarAdapter searches Semantic Scholar once per keyword and
// keeps papers published inside the lookback window.
type SemanticScholarAdapter struct {
	Client       *http.Client
	BaseURL      string
	APIKey       string
	Keywords     []string
	LookbackDays int
	UserAgent    string

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time

	// Sleep waits between requests and before the rate-limit retry.
	// Nil means httputil.Sleep.
	Sleep httputil.SleepFunc

	Logger  zerolog.Logger
	Metrics *metrics.Fetch
}

// Source returns types.SourceSemanticScholar.
func (a *SemanticScholarAdapter) Source() types.Source { return types.SourceSemanticScholar }

// Fetch queries each keyword in order and returns at most limit papers,
// newest first. A keyword that fails is logged and skipped.
func (a *SemanticScholarAdapter) Fetch(ctx context.Context, limit int) []types.Paper {
	source := string(types.SourceSemanticScholar)
	log := logging.WithSource(a.Logger, source)

	keywords := nonBlank(a.Keywords)
	if len(keywords) == 0 {
		log.Warn().Msg("no keywords configured, skipping")
		return nil
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	sleep := a.Sleep
	if sleep == nil {
		sleep = httputil.Sleep
	}
	days := a.LookbackDays
	if days <= 0 {
		days = DefaultLookbackDays
	}

	current := now().UTC()
	cutoff := current.AddDate(0, 0, -days)
	years := fmt.Sprintf("%d-%d", current.Year()-1, current.Year())

	delay := semanticDelayAnon
	if a.APIKey != "" {
		delay = semanticDelayKeyed
	}

	seen := make(map[string]bool)
	var papers []types.Paper

	for _, kw := range keywords {
		klog := log.With().Str("keyword", kw).Logger()

		if err := sleep(ctx, delay); err != nil {
			klog.Warn().Err(err).Msg("cancelled")
			break
		}

		records, err := a.search(ctx, kw, years, klog)
		if err != nil {
			if errors.Is(err, httputil.ErrRateLimited) {
				klog.Warn().Err(err).Msg("still rate limited after retry, skipping keyword")
			} else {
				klog.Error().Err(err).Msg("search failed, skipping keyword")
			}
			a.Metrics.IncFailure(source)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for _, r := range records {
			if r.PaperID != "" && seen[r.PaperID] {
				continue
			}
			p, ok := semanticPaperToPaper(r)
			if !ok || p.Published.Before(cutoff) {
				continue
			}
			papers = append(papers, p)
			seen[r.PaperID] = true
		}
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].Published.After(papers[j].Published)
	})
	if limit < 0 {
		limit = 0
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}

	log.Info().Int("count", len(papers)).Msg("Semantic Scholar fetch complete")
	return papers
}

// search performs one keyword request with the single rate-limit retry.
func (a *SemanticScholarAdapter) search(ctx context.Context, keyword, years string, log zerolog.Logger) ([]semanticPaper, error) {
	base := a.BaseURL
	if base == "" {
		base = SemanticScholarBaseURL
	}
	params := url.Values{
		"query":  {keyword},
		"year":   {years},
		"fields": {semanticFields},
		"limit":  {fmt.Sprintf("%d", semanticLimit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}
	if a.APIKey != "" {
		req.Header.Set("x-api-key", a.APIKey)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	log.Info().Msg("searching Semantic Scholar")
	resp, err := httputil.DoRetryOnce(ctx, client, req, httputil.RetryOptions{
		Sleep: a.Sleep,
		Now:   a.Now,
		OnRateLimited: func(wait time.Duration) {
			a.Metrics.IncRateLimited(string(types.SourceSemanticScholar))
			log.Warn().Dur("wait", wait).Msg("rate limited, retrying once")
		},
	})
	if err != nil {
		if errors.Is(err, httputil.ErrRateLimited) {
			a.Metrics.IncRateLimited(string(types.SourceSemanticScholar))
		}
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLen))
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return sr.Data, nil
}

// semanticPaperToPaper normalizes one search record. Records without a
// title or a YYYY-MM-DD publication date are rejected.
func semanticPaperToPaper(r semanticPaper) (types.Paper, bool) {
	title := collapseSpace(r.Title)
	if title == "" || r.PublicationDate == "" {
		return types.Paper{}, false
	}
	published, err := time.Parse("2006-01-02", r.PublicationDate)
	if err != nil {
		return types.Paper{}, false
	}

	abstract := abstractPlaceholder
	if r.Abstract != "" {
		abstract = stripMarkup(oneLine(r.Abstract))
	}

	p := types.Paper{
		Title:      title,
		Summary:    abstract,
		Published:  published.UTC(),
		PDFURL:     r.URL,
		EntryID:    r.PaperID,
		Source:     types.SourceSemanticScholar,
		Categories: []string{},
	}
	for _, author := range r.Authors {
		if author.Name != "" {
			p.Authors = append(p.Authors, author.Name)
		}
	}
	return p, true
}

func nonBlank(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string           `json:"paperId"`
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract"`
	URL             string           `json:"url"`
	Venue           string           `json:"venue"`
	PublicationDate string           `json:"publicationDate"`
	Authors         []semanticAuthor `json:"authors"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}
