// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch gathers recent papers from every enabled source, merges
// duplicates across sources and returns a bounded, newest-first list.
//
// Each source is an Adapter. The Coordinator runs adapters concurrently and
// collects their output in source-priority order, so the merge step sees the
// same input order on every run regardless of which adapter finished first.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Adapter fetches papers from a single provider. Fetch must not return an
// error: failures are logged and yield fewer (or no) papers.
type Adapter interface {
	Source() types.Source
	Fetch(ctx context.Context, limit int) []types.Paper
}

// Result holds the ranked papers and the statistics of one run.
type Result struct {
	Papers       []types.Paper
	SourceCounts map[types.Source]int
	Total        int
	DupsRemoved  int
}

// Coordinator runs a set of adapters and merges their output.
type Coordinator struct {
	Adapters []Adapter

	// Priority orders sources for aggregation and dedup. Nil means
	// types.DefaultSourcePriority.
	Priority []types.Source

	Logger  zerolog.Logger
	Metrics *metrics.Fetch
}

// FetchAll runs every adapter concurrently with the same limit, then
// deduplicates and ranks the combined output down to limit papers.
func (c *Coordinator) FetchAll(ctx context.Context, limit int) Result {
	priority := c.Priority
	if len(priority) == 0 {
		priority = types.DefaultSourcePriority
	}

	adapters := orderByPriority(c.Adapters, priority)
	slots := make([][]types.Paper, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			slots[i] = c.run(ctx, a, limit)
		}(i, a)
	}
	wg.Wait()

	res := Result{SourceCounts: make(map[types.Source]int)}
	var all []types.Paper
	for i, papers := range slots {
		src := adapters[i].Source()
		res.SourceCounts[src] += len(papers)
		c.Metrics.AddFetched(string(src), len(papers))
		all = append(all, papers...)
	}
	res.Total = len(all)

	ev := c.Logger.Info().Int("total", res.Total)
	for src, n := range res.SourceCounts {
		ev = ev.Int(string(src), n)
	}
	ev.Msg("fetched from all sources")

	if len(all) == 0 {
		res.Papers = []types.Paper{}
		return res
	}

	deduped := Dedupe(all, priority)
	res.DupsRemoved = len(all) - len(deduped)
	c.Metrics.AddDeduplicated(res.DupsRemoved)

	res.Papers = Rank(deduped, limit)
	c.Logger.Info().
		Int("unique", len(deduped)).
		Int("duplicates_removed", res.DupsRemoved).
		Int("returned", len(res.Papers)).
		Msg("merged and ranked")
	return res
}

// run calls one adapter and converts a panic into an empty result.
func (c *Coordinator) run(ctx context.Context, a Adapter, limit int) (papers []types.Paper) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error().
				Str("source", string(a.Source())).
				Str("panic", fmt.Sprint(r)).
				Msg("adapter failed")
			c.Metrics.IncFailure(string(a.Source()))
			papers = nil
		}
	}()
	return a.Fetch(ctx, limit)
}

// orderByPriority sorts adapters by the position of their source in
// priority. Sources missing from priority go last, in their given order.
func orderByPriority(adapters []Adapter, priority []types.Source) []Adapter {
	rank := make(map[types.Source]int, len(priority))
	for i, s := range priority {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}
	pos := func(a Adapter) int {
		if r, ok := rank[a.Source()]; ok {
			return r
		}
		return len(priority)
	}

	ordered := make([]Adapter, len(adapters))
	copy(ordered, adapters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return pos(ordered[i]) < pos(ordered[j])
	})
	return ordered
}

// NewAdapters builds the adapters enabled in cfg. They share client, which
// must carry a timeout.
func NewAdapters(cfg types.FetchConfig, client *http.Client, logger zerolog.Logger, m *metrics.Fetch) []Adapter {
	var adapters []Adapter

	if cfg.DataSources.Arxiv.Enable {
		adapters = append(adapters, &ArxivAdapter{
			Client:        client,
			BaseURL:       cfg.DataSources.Arxiv.BaseURL,
			Categories:    cfg.Criteria.Categories,
			Matcher:       NewMatcher(cfg.Criteria.Keywords, cfg.Criteria.MatchLogic),
			LookbackHours: cfg.DataSources.Arxiv.LookbackHours,
			UserAgent:     cfg.HTTP.UserAgent,
			Logger:        logger,
			Metrics:       m,
		})
	}

	if cfg.DataSources.SemanticScholar.Enable {
		s2 := cfg.DataSources.SemanticScholar
		adapters = append(adapters, &SemanticScholarAdapter{
			Client:       client,
			BaseURL:      s2.BaseURL,
			APIKey:       s2.APIKey,
			Keywords:     cfg.Criteria.Keywords,
			LookbackDays: s2.LookbackDays,
			UserAgent:    cfg.HTTP.UserAgent,
			Logger:       logger,
			Metrics:      m,
		})
	}

	return adapters
}
