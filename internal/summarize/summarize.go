// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize attaches short LLM-written summaries to ranked papers.
//
// Calls run concurrently up to a fixed bound. A failed call leaves the
// paper's AISummary empty. If the endpoint reports that the model does not
// exist, the summarizer retries once against the base URL without its /v1
// suffix and, failing that, disables itself for the rest of the run.
package summarize

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// SystemPrompt is sent with every request.
const SystemPrompt = "You are a helpful research assistant."

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultConcurrency = 5
	DefaultTimeout     = 30 * time.Second
	DefaultLanguage    = "zh-CN"
)

// Completer sends a system and a user prompt and returns the model reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ClientFactory builds a Completer bound to baseURL.
type ClientFactory func(baseURL string) Completer

// Summarizer fills Paper.AISummary. It is safe for one Summarize call at a
// time; the fallback and disabled state last for the Summarizer's lifetime.
type Summarizer struct {
	newClient   ClientFactory
	language    string
	concurrency int
	timeout     time.Duration
	log         zerolog.Logger

	mu         sync.Mutex
	client     Completer
	generation int
	altBaseURL string
	triedAlt   bool
	disabled   bool
}

// New returns a Summarizer for cfg. The factory is called with the configured
// base URL immediately and with the fallback URL at most once.
func New(cfg types.LLMConfig, factory ClientFactory, log zerolog.Logger) *Summarizer {
	s := &Summarizer{
		newClient:   factory,
		language:    cfg.Language,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		log:         log.With().Str("component", "summarize").Str("model", cfg.Model).Logger(),
		altBaseURL:  AltBaseURL(cfg.BaseURL),
		disabled:    !cfg.Enable,
	}
	if s.language == "" {
		s.language = DefaultLanguage
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if cfg.Enable {
		s.client = factory(cfg.BaseURL)
	}
	return s
}

// NewOpenAI returns a Summarizer backed by OpenAIClient.
func NewOpenAI(cfg types.LLMConfig, log zerolog.Logger) *Summarizer {
	return New(cfg, func(baseURL string) Completer {
		return NewOpenAIClient(cfg.APIKey, baseURL, cfg.Model, nil)
	}, log)
}

// Disabled reports whether the summarizer has stopped issuing requests.
func (s *Summarizer) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Summarize returns a copy of papers with AISummary set where a summary
// was produced. Order is preserved.
func (s *Summarizer) Summarize(ctx context.Context, papers []types.Paper) []types.Paper {
	out := make([]types.Paper, len(papers))
	copy(out, papers)
	if len(out) == 0 || s.Disabled() {
		return out
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			out[i].AISummary = s.summarizeOne(ctx, out[i])
		}(i)
	}
	wg.Wait()

	done := 0
	for _, p := range out {
		if p.AISummary != "" {
			done++
		}
	}
	s.log.Info().Int("papers", len(out)).Int("summarized", done).Msg("summarization finished")
	return out
}

func (s *Summarizer) summarizeOne(ctx context.Context, p types.Paper) string {
	prompt := BuildPrompt(p, s.language)

	// A paper gets at most two attempts: the original call plus one after
	// a model-not-found error switched or confirmed the client.
	for attempt := 0; attempt < 2; attempt++ {
		client, gen, ok := s.current()
		if !ok {
			return ""
		}

		text, err := s.complete(ctx, client, prompt)
		if err == nil {
			return text
		}
		if !IsModelNotFound(err) {
			s.log.Warn().Err(err).Str("title", p.Title).Msg("summary failed")
			return ""
		}
		if !s.recoverModelNotFound(gen, err) {
			return ""
		}
	}
	return ""
}

func (s *Summarizer) complete(ctx context.Context, client Completer, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return client.Complete(ctx, SystemPrompt, prompt)
}

func (s *Summarizer) current() (Completer, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled || s.client == nil {
		return nil, 0, false
	}
	return s.client, s.generation, true
}

// recoverModelNotFound handles a model-not-found error from the client of
// generation gen. It reports whether the caller should try again.
func (s *Summarizer) recoverModelNotFound(gen int, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return false
	}
	// Another call already switched clients; retry on the new one.
	if gen != s.generation {
		return true
	}
	if !s.triedAlt && s.altBaseURL != "" {
		s.triedAlt = true
		s.client = s.newClient(s.altBaseURL)
		s.generation++
		s.log.Warn().Err(err).Str("base_url", s.altBaseURL).Msg("model not found, retrying with alternate base URL")
		return true
	}

	s.disabled = true
	s.client = nil
	s.log.Error().Err(err).Msg("model not found, disabling summaries for this run")
	return false
}
