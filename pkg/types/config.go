package types

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// MatchLogic selects how multiple keywords combine when filtering papers.
type MatchLogic string

const (
	MatchOR  MatchLogic = "OR"
	MatchAND MatchLogic = "AND"
)

// ParseMatchLogic converts a configuration value into a MatchLogic.
// Matching is case-insensitive and the empty string selects OR.
func ParseMatchLogic(s string) (MatchLogic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OR":
		return MatchOR, nil
	case "AND":
		return MatchAND, nil
	default:
		return "", fmt.Errorf("unknown match logic %q: use AND or OR", s)
	}
}

// Criteria describes the user's interests.
type Criteria struct {
	// Categories are arXiv subject categories (e.g. "cs.CV").
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`

	// Keywords are matched case-insensitively as substrings.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// MatchLogic is "AND" or "OR" (default).
	MatchLogic MatchLogic `json:"match_logic" yaml:"match_logic" mapstructure:"match_logic"`
}

// ArxivConfig holds settings for the category-search adapter.
type ArxivConfig struct {
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// LookbackHours is the recency window (default 24).
	LookbackHours int `json:"lookback_hours" yaml:"lookback_hours" mapstructure:"lookback_hours"`

	// BaseURL overrides the arXiv query endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// SemanticScholarConfig holds settings for the keyword-search adapter.
type SemanticScholarConfig struct {
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// LookbackDays is the recency window (default 3).
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`

	// APIKey is an optional key for the authenticated rate limit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the paper search endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// DataSources groups the per-adapter settings.
type DataSources struct {
	Arxiv           ArxivConfig           `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	SemanticScholar SemanticScholarConfig `json:"semantic_scholar" yaml:"semantic_scholar" mapstructure:"semantic_scholar"`
}

// FetchConfig holds everything the fetch pipeline needs for one run.
type FetchConfig struct {
	HTTP        HTTPConfig  `json:"http" yaml:"http" mapstructure:"http"`
	Criteria    Criteria    `json:"criteria" yaml:"criteria" mapstructure:"criteria"`
	DataSources DataSources `json:"data_sources" yaml:"data_sources" mapstructure:"data_sources"`

	// TopN is the number of papers returned per run. Must be positive.
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`
}

// LLMConfig holds settings for the summarization stage.
type LLMConfig struct {
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Model is the chat model identifier (default "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Language is the output language of generated summaries (default "zh-CN").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// BaseURL is the OpenAI-compatible endpoint (default "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates against BaseURL.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Concurrency bounds in-flight summarization calls (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Timeout bounds a single summarization call (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// EmailConfig holds settings for digest delivery.
type EmailConfig struct {
	// User is the sender address and SMTP login.
	User string `json:"user" yaml:"user" mapstructure:"user"`

	// Password is the SMTP password.
	Password string `json:"-" yaml:"-" mapstructure:"password"`

	Recipients []string `json:"recipients" yaml:"recipients" mapstructure:"recipients"`

	// SubjectPrefix starts every subject line (default "[ArXiv Daily]").
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix" mapstructure:"subject_prefix"`

	// SendEmpty sends a digest even when no papers were found.
	SendEmpty bool `json:"send_empty" yaml:"send_empty" mapstructure:"send_empty"`

	// SMTPHost and SMTPPort override host inference from the sender domain.
	SMTPHost string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty" mapstructure:"smtp_host"`
	SMTPPort int    `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty" mapstructure:"smtp_port"`
}
