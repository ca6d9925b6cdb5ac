// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads paper-digest settings from a YAML file, the
// environment and the secrets directory, in increasing order of precedence
// for everything except secrets, which only fill values left empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/logging"
	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// EnvPrefix prefixes every automatically bound environment variable
// (e.g. PAPER_DIGEST_TOP_N).
const EnvPrefix = "PAPER_DIGEST"

// Name is the config file base name searched for in the config paths.
const Name = "paper-digest"

// Config holds all settings for one run.
type Config struct {
	Criteria    types.Criteria    `mapstructure:"criteria"`
	DataSources types.DataSources `mapstructure:"data_sources"`
	TopN        int               `mapstructure:"top_n"`
	HTTP        types.HTTPConfig  `mapstructure:"http"`
	LLM         types.LLMConfig   `mapstructure:"llm"`
	Email       types.EmailConfig `mapstructure:"email"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Logging     logging.Config    `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`

	// DryRun stops the run after fetching: no summarization, no email.
	DryRun bool `mapstructure:"-"`
}

// SMTPConfig overrides the SMTP server inferred from the sender address.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MetricsConfig controls the end-of-run metrics export.
type MetricsConfig struct {
	// Textfile is the node-exporter textfile path. Empty disables export.
	Textfile string `mapstructure:"textfile"`
}

// Fetch returns the subset of settings the fetch pipeline consumes.
func (c *Config) Fetch() types.FetchConfig {
	return types.FetchConfig{
		HTTP:        c.HTTP,
		Criteria:    c.Criteria,
		DataSources: c.DataSources,
		TopN:        c.TopN,
	}
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are not overwritten. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading %s: %w", strings.Join(present, ", "), err)
	}
	return nil
}

// New creates a viper instance bound to the config file and environment.
// An explicit cfgFile must exist; otherwise paper-digest.yaml is searched
// for in the working directory and ~/.config/paper-digest/, and a missing
// file is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config, fills empty credentials from s and validates
// the result.
func Load(v *viper.Viper, s secrets.Store) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if h := strings.TrimSpace(cfg.SMTP.Host); h != "" {
		cfg.Email.SMTPHost = h
	}
	if cfg.SMTP.Port != 0 {
		cfg.Email.SMTPPort = cfg.SMTP.Port
	}
	cfg.Email.User = strings.TrimSpace(cfg.Email.User)
	cfg.Email.Password = strings.TrimSpace(cfg.Email.Password)
	cfg.Email.Recipients = resolveRecipients(v)
	cfg.DryRun = ParseBool(v.GetString("dry_run"))

	cfg.DataSources.SemanticScholar.APIKey = s.Or(strings.TrimSpace(cfg.DataSources.SemanticScholar.APIKey), secrets.SemanticScholarAPIKey)
	cfg.LLM.APIKey = s.Or(strings.TrimSpace(cfg.LLM.APIKey), secrets.LLMAPIKey)
	cfg.Email.Password = s.Or(cfg.Email.Password, secrets.MailPassword)

	logic, err := types.ParseMatchLogic(string(cfg.Criteria.MatchLogic))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: criteria.match_logic: %w", err)
	}
	cfg.Criteria.MatchLogic = logic

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that would make a run meaningless.
func (c *Config) Validate() error {
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if _, err := types.ParseMatchLogic(string(c.Criteria.MatchLogic)); err != nil {
		return fmt.Errorf("criteria.match_logic: %w", err)
	}
	if c.DataSources.Arxiv.LookbackHours < 0 {
		return fmt.Errorf("data_sources.arxiv.lookback_hours must not be negative")
	}
	if c.DataSources.SemanticScholar.LookbackDays < 0 {
		return fmt.Errorf("data_sources.semantic_scholar.lookback_days must not be negative")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.LLM.Enable && c.LLM.Concurrency <= 0 {
		return fmt.Errorf("llm.concurrency must be positive")
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid smtp.port: %d", c.SMTP.Port)
	}
	return nil
}

// ParseBool accepts 1, true, yes and y (case-insensitive) as true.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("criteria.categories", []string{})
	v.SetDefault("criteria.keywords", []string{})
	v.SetDefault("criteria.match_logic", string(types.MatchOR))

	v.SetDefault("data_sources.arxiv.enable", true)
	v.SetDefault("data_sources.arxiv.lookback_hours", 24)
	v.SetDefault("data_sources.semantic_scholar.enable", false)
	v.SetDefault("data_sources.semantic_scholar.lookback_days", 3)

	v.SetDefault("top_n", 10)

	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.user_agent", "paper-digest/1.0 (mailto:paper-digest@users.noreply.github.com)")

	v.SetDefault("llm.enable", false)
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.language", "zh-CN")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.concurrency", 5)
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("email.subject_prefix", "[ArXiv Daily]")
	v.SetDefault("email.send_empty", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// bindLegacyEnv binds the unprefixed variable names used by existing
// deployments (.env files, CI secrets).
func bindLegacyEnv(v *viper.Viper) error {
	binds := [][]string{
		{"email.user", "PAPER_DIGEST_EMAIL_USER", "MAIL_USER"},
		{"email.password", "PAPER_DIGEST_EMAIL_PASSWORD", "MAIL_PASS"},
		{"smtp.host", "PAPER_DIGEST_SMTP_HOST", "SMTP_HOST"},
		{"smtp.port", "PAPER_DIGEST_SMTP_PORT", "SMTP_PORT"},
		{"llm.api_key", "PAPER_DIGEST_LLM_API_KEY", "LLM_API_KEY"},
		{"llm.base_url", "PAPER_DIGEST_LLM_BASE_URL", "LLM_BASE_URL"},
		{"llm.model", "PAPER_DIGEST_LLM_MODEL", "LLM_MODEL"},
		{"data_sources.semantic_scholar.api_key", "PAPER_DIGEST_SEMANTIC_SCHOLAR_API_KEY", "SEMANTIC_SCHOLAR_API_KEY"},
		{"dry_run", "PAPER_DIGEST_DRY_RUN", "DRY_RUN"},
		{"mail_recipients", "MAIL_RECIPIENTS"},
		{"mail_recipient", "MAIL_RECIPIENT"},
	}
	for _, b := range binds {
		if err := v.BindEnv(b...); err != nil {
			return fmt.Errorf("binding %s: %w", b[0], err)
		}
	}
	return nil
}

// resolveRecipients picks the first non-empty of MAIL_RECIPIENTS,
// MAIL_RECIPIENT, email.recipients and email.recipient.
func resolveRecipients(v *viper.Viper) []string {
	if r := splitAddresses(v.GetString("mail_recipients")); len(r) > 0 {
		return r
	}
	if r := splitAddresses(v.GetString("mail_recipient")); len(r) > 0 {
		return r
	}
	var list []string
	for _, s := range v.GetStringSlice("email.recipients") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	if len(list) > 0 {
		return list
	}
	if r := strings.TrimSpace(v.GetString("email.recipient")); r != "" {
		return []string{r}
	}
	return nil
}

// splitAddresses splits a comma- or semicolon-separated address list.
func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
