// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// DigestFile is the on-disk record of one run: the criteria and settings
// that produced it, the ranked papers and run statistics. A digest can be
// reloaded and mailed again without re-querying the providers.
type DigestFile struct {
	Criteria types.Criteria   `yaml:"criteria"`
	Config   DigestFileConfig `yaml:"config"`
	Papers   []types.Paper    `yaml:"papers"`
	Summary  DigestSummary    `yaml:"summary"`
}

// DigestFileConfig stores the fetch settings that produced the papers.
type DigestFileConfig struct {
	TopN          int            `yaml:"top_n"`
	Sources       []types.Source `yaml:"sources"`
	LookbackHours int            `yaml:"arxiv_lookback_hours,omitempty"`
	LookbackDays  int            `yaml:"semantic_scholar_lookback_days,omitempty"`
}

// DigestSummary stores result statistics and a timestamp.
type DigestSummary struct {
	RunID             string               `yaml:"run_id,omitempty"`
	Total             int                  `yaml:"total"`
	DuplicatesRemoved int                  `yaml:"duplicates_removed"`
	SourceCounts      map[types.Source]int `yaml:"source_counts"`
	Timestamp         time.Time            `yaml:"timestamp"`
}

// NewDigestFile assembles the digest record for a finished run.
func NewDigestFile(cfg types.FetchConfig, res Result, runID string, now time.Time) DigestFile {
	df := DigestFile{
		Criteria: cfg.Criteria,
		Config:   DigestFileConfig{TopN: cfg.TopN},
		Papers:   res.Papers,
		Summary: DigestSummary{
			RunID:             runID,
			Total:             res.Total,
			DuplicatesRemoved: res.DupsRemoved,
			SourceCounts:      res.SourceCounts,
			Timestamp:         now.UTC(),
		},
	}
	if cfg.DataSources.Arxiv.Enable {
		df.Config.Sources = append(df.Config.Sources, types.SourceArxiv)
		df.Config.LookbackHours = cfg.DataSources.Arxiv.LookbackHours
	}
	if cfg.DataSources.SemanticScholar.Enable {
		df.Config.Sources = append(df.Config.Sources, types.SourceSemanticScholar)
		df.Config.LookbackDays = cfg.DataSources.SemanticScholar.LookbackDays
	}
	if df.Papers == nil {
		df.Papers = []types.Paper{}
	}
	return df
}

// WriteDigestFile saves a digest to a YAML file.
func WriteDigestFile(path string, df DigestFile) error {
	data, err := yaml.Marshal(&df)
	if err != nil {
		return fmt.Errorf("marshaling digest file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing digest file: %w", err)
	}
	return nil
}

// ReadDigestFile loads a previously saved digest from disk.
func ReadDigestFile(path string) (*DigestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading digest file: %w", err)
	}
	var df DigestFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parsing digest file: %w", err)
	}
	return &df, nil
}

// Result converts the stored digest back into a fetch Result.
func (df *DigestFile) Result() Result {
	return Result{
		Papers:       df.Papers,
		SourceCounts: df.Summary.SourceCounts,
		Total:        df.Summary.Total,
		DupsRemoved:  df.Summary.DuplicatesRemoved,
	}
}
