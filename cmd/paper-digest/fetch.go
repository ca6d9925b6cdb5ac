// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/fetch"
	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch, deduplicate and rank papers without sending anything",
	Long: `Fetch queries the enabled sources for papers matching the configured
categories and keywords, removes duplicates across sources and prints the
newest top_n. Nothing is summarized or mailed.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("top-n", 0, "number of papers to keep (default: top_n from config)")
	fetchCmd.Flags().Bool("json", false, "output results as JSON")
	fetchCmd.Flags().Bool("csl", false, "output results as CSL YAML")
	fetchCmd.Flags().String("out", "", "also write the digest YAML file to this path")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	if asJSON && asCSL {
		return fmt.Errorf("--json and --csl are mutually exclusive")
	}

	fc := cfg.Fetch()
	if cmd.Flags().Changed("top-n") {
		n, _ := cmd.Flags().GetInt("top-n")
		if n <= 0 {
			return fmt.Errorf("--top-n must be positive, got %d", n)
		}
		fc.TopN = n
	}

	m := metrics.NewFetch()
	res := fetchPapers(cmd.Context(), fc, m)

	writeMetrics(m)
	out, _ := cmd.Flags().GetString("out")
	if err := writeDigest(out, fc, res); err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), res, asJSON, asCSL)
}

// fetchPapers runs every enabled adapter and returns the ranked result.
func fetchPapers(ctx context.Context, fc types.FetchConfig, m *metrics.Fetch) fetch.Result {
	client := &http.Client{Timeout: fc.HTTP.Timeout}
	adapters := fetch.NewAdapters(fc, client, logger, m)
	if len(adapters) == 0 {
		logger.Warn().Msg("no data sources enabled")
	}

	coord := &fetch.Coordinator{
		Adapters: adapters,
		Logger:   logger,
		Metrics:  m,
	}
	return coord.FetchAll(ctx, fc.TopN)
}

func printResult(w io.Writer, res fetch.Result, asJSON, asCSL bool) error {
	switch {
	case asJSON:
		return fetch.FormatJSON(res, w)
	case asCSL:
		return fetch.FormatCSL(res, w)
	default:
		fetch.FormatTable(res, w)
		return nil
	}
}

// writeDigest saves res as a digest YAML file. An empty path is a no-op.
func writeDigest(path string, fc types.FetchConfig, res fetch.Result) error {
	if path == "" {
		return nil
	}
	if err := fetch.WriteDigestFile(path, fetch.NewDigestFile(fc, res, runID, time.Now())); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("wrote digest file")
	return nil
}

// writeMetrics exports the run counters when a textfile path is configured.
func writeMetrics(m *metrics.Fetch) {
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Msg("metrics export failed")
	}
}
