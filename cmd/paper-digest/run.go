// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/fetch"
	"github.com/pdiddy/paper-digest/internal/mailer"
	"github.com/pdiddy/paper-digest/internal/metrics"
	"github.com/pdiddy/paper-digest/internal/summarize"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch papers, summarize them and send the email digest",
	Long: `Run executes the daily workflow: fetch and rank papers, add LLM summaries
when llm.enable is set, and mail the digest to the configured recipients.

With --dry-run (or DRY_RUN=1) the workflow stops after fetching and prints
the ranked list instead.`,
	RunE: runDigest,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "stop after fetching: no summaries, no email")
	runCmd.Flags().String("out", "", "also write the digest YAML file to this path")

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dryRun = dryRun || cfg.DryRun
	out, _ := cmd.Flags().GetString("out")

	logger.Info().Bool("dry_run", dryRun).Msg("starting paper digest workflow")

	fc := cfg.Fetch()
	m := metrics.NewFetch()
	defer writeMetrics(m)

	res := fetchPapers(ctx, fc, m)

	if len(res.Papers) == 0 {
		logger.Info().Msg("no papers found matching the criteria")
		if err := writeDigest(out, fc, res); err != nil {
			return err
		}
		if !cfg.Email.SendEmpty || dryRun {
			return nil
		}
		return sendDigest(cmd, res)
	}

	if dryRun {
		logger.Info().Int("papers", len(res.Papers)).Msg("dry run: skipping summarization and email")
		fetch.FormatTable(res, cmd.OutOrStdout())
		return writeDigest(out, fc, res)
	}

	if cfg.LLM.Enable {
		logger.Info().Msg("summarizing papers")
		res.Papers = summarize.NewOpenAI(cfg.LLM, logger).Summarize(ctx, res.Papers)
	} else {
		logger.Info().Msg("LLM processing disabled, skipping summarization")
	}

	if err := writeDigest(out, fc, res); err != nil {
		return err
	}
	return sendDigest(cmd, res)
}

func sendDigest(cmd *cobra.Command, res fetch.Result) error {
	sent, err := mailer.New(cfg.Email, nil, logger).Send(cmd.Context(), res.Papers)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send email")
		return fmt.Errorf("sending digest: %w", err)
	}
	if sent {
		logger.Info().Msg("workflow completed")
	}
	return nil
}
