// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI.
//
// paper-digest fetches recent papers from arXiv and Semantic Scholar,
// deduplicates and ranks them, optionally summarizes them with an LLM and
// mails the result as an HTML digest.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/internal/logging"
	"github.com/pdiddy/paper-digest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// Set by the root pre-run for every subcommand except version.
var (
	cfg    *config.Config
	logger = zerolog.Nop()
	runID  string
)

// rootCmd is the base command for the paper-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Daily digest of new research papers",
	Long: `paper-digest collects recent papers from arXiv and Semantic Scholar that
match the configured categories and keywords, removes duplicates across
sources and keeps the newest top_n.

Use "fetch" to inspect the ranked list and "run" to summarize it and send
the email digest.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/paper-digest.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading configuration")
}

// setup loads the environment, secrets and configuration and builds the
// run logger.
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	boot := logging.New(logging.Config{}, cmd.ErrOrStderr())
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(secretsDir, boot)
	if err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	v, err := config.New(cfgFile)
	if err != nil {
		return err
	}
	c, err := config.Load(v, s)
	if err != nil {
		return err
	}

	cfg = c
	logger, runID = logging.WithRun(logging.New(c.Logging, cmd.ErrOrStderr()))
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info().Str("file", used).Msg("using config file")
	}
	if keys := s.Keys(); len(keys) > 0 {
		logger.Info().Strs("secrets", keys).Msg("loaded secrets")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
