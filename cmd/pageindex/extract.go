package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageindex/internal/api"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/internal/staging"
)

var (
	extractMode     string
	extractMaxDepth int
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract the table of contents of a local PDF",
	Long: `Extract the table of contents of a local PDF without a server.

Uses the same configuration as pageindex serve. Logs go to stderr and the
result to stdout.

Examples:
  pageindex extract report.pdf
  pageindex extract report.pdf --mode outline -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := staging.ValidateName(path); err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return err
		}

		_, cm, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := *cm.Get()

		if cmd.Flags().Changed("mode") {
			cfg.PageIndex.Mode = extractMode
		}
		if cmd.Flags().Changed("max-depth") {
			cfg.PageIndex.MaxDepth = extractMaxDepth
		}
		opts, err := cfg.PageIndex.ToOptions()
		if err != nil {
			return err
		}
		timeout, err := cfg.Server.Timeout()
		if err != nil {
			return err
		}

		var levelVar slog.LevelVar
		logger, err := newLogger(os.Stderr, cfg.Log, &levelVar)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		nodes, err := newEngine(cfg.PageIndex, logger).Extract(ctx, path, opts)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		if nodes == nil {
			nodes = []*pageindex.Node{}
		}
		return api.Output(nodes)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractMode, "mode", "auto", "extraction mode: auto, outline or llm")
	extractCmd.Flags().IntVar(&extractMaxDepth, "max-depth", 0, "truncate the tree below this depth (0 keeps every level)")

	rootCmd.AddCommand(extractCmd)
}
