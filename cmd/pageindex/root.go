package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageindex/internal/api"
	"github.com/jackzampolin/pageindex/internal/config"
	"github.com/jackzampolin/pageindex/internal/home"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pageindex",
	Short: "Extract the table of contents of PDF documents",
	Long: `PageIndex builds a hierarchical table of contents for PDF documents.

It reads the outline embedded in the PDF when there is one, and can ask an
LLM to infer the structure from the text of the leading pages when there
is not. Run it as an HTTP service (pageindex serve) or directly on a
local file (pageindex extract).`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pageindex/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pageindex home directory (default: ~/.pageindex)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the home directory and loads configuration from
// --config, ./config.yaml or the home directory, in that order.
func loadConfig() (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	cm, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}
	return h, cm, nil
}

// newLogger builds the configured slog handler. The level is read from
// levelVar so it can change at runtime.
func newLogger(w io.Writer, cfg config.LogCfg, levelVar *slog.LevelVar) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	levelVar.Set(level)

	opts := &slog.HandlerOptions{Level: levelVar}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// newEngine builds the extraction engine, with an LLM client when an API key is configured.
func newEngine(cfg config.PageIndexCfg, logger *slog.Logger) *pageindex.Engine {
	engineCfg := pageindex.EngineConfig{Logger: logger}
	if llmCfg, ok := cfg.ToOpenAIConfig(logger); ok {
		engineCfg.LLM = pageindex.NewOpenAIClient(llmCfg)
		logger.Info("llm client configured", "model", llmCfg.Model)
	} else {
		logger.Info("no llm api key configured, using document outlines only")
	}
	return pageindex.NewEngine(engineCfg)
}
