package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renalscope/renalscope/internal/analysis"
	"github.com/renalscope/renalscope/internal/config"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/inference"
	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "renalscope",
	Short:        "Kidney CT scan analysis with multimodal LLMs",
	Long:         "RenalScope classifies a kidney CT scan image as normal, cyst, tumor, or stone and explains the finding in plain language.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Load environment variables from this file (default .env)")
	rootCmd.PersistentFlags().String("provider", "", "Override the LLM provider (anthropic, openai, gemini, openrouter, mock)")
	rootCmd.PersistentFlags().String("variant", "", "Override the decision-rule variant (ordered, holistic)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration with the command-line overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var o config.Overrides
	o.Provider, _ = cmd.Flags().GetString("provider")
	o.Variant, _ = cmd.Flags().GetString("variant")
	if f, _ := cmd.Flags().GetString("env-file"); f != "" {
		o.EnvFiles = append(o.EnvFiles, f)
	}
	return config.LoadWith(o)
}

// pipeline is everything a command needs to run analyses.
type pipeline struct {
	analyzer analysis.Analyzer
	model    string
	log      *logger.Logger
	close    func()
}

// newPipeline builds provider → inference adapter → orchestrator, wrapped in
// the result cache when enabled.
func newPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	adapter := inference.New(provider, inference.ConfigFrom(cfg.LLM), log)

	opts := []analysis.Option{
		analysis.WithThreshold(cfg.Analysis.Threshold),
		analysis.WithVariant(cfg.Variant()),
		analysis.WithLogger(log),
		analysis.WithResolver(imageref.NewResolver(imageref.WithMaxBytes(cfg.Analysis.MaxImageBytes))),
	}
	if cfg.Analysis.Enrich {
		opts = append(opts, analysis.WithEnricher(analysis.NewAnalyticsEnricher(adapter, cfg.Analysis.AnalyticsFocus)))
	}
	orch := analysis.New(adapter, opts...)

	p := &pipeline{analyzer: orch, model: adapter.ModelID(), log: log, close: log.Sync}
	if cfg.Analysis.Cache.Enabled {
		cached, err := analysis.NewCachedAnalyzer(orch, cfg.Analysis.Cache)
		if err != nil {
			return nil, err
		}
		p.analyzer = cached
		p.close = func() {
			cached.Close()
			log.Sync()
		}
	}
	return p, nil
}
