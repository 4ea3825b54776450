package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/renalscope/renalscope/internal/llm"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM providers and models",
}

var llmModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List friendly model names and their pricing",
	Long:  "List friendly model names and their pricing. --provider limits the list to one provider.",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%-11s  %-16s  %-34s  %9s  %9s\n",
			"Provider", "Name", "Model ID", "In $/MTok", "Out $/MTok")
		fmt.Fprintln(out, strings.Repeat("─", 88))

		for _, e := range llm.Catalog() {
			if provider != "" && e.Provider != provider {
				continue
			}
			in, outCost := "?", "?"
			if e.Cost != nil {
				in = fmt.Sprintf("%.2f", e.Cost.InputPerMTok)
				outCost = fmt.Sprintf("%.2f", e.Cost.OutputPerMTok)
			}
			fmt.Fprintf(out, "%-11s  %-16s  %-34s  %9s  %9s\n",
				e.Provider, e.Name, truncate(e.ModelID, 34), in, outCost)
		}
		return nil
	},
}

var llmConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the provider and model that analyses would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Provider:    %s\n", cfg.LLM.Provider)
		fmt.Fprintf(out, "Timeout:     %s\n", cfg.LLM.Timeout)
		fmt.Fprintf(out, "Attempts:    %d\n", cfg.LLM.Retry.MaxAttempts)
		fmt.Fprintf(out, "Max tokens:  %d\n", cfg.LLM.MaxTokens)
		fmt.Fprintf(out, "Threshold:   %.2f\n", cfg.Analysis.Threshold)
		fmt.Fprintf(out, "Variant:     %s\n", cfg.Variant())
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	llmCmd.AddCommand(llmModelsCmd)
	llmCmd.AddCommand(llmConfigCmd)
}
