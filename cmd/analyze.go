package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
	"github.com/renalscope/renalscope/internal/tui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Analyze one kidney CT scan image",
	Long: `Analyze one kidney CT scan image.

The image may be a file path, an http(s) URL, a base64 data URI, or "-" to
read the image from stdin. With --tui the argument is optional and the
image is asked for interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the result as JSON")
	analyzeCmd.Flags().Bool("tui", false, "Run the interactive terminal UI")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	interactive, _ := cmd.Flags().GetBool("tui")
	if !interactive && len(args) == 0 {
		return fmt.Errorf("an image is required (or use --tui)")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.close()

	if interactive {
		opts := tui.Options{Model: p.model, Threshold: cfg.Analysis.Threshold}
		if len(args) == 1 {
			opts.Path = args[0]
		}
		return tui.Run(ctx, p.analyzer, opts)
	}

	ref, err := readReference(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	res, err := p.analyzer.Analyze(ctx, ref)
	if err != nil {
		return fmt.Errorf("%s (code: %s)", diagnosis.PublicMessage, diagnosis.KindOf(err))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(out, res)
	return nil
}

func readReference(stdin io.Reader, arg string) (imageref.Reference, error) {
	if arg != "-" {
		return imageref.Parse(arg), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return imageref.Reference{}, fmt.Errorf("read stdin: %w", err)
	}
	return imageref.FromBytes(data, ""), nil
}

func printResult(w io.Writer, r *diagnosis.AnalysisResult) {
	name := "Not a kidney CT scan"
	if f := diagnosis.GetFinding(r.Diagnosis); f != nil {
		name = f.Name
	}
	fmt.Fprintf(w, "Diagnosis:   %s (%s)\n", name, r.Diagnosis)
	fmt.Fprintf(w, "Confidence:  %.0f%%\n", r.Confidence*100)
	if r.Refined {
		fmt.Fprintln(w, "Refined:     yes")
	}
	fmt.Fprintf(w, "Explanation: %s\n", r.Explanation)
	if r.Analytics != "" {
		fmt.Fprintf(w, "Analytics:   %s\n", r.Analytics)
	}
	if r.Model != "" {
		fmt.Fprintf(w, "Model:       %s\n", r.Model)
	}
}

