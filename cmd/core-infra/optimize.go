package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/optimizer"
)

// newOptimizeCmd creates the "optimize" subcommand for suggesting improvements.
func newOptimizeCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		category     string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest improvements to the core stack",
		Long: `Optimize analyzes the synthesized template and suggests improvements
for security, cost, performance, and reliability. Suggestions never fail
the command.

Examples:
    core-infra optimize
    core-infra optimize --category cost
    core-infra optimize -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !optimizer.ValidCategory(category) {
				return fmt.Errorf("invalid category: %s (valid: all, %s)", category, strings.Join(optimizer.Categories, ", "))
			}
			return runOptimize(cmd.OutOrStdout(), flags, outputFormat, category)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVarP(&category, "category", "c", "all", "Category: all, security, cost, performance, or reliability")

	return cmd
}

func runOptimize(w io.Writer, flags *globalFlags, format, category string) error {
	s, err := flags.synthesize()
	if err != nil {
		return err
	}

	opt := optimizer.Optimize(s.template, optimizer.Options{Category: category})
	result := coreinfra.OptimizeResult{
		Success:       true,
		Suggestions:   opt.Suggestions,
		ResourceCount: len(s.template.Resources),
		Summary:       opt.Summary,
	}

	return outputOptimizeResult(w, result, format)
}

func outputOptimizeResult(w io.Writer, result coreinfra.OptimizeResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Suggestions) == 0 {
			fmt.Fprintf(w, "Analyzed %d resources. No optimization suggestions.\n", result.ResourceCount)
			return nil
		}

		fmt.Fprintf(w, "Analyzed %d resources. Found %d suggestions:\n\n", result.ResourceCount, result.Summary.Total)

		byCat := map[string][]coreinfra.OptimizeSuggestion{}
		for _, s := range result.Suggestions {
			byCat[s.Category] = append(byCat[s.Category], s)
		}

		for _, cat := range optimizer.Categories {
			suggestions := byCat[cat]
			if len(suggestions) == 0 {
				continue
			}

			fmt.Fprintf(w, "=== %s (%d) ===\n", capitalize(cat), len(suggestions))
			for _, s := range suggestions {
				fmt.Fprintf(w, "\n[%s] %s (%s)\n", s.Severity, s.Title, s.Rule)
				fmt.Fprintf(w, "  Resource: %s\n", s.Resource)
				fmt.Fprintf(w, "  %s\n", s.Description)
				fmt.Fprintf(w, "  Suggestion: %s\n", s.Suggestion)
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "Summary: %d security, %d cost, %d performance, %d reliability\n",
			result.Summary.Security, result.Summary.Cost,
			result.Summary.Performance, result.Summary.Reliability)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
