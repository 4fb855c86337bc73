package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	coreinfra "github.com/academic-agent/core-infra"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the resources and outputs of the core stack",
		Long: `List synthesizes the core stack and prints its resources in declaration
order, followed by its outputs.

Examples:
    core-infra list
    core-infra list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), flags, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(w io.Writer, flags *globalFlags, format string) error {
	s, err := flags.synthesize()
	if err != nil {
		return err
	}

	listResult := coreinfra.ListResult{
		Stack:   s.stack.Name(),
		Outputs: s.stack.OutputIDs(),
	}
	for _, name := range s.stack.LogicalIDs() {
		def := s.template.Resources[name]
		listResult.Resources = append(listResult.Resources, coreinfra.ListResource{
			Name:      name,
			Type:      def.Type,
			DependsOn: def.DependsOn,
		})
	}

	return outputListResult(w, listResult, format)
}

func outputListResult(w io.Writer, result coreinfra.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "%s resources (%d):\n\n", result.Stack, len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}
		if len(result.Outputs) > 0 {
			fmt.Fprintf(w, "\nOutputs (%d):\n\n", len(result.Outputs))
			for _, out := range result.Outputs {
				fmt.Fprintf(w, "  %s\n", out)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
