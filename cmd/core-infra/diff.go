package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/differ"
)

func newDiffCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare two templates semantically",
		Long: `Diff compares CloudFormation templates and reports added, removed and
modified resources and outputs. With one argument the template is compared
against a fresh synth of the core stack. A directory argument is read as
a cloud assembly.

Examples:
    core-infra diff cdk.out/AcademicAgentCoreStack.template.json
    core-infra diff cdk.out
    core-infra diff old.json new.yaml --format json
    core-infra diff old.json new.json --ignore-order`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), flags, args, outputFormat, differ.Options{IgnoreOrder: ignoreOrder})
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")

	return cmd
}

func runDiff(w io.Writer, flags *globalFlags, args []string, format string, opts differ.Options) error {
	var (
		result *differ.Result
		err    error
	)
	if len(args) == 2 {
		result, err = diffTwo(flags, args[0], args[1], opts)
	} else {
		result, err = diffAgainstSynth(flags, args[0], opts)
	}
	if err != nil {
		return err
	}
	return outputDiffResult(w, result, format)
}

func diffTwo(flags *globalFlags, oldPath, newPath string, opts differ.Options) (*differ.Result, error) {
	old, err := flags.loadTemplate(oldPath)
	if err != nil {
		return nil, err
	}
	updated, err := flags.loadTemplate(newPath)
	if err != nil {
		return nil, err
	}
	return differ.Compare(old, updated, opts)
}

func diffAgainstSynth(flags *globalFlags, path string, opts differ.Options) (*differ.Result, error) {
	old, err := flags.loadTemplate(path)
	if err != nil {
		return nil, err
	}
	s, err := flags.synthesize()
	if err != nil {
		return nil, err
	}
	return differ.Compare(old, s.template, opts)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result.DiffResult(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences.")
			return nil
		}
		printEntries(w, "+", result.Diff.Added)
		printEntries(w, "-", result.Diff.Removed)
		for _, entry := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", entry.Resource, entry.Type)
			for _, change := range entry.Changes {
				fmt.Fprintf(w, "    %s\n", change)
			}
		}
		for _, change := range result.Diff.Outputs {
			fmt.Fprintf(w, "  Output %s\n", change)
		}
		s := result.Summary
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified, %d output changes\n",
			s.Added, s.Removed, s.Modified, s.Outputs)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func printEntries(w io.Writer, marker string, entries []coreinfra.DiffEntry) {
	for _, entry := range entries {
		fmt.Fprintf(w, "%s %s (%s)\n", marker, entry.Resource, entry.Type)
	}
}
