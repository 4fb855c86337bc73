package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/academic-agent/core-infra/internal/graph"
)

func newGraphCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		includeOutputs    bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph of the core stack's dependencies.

The output can be rendered with Graphviz:
    core-infra graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    core-infra graph -f mermaid

Examples:
    core-infra graph
    core-infra graph -p              # include parameters
    core-infra graph -c              # cluster by service
    core-infra graph --outputs       # include stack outputs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := newGenerator(outputFormat)
			if err != nil {
				return err
			}
			gen.IncludeParameters = includeParameters
			gen.IncludeOutputs = includeOutputs
			gen.ClusterByType = clusterByType
			return runGraph(cmd.OutOrStdout(), flags, gen)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVar(&includeOutputs, "outputs", false, "Include output nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}

func newGenerator(format string) (*graph.Generator, error) {
	switch format {
	case "dot":
		return &graph.Generator{Format: graph.FormatDOT}, nil
	case "mermaid":
		return &graph.Generator{Format: graph.FormatMermaid}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}
}

func runGraph(w io.Writer, flags *globalFlags, gen *graph.Generator) error {
	s, err := flags.synthesize()
	if err != nil {
		return err
	}
	return gen.Generate(s.template, w)
}
