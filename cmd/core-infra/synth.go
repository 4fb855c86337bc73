package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/academic-agent/core-infra/internal/assembly"
	"github.com/academic-agent/core-infra/internal/config"
	"github.com/academic-agent/core-infra/internal/template"
)

func newSynthCmd(flags *globalFlags) *cobra.Command {
	var (
		stdout bool
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:     "synth",
		Aliases: []string{"build"},
		Short:   "Synthesize the core stack into a cloud assembly",
		Long: `Synth declares the core stack and writes its template and manifest.json
to the output directory (cdk.out, or CDK_OUTDIR).

Examples:
    core-infra synth
    core-infra synth -o build/cdk.out
    core-infra synth --stdout --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd.OutOrStdout(), flags, synthOptions{
				stdout: stdout,
				format: format,
				outDir: outDir,
			})
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the template instead of writing the assembly")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Template format for --stdout: json or yaml (default from config)")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Assembly directory (default from config)")

	return cmd
}

type synthOptions struct {
	stdout bool
	format string
	outDir string
}

func runSynth(w io.Writer, flags *globalFlags, opts synthOptions) error {
	s, err := flags.synthesizeWith(config.Overrides{Format: opts.format, OutDir: opts.outDir})
	if err != nil {
		return err
	}

	if opts.stdout {
		data, err := template.Encode(s.template, s.cfg.Format)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	return writeAssembly(w, s)
}

// writeAssembly writes the cloud assembly of an already synthesized app to
// the resolved output directory.
func writeAssembly(w io.Writer, s *synthesized) error {
	asm, err := s.app.Synth()
	if err != nil {
		return err
	}
	written, err := assembly.Write(s.cfg.OutDir, asm)
	if err != nil {
		return err
	}

	for _, path := range written {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	return nil
}
