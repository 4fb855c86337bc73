package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/checks"
)

var errCheckFailed = errors.New("check failed")

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		templateFile string
		enabled      []string
		disabled     []string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run security checks against the synthesized template",
		Long: `Check runs security rules against the core stack template, or against
a template file given with --template.

Rules:
    CIS001: Buckets must have default encryption
    CIS002: Buckets must block all public access
    CIS003: Buckets must have a policy denying non-TLS requests
    CIS004: Buckets should have versioning enabled
    CIS005: User pools must require strong passwords
    CIS006: User pools should not turn MFA off
    CIS007: User pools should declare sign-up mode explicitly
    CIS008: Enumerated property values must be valid
    CIS009: Stateful resources should be retained on delete

Examples:
    core-infra check
    core-infra check --disable CIS006
    core-infra check --template old.template.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := checks.Options{EnabledRules: enabled, DisabledRules: disabled, File: templateFile}
			return runCheck(cmd.OutOrStdout(), flags, templateFile, outputFormat, opts)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "Check this template file instead of synthesizing")
	cmd.Flags().StringSliceVar(&enabled, "rules", nil, "Only run these rule IDs")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "Skip these rule IDs")

	return cmd
}

func runCheck(w io.Writer, flags *globalFlags, templateFile, format string, opts checks.Options) error {
	var tmpl *coreinfra.Template
	if templateFile != "" {
		loaded, err := flags.loadTemplate(templateFile)
		if err != nil {
			return err
		}
		tmpl = loaded
	} else {
		s, err := flags.synthesize()
		if err != nil {
			return err
		}
		tmpl = s.template
	}

	result := checks.Run(tmpl, opts)
	if err := outputCheckResult(w, result, format); err != nil {
		return err
	}
	if !result.Success {
		return errCheckFailed
	}
	return nil
}

func outputCheckResult(w io.Writer, result checks.Result, format string) error {
	switch format {
	case "json":
		out := coreinfra.CheckResult{Success: result.Success, Issues: []coreinfra.CheckIssue{}}
		for _, f := range result.Findings {
			out.Issues = append(out.Issues, f.CheckIssue())
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Findings) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}
		for _, f := range result.Findings {
			fmt.Fprintf(w, "%s: %s: %s [%s]\n", f.Resource, f.Severity, f.Message, f.Rule)
			if f.Suggestion != "" {
				fmt.Fprintf(w, "    %s\n", f.Suggestion)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
