package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/schema"
	"github.com/academic-agent/core-infra/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

// newValidateCmd creates the "validate" subcommand, which lints the template
// with cfn-lint and checks it against the offline schemas.
func newValidateCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		templateFile string
		offline      bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the synthesized template with cfn-lint",
		Long: `Validate synthesizes the core stack and runs cfn-lint on the template.
Resource properties are also checked against offline schemas. Warnings
are reported but do not fail validation.

Examples:
    core-infra validate
    core-infra validate --template cdk.out/AcademicAgentCoreStack.template.json
    core-infra validate --offline
    core-infra validate --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), flags, templateFile, outputFormat, offline)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "Validate this template file instead of synthesizing")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip cfn-lint and only check resource schemas")

	return cmd
}

func runValidate(w io.Writer, flags *globalFlags, templateFile, format string, offline bool) error {
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

	result := &validation.Result{Passed: true}
	if !offline {
		var err error
		if isFile(templateFile) {
			result, err = validation.RunCfnLint(templateFile)
		} else {
			result, err = validation.ValidateTemplate(tmpl)
		}
		if err != nil {
			return err
		}
	}

	mergeSchemaResult(result, schema.ValidateTemplate(tmpl, schema.Options{Strict: true}))
	return outputValidateResult(w, result.ValidateResult(len(tmpl.Resources)), format)
}

// mergeSchemaResult adds offline schema findings to the cfn-lint result.
func mergeSchemaResult(result *validation.Result, schemaResult *schema.Result) {
	for _, e := range schemaResult.Errors {
		result.Errors = append(result.Errors, "schema: "+e.String())
	}
	for _, e := range schemaResult.Warnings {
		result.Warnings = append(result.Warnings, "schema: "+e.String())
	}
	result.Passed = len(result.Errors) == 0
}

func outputValidateResult(w io.Writer, result coreinfra.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
