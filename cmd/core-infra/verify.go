package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/academic-agent/core-infra/internal/corestack"
	"github.com/academic-agent/core-infra/internal/verify"
)

var errVerifyFailed = errors.New("verification failed")

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var (
		outputsFile  string
		outputFormat string
		live         bool
		profile      string
		region       string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a deployed core stack",
		Long: `Verify reads the outputs file written by "cdk deploy --outputs-file" and
checks that the stack's outputs are present and non-empty.

With --live the uploads bucket is inspected through the S3 API: default
encryption, versioning, the public access block and the TLS-only policy.
Verification only reads; nothing is changed.

Examples:
    core-infra verify --outputs-file outputs.json
    core-infra verify --outputs-file outputs.json --live --profile dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []verify.Option
			if profile != "" {
				opts = append(opts, verify.WithProfile(profile))
			}
			return runVerify(cmd.Context(), cmd.OutOrStdout(), flags, verifyOptions{
				outputsFile: outputsFile,
				format:      outputFormat,
				live:        live,
				region:      region,
				awsOptions:  opts,
			})
		},
	}

	cmd.Flags().StringVar(&outputsFile, "outputs-file", "", "Deploy outputs file (required)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&live, "live", false, "Inspect the live bucket through the S3 API")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS shared config profile for --live")
	cmd.Flags().StringVar(&region, "region", "", "AWS region for --live (default CDK_DEFAULT_REGION)")
	_ = cmd.MarkFlagRequired("outputs-file")

	return cmd
}

type verifyOptions struct {
	outputsFile string
	format      string
	live        bool
	region      string
	awsOptions  []verify.Option
	// api replaces the S3 client in tests.
	api verify.BucketAPI
}

func runVerify(ctx context.Context, w io.Writer, flags *globalFlags, opts verifyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}

	outputs, err := verify.ReadOutputs(opts.outputsFile, cfg.StackName)
	if err != nil {
		return fmt.Errorf("reading outputs: %w", err)
	}

	req := verify.Request{
		Stack:    cfg.StackName,
		Outputs:  outputs,
		Required: []string{corestack.UploadsBucketNameOut, corestack.UserPoolIDOut},
	}

	if opts.live {
		req.BucketOutput = corestack.UploadsBucketNameOut
		req.API = opts.api
		if req.API == nil {
			region := opts.region
			if region == "" {
				region = cfg.Region
			}
			awsOpts := opts.awsOptions
			if region != "" {
				awsOpts = append(awsOpts, verify.WithRegion(region))
			}
			awsCfg, err := verify.LoadAWSConfig(ctx, awsOpts...)
			if err != nil {
				return fmt.Errorf("loading AWS config: %w", err)
			}
			req.API = verify.NewS3(awsCfg)
		}
	}

	report := verify.Run(ctx, req)
	if err := outputVerifyReport(w, report, opts.format); err != nil {
		return err
	}
	if !report.Passed() {
		return errVerifyFailed
	}
	return nil
}

func outputVerifyReport(w io.Writer, report *verify.Report, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Success bool `json:"success"`
			*verify.Report
		}{report.Passed(), report}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		for _, c := range report.Checks {
			status := "PASS"
			if !c.Passed {
				status = "FAIL"
			}
			if c.Detail != "" {
				fmt.Fprintf(w, "%s  %s: %s\n", status, c.Name, c.Detail)
			} else {
				fmt.Fprintf(w, "%s  %s\n", status, c.Name)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
