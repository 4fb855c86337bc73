// Command core-infra synthesizes the AcademicAgentCoreStack: an uploads
// bucket and a user pool, with account and region taken from the environment.
//
// Usage:
//
//	core-infra synth                 Write the cloud assembly to cdk.out
//	core-infra synth --stdout        Print the template
//	core-infra check                 Run security checks on the template
//	core-infra diff old.json         Compare a template with a fresh synth
//	core-infra version               Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "core-infra",
		Short: "Synthesize the academic agent core stack",
		Long: `core-infra declares the AcademicAgentCoreStack and synthesizes it into a
CloudFormation cloud assembly.

The stack holds an encrypted, versioned, TLS-only uploads bucket and a
Cognito user pool with email sign-in. The deployment account and region are
read from CDK_DEFAULT_ACCOUNT and CDK_DEFAULT_REGION.

    core-infra synth
    core-infra synth --stdout --format yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file (default: core-infra.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Dotenv file (default: .env if present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.stackName, "stack-name", "", "Stack name (default: AcademicAgentCoreStack)")

	rootCmd.AddCommand(
		newSynthCmd(flags),
		newListCmd(flags),
		newGraphCmd(flags),
		newDiffCmd(flags),
		newCheckCmd(flags),
		newValidateCmd(flags),
		newOptimizeCmd(flags),
		newVerifyCmd(flags),
		newWatchCmd(flags),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "core-infra %s\n", getVersion())
		},
	}
}
