package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/academic-agent/core-infra/internal/checks"
	"github.com/academic-agent/core-infra/internal/config"
)

// newWatchCmd creates the "watch" subcommand, which re-synthesizes when the
// config or dotenv file changes.
func newWatchCmd(flags *globalFlags) *cobra.Command {
	var (
		checkOnly bool
		debounce  time.Duration
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize on config changes",
		Long: `Watch monitors the config file and dotenv file and re-synthesizes the
core stack whenever either changes.

Each run checks the template first and writes the assembly only if no
check reports an error. Rapid changes are debounced.

Examples:
    core-infra watch
    core-infra watch --check-only
    core-infra watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), flags, watchOptions{
				checkOnly: checkOnly,
				debounce:  debounce,
				outDir:    outDir,
			})
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "Only run checks, skip writing the assembly")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Assembly directory (default from config)")

	return cmd
}

type watchOptions struct {
	checkOnly bool
	debounce  time.Duration
	outDir    string
}

// runWatch watches the files that feed synthesis until ctx is done.
func runWatch(ctx context.Context, w io.Writer, flags *globalFlags, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	files, dirs, err := watchTargets(flags.options(config.Overrides{}).WatchedFiles())
	if err != nil {
		return fmt.Errorf("failed to resolve watched files: %w", err)
	}

	// Watch directories so files created after startup are seen.
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	for file := range files {
		fmt.Fprintf(w, "Watching: %s\n", file)
	}

	fmt.Fprintln(w, "Running initial check/synth...")
	runCheckAndSynth(w, flags, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !files[filepath.Clean(event.Name)] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, re-synthesizing...\n", time.Now().Format("15:04:05"))
			runCheckAndSynth(w, flags, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// watchTargets resolves files to absolute paths and returns them with the
// set of their parent directories.
func watchTargets(paths []string) (map[string]bool, []string, error) {
	files := make(map[string]bool, len(paths))
	seen := make(map[string]bool)
	var dirs []string

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, err
		}
		files[abs] = true

		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return files, dirs, nil
}

// runCheckAndSynth runs the checks and, if they pass, writes the assembly.
// Failures are reported and the watch continues.
func runCheckAndSynth(w io.Writer, flags *globalFlags, opts watchOptions) bool {
	s, err := flags.synthesizeWith(config.Overrides{OutDir: opts.outDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Synth error: %v\n", err)
		return false
	}

	result := checks.Run(s.template, checks.Options{})
	for _, f := range result.Findings {
		fmt.Fprintf(w, "%s: %s: %s [%s]\n", f.Resource, f.Severity, f.Message, f.Rule)
	}
	if !result.Success {
		fmt.Fprintln(w, "Check failed, skipping synth")
		return false
	}
	fmt.Fprintln(w, "Check passed")

	if opts.checkOnly {
		return true
	}

	if err := writeAssembly(w, s); err != nil {
		fmt.Fprintf(os.Stderr, "Synth error: %v\n", err)
		return false
	}
	return true
}
