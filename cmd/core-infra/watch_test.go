package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/academic-agent/core-infra/internal/assembly"
	corelog "github.com/academic-agent/core-infra/internal/log"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globalFlags{})

	if cmd.Use != "watch" {
		t.Errorf("Use = %q, want 'watch'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Flags().Lookup("check-only") == nil {
		t.Error("missing --check-only flag")
	}

	if cmd.Flags().Lookup("debounce") == nil {
		t.Error("missing --debounce flag")
	}
}

func TestDebounceDefault(t *testing.T) {
	cmd := newWatchCmd(&globalFlags{})

	flag := cmd.Flags().Lookup("debounce")
	if flag == nil {
		t.Fatal("missing --debounce flag")
	}

	if flag.DefValue != "500ms" {
		t.Errorf("debounce default = %q, want '500ms'", flag.DefValue)
	}
}

func TestWatchTargets(t *testing.T) {
	_, dir := testFlags(t)

	files, dirs, err := watchTargets([]string{"core-infra.yaml", ".env", "conf/other.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("files = %v", files)
	}
	if len(dirs) != 2 {
		t.Errorf("dirs = %v, want 2 distinct directories", dirs)
	}
	if !files[filepath.Join(dir, ".env")] {
		t.Errorf("expected absolute .env path in %v", files)
	}
}

func TestRunWatch_InitialSynthThenStop(t *testing.T) {
	flags, dir := testFlags(t)
	outDir := filepath.Join(dir, "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := runWatch(ctx, &out, flags, watchOptions{outDir: outDir}); err != nil {
		t.Fatalf("runWatch() error = %v", err)
	}

	if !strings.Contains(out.String(), "Check passed") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "Stopping watch...") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := assembly.ReadManifest(outDir); err != nil {
		t.Errorf("initial synth did not write the assembly: %v", err)
	}
}

func TestRunCheckAndSynth_CheckOnly(t *testing.T) {
	flags, dir := testFlags(t)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	if !runCheckAndSynth(&out, flags, watchOptions{checkOnly: true, outDir: outDir}) {
		t.Fatalf("runCheckAndSynth() = false\n%s", out.String())
	}
	if _, err := assembly.ReadManifest(outDir); err == nil {
		t.Error("check-only must not write the assembly")
	}
}

func TestRunCheckAndSynth_LoadsConfigOnce(t *testing.T) {
	flags, dir := testFlags(t)
	writeTestFile(t, dir, "core-infra.yaml", "description: watched\n")
	outDir := filepath.Join(dir, "out")

	var logs bytes.Buffer
	flags.logLevel = "debug"
	flags.logOut = &logs
	t.Cleanup(func() { corelog.InitLogger("") })

	var out bytes.Buffer
	if !runCheckAndSynth(&out, flags, watchOptions{outDir: outDir}) {
		t.Fatalf("runCheckAndSynth() = false\n%s", out.String())
	}
	if n := strings.Count(logs.String(), "config file loaded"); n != 1 {
		t.Errorf("config loaded %d times, want 1:\n%s", n, logs.String())
	}
}

func TestWriteAssembly_WritesCheckedSynth(t *testing.T) {
	flags, dir := testFlags(t)
	writeTestFile(t, dir, "core-infra.yaml", "stack_name: CheckedStack\nout_dir: out\n")

	s, err := flags.synthesize()
	if err != nil {
		t.Fatal(err)
	}

	// A config edit after the check must not change what gets written.
	writeTestFile(t, dir, "core-infra.yaml", "stack_name: EditedStack\nout_dir: out\n")

	var out bytes.Buffer
	if err := writeAssembly(&out, s); err != nil {
		t.Fatalf("writeAssembly() error = %v", err)
	}
	manifest, err := assembly.ReadManifest(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if got := manifest.Stacks(); len(got) != 1 || got[0] != "CheckedStack" {
		t.Errorf("stacks = %v, want [CheckedStack]", got)
	}
}
