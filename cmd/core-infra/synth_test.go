package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/academic-agent/core-infra/internal/assembly"
	"github.com/academic-agent/core-infra/internal/corestack"
)

func TestRunSynth_Stdout(t *testing.T) {
	flags, _ := testFlags(t)

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{stdout: true}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}

	var tmpl map[string]any
	if err := json.Unmarshal(out.Bytes(), &tmpl); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	resources := tmpl["Resources"].(map[string]any)
	for _, name := range []string{"UploadsBucket", "UploadsBucketPolicy", "UserPool"} {
		if _, ok := resources[name]; !ok {
			t.Errorf("missing resource %s", name)
		}
	}
	outputs := tmpl["Outputs"].(map[string]any)
	if len(outputs) != 2 {
		t.Errorf("outputs = %d, want 2", len(outputs))
	}
}

func TestRunSynth_StdoutYAML(t *testing.T) {
	flags, _ := testFlags(t)

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{stdout: true, format: "yaml"}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}
	if !strings.Contains(out.String(), "AWS::Cognito::UserPool") {
		t.Error("expected user pool type in YAML output")
	}
	if strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Error("expected YAML, got JSON")
	}
}

func TestRunSynth_UnknownFormat(t *testing.T) {
	flags, _ := testFlags(t)

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{stdout: true, format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunSynth_WritesAssembly(t *testing.T) {
	flags, dir := testFlags(t)
	t.Setenv("CDK_DEFAULT_ACCOUNT", "123456789012")
	t.Setenv("CDK_DEFAULT_REGION", "us-east-1")

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}

	outDir := filepath.Join(dir, "cdk.out")
	manifest, err := assembly.ReadManifest(outDir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	artifact, ok := manifest.Artifacts[corestack.DefaultStackName]
	if !ok {
		t.Fatalf("manifest has no %s artifact", corestack.DefaultStackName)
	}
	if artifact.Environment != "aws://123456789012/us-east-1" {
		t.Errorf("environment = %q", artifact.Environment)
	}

	if _, err := os.Stat(filepath.Join(outDir, assembly.TemplateFileName(corestack.DefaultStackName))); err != nil {
		t.Errorf("template not written: %v", err)
	}
	if !strings.Contains(out.String(), "manifest.json") {
		t.Errorf("output should list written files, got %q", out.String())
	}
}

func TestRunSynth_FormatFlagOverridesConfigFile(t *testing.T) {
	flags, dir := testFlags(t)
	writeTestFile(t, dir, "core-infra.yaml", "format: toml\n")

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{stdout: true}); err == nil {
		t.Fatal("expected error for invalid format in config file")
	}

	out.Reset()
	if err := runSynth(&out, flags, synthOptions{stdout: true, format: "json"}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}
	if !json.Valid(out.Bytes()) {
		t.Errorf("expected JSON, got:\n%s", out.String())
	}
}

func TestRunSynth_OutDirFromEnvAndFlag(t *testing.T) {
	flags, dir := testFlags(t)
	t.Setenv("CDK_OUTDIR", filepath.Join(dir, "from-env"))

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}
	if _, err := assembly.ReadManifest(filepath.Join(dir, "from-env")); err != nil {
		t.Errorf("expected assembly in CDK_OUTDIR: %v", err)
	}

	if err := runSynth(&out, flags, synthOptions{outDir: filepath.Join(dir, "from-flag")}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}
	if _, err := assembly.ReadManifest(filepath.Join(dir, "from-flag")); err != nil {
		t.Errorf("expected assembly in --output dir: %v", err)
	}
}

func TestRunSynth_ConfigFile(t *testing.T) {
	flags, dir := testFlags(t)
	writeTestFile(t, dir, "core-infra.yaml", "format: yaml\ndescription: Core resources\n")

	var out bytes.Buffer
	if err := runSynth(&out, flags, synthOptions{stdout: true}); err != nil {
		t.Fatalf("runSynth() error = %v", err)
	}
	if !strings.Contains(out.String(), "Description: Core resources") {
		t.Errorf("expected YAML with description, got:\n%s", out.String())
	}
}

func TestRunSynth_Deterministic(t *testing.T) {
	flags, _ := testFlags(t)

	var first, second bytes.Buffer
	if err := runSynth(&first, flags, synthOptions{stdout: true}); err != nil {
		t.Fatal(err)
	}
	if err := runSynth(&second, flags, synthOptions{stdout: true}); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Error("synth output differs between runs")
	}
}
