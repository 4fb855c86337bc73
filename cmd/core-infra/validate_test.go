package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	coreinfra "github.com/academic-agent/core-infra"
)

func TestNewValidateCmd(t *testing.T) {
	cmd := newValidateCmd(&globalFlags{})

	if cmd.Flags().Lookup("format") == nil {
		t.Error("missing --format flag")
	}
	if cmd.Flags().Lookup("template") == nil {
		t.Error("missing --template flag")
	}
	if cmd.Flags().Lookup("offline") == nil {
		t.Error("missing --offline flag")
	}
}

func TestOutputValidateResult(t *testing.T) {
	var out bytes.Buffer
	passed := coreinfra.ValidateResult{Success: true, Resources: 4, Warnings: []string{"W3005 at Resources"}}
	if err := outputValidateResult(&out, passed, "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Validation passed: 4 resources OK") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "WARNING: W3005") {
		t.Error("warnings should be printed on success")
	}

	out.Reset()
	failed := coreinfra.ValidateResult{Errors: []string{"E3012 bad type"}}
	err := outputValidateResult(&out, failed, "text")
	if !errors.Is(err, errValidationFailed) {
		t.Errorf("error = %v, want errValidationFailed", err)
	}
	if !strings.Contains(out.String(), "ERROR: E3012 bad type") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := outputValidateResult(&out, failed, "json"); !errors.Is(err, errValidationFailed) {
		t.Errorf("json error = %v, want errValidationFailed", err)
	}
	if !strings.Contains(out.String(), `"success": false`) {
		t.Errorf("json output = %q", out.String())
	}
}

func TestRunValidate_Offline(t *testing.T) {
	flags, _ := testFlags(t)

	var out bytes.Buffer
	if err := runValidate(&out, flags, "", "text", true); err != nil {
		t.Fatalf("runValidate() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Validation passed:") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunValidate_OfflineSchemaError(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "bad.json", `{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {
    "UploadsBucketPolicy": {"Type": "AWS::S3::BucketPolicy", "Properties": {"Bucket": "b"}}
  }
}`)

	var out bytes.Buffer
	err := runValidate(&out, flags, path, "text", true)
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("runValidate() error = %v, want errValidationFailed", err)
	}
	if !strings.Contains(out.String(), "schema: UploadsBucketPolicy.PolicyDocument: missing required property") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunValidate_OfflineUnknownType(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "topic.json", `{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {
    "Topic": {"Type": "AWS::SNS::Topic"}
  }
}`)

	var out bytes.Buffer
	err := runValidate(&out, flags, path, "text", true)
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("runValidate() error = %v, want errValidationFailed", err)
	}
	if !strings.Contains(out.String(), "schema: Topic.Type: unknown resource type: AWS::SNS::Topic") {
		t.Errorf("output = %q", out.String())
	}
}
