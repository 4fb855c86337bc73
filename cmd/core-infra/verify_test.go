package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// stubBucket answers every S3 call as a fully protected bucket.
type stubBucket struct{}

func (stubBucket) GetBucketEncryption(context.Context, *s3.GetBucketEncryptionInput, ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	return &s3.GetBucketEncryptionOutput{
		ServerSideEncryptionConfiguration: &types.ServerSideEncryptionConfiguration{
			Rules: []types.ServerSideEncryptionRule{{
				ApplyServerSideEncryptionByDefault: &types.ServerSideEncryptionByDefault{SSEAlgorithm: types.ServerSideEncryptionAes256},
			}},
		},
	}, nil
}

func (stubBucket) GetBucketVersioning(context.Context, *s3.GetBucketVersioningInput, ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusEnabled}, nil
}

func (stubBucket) GetPublicAccessBlock(context.Context, *s3.GetPublicAccessBlockInput, ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error) {
	on := aws.Bool(true)
	return &s3.GetPublicAccessBlockOutput{
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls: on, BlockPublicPolicy: on, IgnorePublicAcls: on, RestrictPublicBuckets: on,
		},
	}, nil
}

func (stubBucket) GetBucketPolicy(context.Context, *s3.GetBucketPolicyInput, ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	return &s3.GetBucketPolicyOutput{Policy: aws.String(
		`{"Statement":[{"Effect":"Deny","Condition":{"Bool":{"aws:SecureTransport":"false"}}}]}`,
	)}, nil
}

func TestRunVerify_Outputs(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "outputs.json",
		`{"AcademicAgentCoreStack":{"UploadsBucketName":"uploads-abc","UserPoolId":"us-east-1_X"}}`)

	var out bytes.Buffer
	if err := runVerify(context.Background(), &out, flags, verifyOptions{outputsFile: path, format: "text"}); err != nil {
		t.Fatalf("runVerify() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "PASS  output UploadsBucketName: uploads-abc") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunVerify_EmptyOutput(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "outputs.json",
		`{"AcademicAgentCoreStack":{"UploadsBucketName":"uploads-abc","UserPoolId":""}}`)

	var out bytes.Buffer
	err := runVerify(context.Background(), &out, flags, verifyOptions{outputsFile: path, format: "text"})
	if !errors.Is(err, errVerifyFailed) {
		t.Fatalf("runVerify() error = %v, want errVerifyFailed", err)
	}
	if !strings.Contains(out.String(), "FAIL  output UserPoolId: empty") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunVerify_WrongStack(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "outputs.json", `{"OtherStack":{"UserPoolId":"x"}}`)

	var out bytes.Buffer
	if err := runVerify(context.Background(), &out, flags, verifyOptions{outputsFile: path, format: "text"}); err == nil {
		t.Error("expected error for missing stack")
	}
}

func TestRunVerify_Live(t *testing.T) {
	flags, dir := testFlags(t)
	path := writeTestFile(t, dir, "outputs.json",
		`{"AcademicAgentCoreStack":{"UploadsBucketName":"uploads-abc","UserPoolId":"us-east-1_X"}}`)

	var out bytes.Buffer
	err := runVerify(context.Background(), &out, flags, verifyOptions{
		outputsFile: path,
		format:      "json",
		live:        true,
		api:         stubBucket{},
	})
	if err != nil {
		t.Fatalf("runVerify() error = %v\n%s", err, out.String())
	}

	var report struct {
		Success bool `json:"success"`
		Checks  []struct {
			Name   string `json:"name"`
			Passed bool   `json:"passed"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !report.Success {
		t.Error("Success = false")
	}
	if len(report.Checks) != 6 {
		t.Errorf("checks = %d, want 6", len(report.Checks))
	}
}

func TestNewVerifyCmd(t *testing.T) {
	cmd := newVerifyCmd(&globalFlags{})
	for _, flag := range []string{"outputs-file", "format", "live", "profile", "region"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}
