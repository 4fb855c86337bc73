package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outputsJSON = `{
  "AcademicAgentCoreStack": {
    "UploadsBucketName": "academicagentcorestack-uploadsbucket-1a2b3c",
    "UserPoolId": "us-east-1_AbCdEf123"
  }
}`

const tlsPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Deny",
    "Principal": {"AWS": "*"},
    "Action": "s3:*",
    "Resource": ["arn:aws:s3:::b", "arn:aws:s3:::b/*"],
    "Condition": {"Bool": {"aws:SecureTransport": "false"}}
  }]
}`

// fakeBucket implements BucketAPI with canned responses.
type fakeBucket struct {
	encryption *s3.GetBucketEncryptionOutput
	versioning *s3.GetBucketVersioningOutput
	pab        *s3.GetPublicAccessBlockOutput
	policy     *s3.GetBucketPolicyOutput
	err        error
	buckets    []string
}

func (f *fakeBucket) GetBucketEncryption(_ context.Context, in *s3.GetBucketEncryptionInput, _ ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	f.buckets = append(f.buckets, aws.ToString(in.Bucket))
	return f.encryption, f.err
}

func (f *fakeBucket) GetBucketVersioning(_ context.Context, _ *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return f.versioning, f.err
}

func (f *fakeBucket) GetPublicAccessBlock(_ context.Context, _ *s3.GetPublicAccessBlockInput, _ ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error) {
	return f.pab, f.err
}

func (f *fakeBucket) GetBucketPolicy(_ context.Context, _ *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	return f.policy, f.err
}

func secureBucket() *fakeBucket {
	return &fakeBucket{
		encryption: &s3.GetBucketEncryptionOutput{
			ServerSideEncryptionConfiguration: &types.ServerSideEncryptionConfiguration{
				Rules: []types.ServerSideEncryptionRule{{
					ApplyServerSideEncryptionByDefault: &types.ServerSideEncryptionByDefault{
						SSEAlgorithm: types.ServerSideEncryptionAes256,
					},
				}},
			},
		},
		versioning: &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusEnabled},
		pab: &s3.GetPublicAccessBlockOutput{
			PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
				BlockPublicAcls:       aws.Bool(true),
				BlockPublicPolicy:     aws.Bool(true),
				IgnorePublicAcls:      aws.Bool(true),
				RestrictPublicBuckets: aws.Bool(true),
			},
		},
		policy: &s3.GetBucketPolicyOutput{Policy: aws.String(tlsPolicy)},
	}
}

func TestParseOutputs(t *testing.T) {
	outputs, err := ParseOutputs([]byte(outputsJSON), "AcademicAgentCoreStack")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"UploadsBucketName": "academicagentcorestack-uploadsbucket-1a2b3c",
		"UserPoolId":        "us-east-1_AbCdEf123",
	}, outputs)
}

func TestParseOutputs_Errors(t *testing.T) {
	_, err := ParseOutputs([]byte(outputsJSON), "OtherStack")
	assert.ErrorIs(t, err, ErrMissingStack)

	_, err = ParseOutputs([]byte(`{"AcademicAgentCoreStack": "oops"}`), "AcademicAgentCoreStack")
	assert.ErrorIs(t, err, ErrMissingStack)

	_, err = ParseOutputs([]byte(`{not json`), "AcademicAgentCoreStack")
	assert.Error(t, err)
}

func TestReadOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs.json")
	require.NoError(t, os.WriteFile(path, []byte(outputsJSON), 0644))

	outputs, err := ReadOutputs(path, "AcademicAgentCoreStack")
	require.NoError(t, err)
	assert.Len(t, outputs, 2)

	_, err = ReadOutputs(filepath.Join(t.TempDir(), "missing.json"), "AcademicAgentCoreStack")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckOutputs(t *testing.T) {
	checks := CheckOutputs(map[string]string{
		"UploadsBucketName": "bucket",
		"UserPoolId":        "",
	}, "UserPoolId", "UploadsBucketName", "Missing")

	require.Len(t, checks, 3)
	assert.Equal(t, Check{Name: "output Missing", Detail: "missing"}, checks[0])
	assert.Equal(t, Check{Name: "output UploadsBucketName", Passed: true, Detail: "bucket"}, checks[1])
	assert.Equal(t, Check{Name: "output UserPoolId", Detail: "empty"}, checks[2])
}

func TestBucket_Secure(t *testing.T) {
	api := secureBucket()
	checks := Bucket(context.Background(), api, "uploads")

	require.Len(t, checks, 4)
	for _, c := range checks {
		assert.True(t, c.Passed, "%s: %s", c.Name, c.Detail)
	}
	assert.Equal(t, []string{"uploads"}, api.buckets)
}

func TestBucket_Insecure(t *testing.T) {
	api := secureBucket()
	api.versioning = &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusSuspended}
	api.pab.PublicAccessBlockConfiguration.RestrictPublicBuckets = aws.Bool(false)
	api.policy = &s3.GetBucketPolicyOutput{Policy: aws.String(`{"Statement":[{"Effect":"Allow"}]}`)}

	report := &Report{Checks: Bucket(context.Background(), api, "uploads")}
	assert.False(t, report.Passed())

	failed := report.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, "bucket versioning", failed[0].Name)
	assert.Equal(t, "public access block", failed[1].Name)
	assert.Contains(t, failed[1].Detail, "RestrictPublicBuckets")
	assert.Equal(t, "tls-only policy", failed[2].Name)
}

func TestBucket_APIError(t *testing.T) {
	api := &fakeBucket{err: errors.New("AccessDenied")}
	checks := Bucket(context.Background(), api, "uploads")

	require.Len(t, checks, 4)
	for _, c := range checks {
		assert.False(t, c.Passed)
		assert.Equal(t, "AccessDenied", c.Detail)
	}
}

func TestDeniesInsecureTransport(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   bool
	}{
		{"tls only", tlsPolicy, true},
		{"boolean condition", `{"Statement":[{"Effect":"Deny","Condition":{"Bool":{"aws:SecureTransport":false}}}]}`, true},
		{"allow only", `{"Statement":[{"Effect":"Allow","Condition":{"Bool":{"aws:SecureTransport":"false"}}}]}`, false},
		{"no condition", `{"Statement":[{"Effect":"Deny"}]}`, false},
		{"empty", ``, false},
		{"single statement object", `{"Statement":{"Effect":"Deny","Condition":{"Bool":{"aws:SecureTransport":"false"}}}}`, true},
		{"single allow object", `{"Statement":{"Effect":"Allow","Condition":{"Bool":{"aws:SecureTransport":"false"}}}}`, false},
		{"deny after allow", `{"Statement":[{"Effect":"Allow"},{"Effect":"Deny","Condition":{"Bool":{"aws:SecureTransport":"false"}}}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeniesInsecureTransport(tt.policy))
		})
	}
}

func TestRun(t *testing.T) {
	outputs, err := ParseOutputs([]byte(outputsJSON), "AcademicAgentCoreStack")
	require.NoError(t, err)

	t.Run("outputs only", func(t *testing.T) {
		report := Run(context.Background(), Request{
			Stack:    "AcademicAgentCoreStack",
			Outputs:  outputs,
			Required: []string{"UploadsBucketName", "UserPoolId"},
		})
		assert.True(t, report.Passed())
		assert.Len(t, report.Checks, 2)
	})

	t.Run("with live bucket", func(t *testing.T) {
		api := secureBucket()
		report := Run(context.Background(), Request{
			Stack:        "AcademicAgentCoreStack",
			Outputs:      outputs,
			Required:     []string{"UploadsBucketName", "UserPoolId"},
			BucketOutput: "UploadsBucketName",
			API:          api,
		})
		assert.True(t, report.Passed())
		assert.Len(t, report.Checks, 6)
		assert.Equal(t, []string{"academicagentcorestack-uploadsbucket-1a2b3c"}, api.buckets)
	})

	t.Run("empty bucket output", func(t *testing.T) {
		report := Run(context.Background(), Request{
			Outputs:      map[string]string{"UploadsBucketName": ""},
			Required:     []string{"UploadsBucketName"},
			BucketOutput: "UploadsBucketName",
			API:          secureBucket(),
		})
		assert.False(t, report.Passed())
		assert.Len(t, report.Failed(), 2)
	})
}

func TestOptions(t *testing.T) {
	var o options
	WithProfile("dev")(&o)
	WithRegion("eu-west-1")(&o)
	assert.Equal(t, "dev", o.profile)
	assert.Equal(t, "eu-west-1", o.region)

	assert.Len(t, loadOptions(), 0)
	assert.Len(t, loadOptions(WithProfile("dev"), WithRegion("eu-west-1")), 2)
}
