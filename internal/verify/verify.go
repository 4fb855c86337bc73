// Package verify checks a provisioned core stack: the deploy outputs file
// must carry non-empty values, and the uploads bucket can optionally be
// inspected through the S3 API. Nothing here mutates AWS resources.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tidwall/gjson"
)

// ErrMissingStack is returned when the outputs file has no entry for the stack.
var ErrMissingStack = errors.New("stack not found in outputs file")

// Check is the outcome of one verification step.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the checks run against one stack.
type Report struct {
	Stack   string            `json:"stack"`
	Outputs map[string]string `json:"outputs"`
	Checks  []Check           `json:"checks"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// ReadOutputs reads a deploy outputs file of the form
// {"StackName": {"OutputKey": "value"}} and returns the stack's outputs.
func ReadOutputs(path, stack string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOutputs(data, stack)
}

// ParseOutputs is ReadOutputs on in-memory bytes.
func ParseOutputs(data []byte, stack string) (map[string]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("outputs file is not valid JSON")
	}
	entry := gjson.GetBytes(data, stack)
	if !entry.Exists() || !entry.IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrMissingStack, stack)
	}

	outputs := make(map[string]string)
	entry.ForEach(func(key, value gjson.Result) bool {
		outputs[key.String()] = value.String()
		return true
	})
	return outputs, nil
}

// CheckOutputs reports one check per required key: present and non-empty.
func CheckOutputs(outputs map[string]string, required ...string) []Check {
	keys := append([]string(nil), required...)
	sort.Strings(keys)

	checks := make([]Check, 0, len(keys))
	for _, key := range keys {
		value, ok := outputs[key]
		switch {
		case !ok:
			checks = append(checks, Check{Name: "output " + key, Detail: "missing"})
		case value == "":
			checks = append(checks, Check{Name: "output " + key, Detail: "empty"})
		default:
			checks = append(checks, Check{Name: "output " + key, Passed: true, Detail: value})
		}
	}
	return checks
}

// Request describes one verification run.
type Request struct {
	Stack string
	// Outputs are the stack outputs read from the outputs file.
	Outputs map[string]string
	// Required output keys that must be present and non-empty.
	Required []string
	// BucketOutput names the output holding the bucket to inspect. The
	// live check runs only when both BucketOutput and API are set.
	BucketOutput string
	API          BucketAPI
}

// Run checks the outputs and, when configured, the live bucket.
func Run(ctx context.Context, req Request) *Report {
	report := &Report{
		Stack:   req.Stack,
		Outputs: req.Outputs,
		Checks:  CheckOutputs(req.Outputs, req.Required...),
	}
	if req.API == nil || req.BucketOutput == "" {
		return report
	}
	bucket := req.Outputs[req.BucketOutput]
	if bucket == "" {
		report.Checks = append(report.Checks, Check{Name: "bucket", Detail: "no bucket name to inspect"})
		return report
	}
	report.Checks = append(report.Checks, Bucket(ctx, req.API, bucket)...)
	return report
}

// BucketAPI is the subset of the S3 client used to inspect a bucket.
type BucketAPI interface {
	GetBucketEncryption(ctx context.Context, in *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketVersioning(ctx context.Context, in *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetPublicAccessBlock(ctx context.Context, in *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
	GetBucketPolicy(ctx context.Context, in *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
}

// Bucket inspects a live bucket and returns one check per protection:
// encryption, versioning, public access block and the TLS-only policy.
func Bucket(ctx context.Context, api BucketAPI, bucket string) []Check {
	name := aws.String(bucket)
	logger := log.WithField("bucket", bucket)

	var checks []Check

	enc, err := api.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: name})
	checks = append(checks, encryptionCheck(enc, err))

	ver, err := api.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: name})
	checks = append(checks, versioningCheck(ver, err))

	pab, err := api.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: name})
	checks = append(checks, publicAccessCheck(pab, err))

	pol, err := api.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: name})
	checks = append(checks, tlsPolicyCheck(pol, err))

	for _, c := range checks {
		logger.WithFields(log.Fields{"check": c.Name, "passed": c.Passed}).Debug("bucket check")
	}
	return checks
}

func encryptionCheck(out *s3.GetBucketEncryptionOutput, err error) Check {
	c := Check{Name: "bucket encryption"}
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if out == nil || out.ServerSideEncryptionConfiguration == nil {
		c.Detail = "no encryption configuration"
		return c
	}
	for _, rule := range out.ServerSideEncryptionConfiguration.Rules {
		if rule.ApplyServerSideEncryptionByDefault == nil {
			continue
		}
		alg := rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm
		if alg != "" {
			c.Passed = true
			c.Detail = string(alg)
			return c
		}
	}
	c.Detail = "no default encryption rule"
	return c
}

func versioningCheck(out *s3.GetBucketVersioningOutput, err error) Check {
	c := Check{Name: "bucket versioning"}
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if out == nil || out.Status != types.BucketVersioningStatusEnabled {
		c.Detail = "versioning not enabled"
		return c
	}
	c.Passed = true
	c.Detail = string(out.Status)
	return c
}

func publicAccessCheck(out *s3.GetPublicAccessBlockOutput, err error) Check {
	c := Check{Name: "public access block"}
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if out == nil || out.PublicAccessBlockConfiguration == nil {
		c.Detail = "no public access block"
		return c
	}
	cfg := out.PublicAccessBlockConfiguration
	flags := map[string]*bool{
		"BlockPublicAcls":       cfg.BlockPublicAcls,
		"BlockPublicPolicy":     cfg.BlockPublicPolicy,
		"IgnorePublicAcls":      cfg.IgnorePublicAcls,
		"RestrictPublicBuckets": cfg.RestrictPublicBuckets,
	}
	var off []string
	for name, v := range flags {
		if !aws.ToBool(v) {
			off = append(off, name)
		}
	}
	if len(off) > 0 {
		sort.Strings(off)
		c.Detail = fmt.Sprintf("not blocked: %v", off)
		return c
	}
	c.Passed = true
	return c
}

func tlsPolicyCheck(out *s3.GetBucketPolicyOutput, err error) Check {
	c := Check{Name: "tls-only policy"}
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if out == nil || aws.ToString(out.Policy) == "" {
		c.Detail = "no bucket policy"
		return c
	}
	if DeniesInsecureTransport(aws.ToString(out.Policy)) {
		c.Passed = true
		return c
	}
	c.Detail = "no statement denies aws:SecureTransport=false"
	return c
}

// DeniesInsecureTransport reports whether a bucket policy document has a
// Deny statement conditioned on aws:SecureTransport being false.
// Statement may be a single object or a list.
func DeniesInsecureTransport(policy string) bool {
	statements := gjson.Get(policy, "Statement")
	if statements.IsObject() {
		return deniesInsecure(statements)
	}

	found := false
	statements.ForEach(func(_, stmt gjson.Result) bool {
		found = deniesInsecure(stmt)
		return !found
	})
	return found
}

func deniesInsecure(stmt gjson.Result) bool {
	if stmt.Get("Effect").String() != "Deny" {
		return false
	}
	secure := stmt.Get(`Condition.Bool.aws:SecureTransport`)
	return secure.Exists() && secure.String() == "false"
}
