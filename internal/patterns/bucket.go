// Package patterns expands intent-level options into the resources that
// implement them, e.g. a TLS-only bucket becomes a bucket plus a deny policy.
package patterns

import (
	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/intrinsics"
	"github.com/academic-agent/core-infra/resources/s3"
)

// BucketEncryption selects the server-side encryption of a bucket.
type BucketEncryption int

const (
	// EncryptionUnencrypted leaves encryption to the account default.
	EncryptionUnencrypted BucketEncryption = iota
	// EncryptionS3Managed uses S3-managed keys (SSE-S3).
	EncryptionS3Managed
	// EncryptionKMSManaged uses the AWS-managed aws/s3 KMS key.
	EncryptionKMSManaged
)

// BucketOptions describes a bucket by intent.
type BucketOptions struct {
	BucketName        string
	Encryption        BucketEncryption
	BlockPublicAccess bool
	// EnforceSSL adds a bucket policy denying any request made without TLS.
	EnforceSSL    bool
	Versioned     bool
	RemovalPolicy construct.RemovalPolicy
}

// Bucket is a declared bucket and its optional TLS policy.
type Bucket struct {
	Resource *construct.Construct
	Policy   *construct.Construct
}

// BucketName returns a Ref resolving to the generated bucket name.
func (b *Bucket) BucketName() intrinsics.Ref {
	return b.Resource.Ref()
}

// BucketArn returns a Fn::GetAtt resolving to the bucket ARN.
func (b *Bucket) BucketArn() coreinfra.AttrRef {
	return b.Resource.Attr(s3.BucketAttrArn)
}

// NewSecureBucket declares a bucket under id. When EnforceSSL is set the
// policy is declared as <id>Policy. RemovalPolicy defaults to Retain.
func NewSecureBucket(stack *construct.Stack, id string, opts BucketOptions) *Bucket {
	bucket := s3.Bucket{}
	if opts.BucketName != "" {
		bucket.BucketName = opts.BucketName
	}

	switch opts.Encryption {
	case EncryptionS3Managed:
		bucket.BucketEncryption = encryptionWith(s3.SSEAlgorithmAES256)
	case EncryptionKMSManaged:
		bucket.BucketEncryption = encryptionWith(s3.SSEAlgorithmKMS)
	}

	if opts.BlockPublicAccess {
		bucket.PublicAccessBlockConfiguration = &s3.Bucket_PublicAccessBlockConfiguration{
			BlockPublicAcls:       true,
			BlockPublicPolicy:     true,
			IgnorePublicAcls:      true,
			RestrictPublicBuckets: true,
		}
	}

	if opts.Versioned {
		bucket.VersioningConfiguration = &s3.Bucket_VersioningConfiguration{
			Status: s3.VersioningEnabled,
		}
	}

	removal := opts.RemovalPolicy
	if removal == "" {
		removal = construct.RemovalRetain
	}

	out := &Bucket{
		Resource: stack.AddResource(id, bucket, construct.WithRemovalPolicy(removal)),
	}
	if opts.EnforceSSL {
		out.Policy = stack.AddResource(id+"Policy", s3.BucketPolicy{
			Bucket:         out.BucketName(),
			PolicyDocument: tlsOnlyPolicy(out.BucketArn()),
		})
	}
	return out
}

func encryptionWith(algorithm string) *s3.Bucket_BucketEncryption {
	return &s3.Bucket_BucketEncryption{
		ServerSideEncryptionConfiguration: []s3.Bucket_ServerSideEncryptionRule{{
			ServerSideEncryptionByDefault: &s3.Bucket_ServerSideEncryptionByDefault{
				SSEAlgorithm: algorithm,
			},
		}},
	}
}

// tlsOnlyPolicy denies every S3 action on the bucket and its objects unless
// the request arrived over TLS.
func tlsOnlyPolicy(bucketArn coreinfra.AttrRef) intrinsics.PolicyDocument {
	deny := intrinsics.NewDenyStatement()
	deny.Principal = intrinsics.AWSPrincipal{intrinsics.AllPrincipal}
	deny.Action = "s3:*"
	deny.Resource = intrinsics.Any(
		bucketArn,
		intrinsics.Join{Delimiter: "", Values: intrinsics.Any(bucketArn, "/*")},
	)
	deny.Condition = intrinsics.Json{
		intrinsics.Bool: intrinsics.Json{"aws:SecureTransport": "false"},
	}

	return intrinsics.NewPolicyDocument(deny)
}
