package verify

import (
	"context"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// options holds optional overrides for AWS config loading.
type options struct {
	profile string
	region  string
}

// Option customizes how AWS config is loaded. With no options the shell's
// AWS setup (AWS_PROFILE, shared config, env, IMDS) is inherited.
type Option func(*options)

// WithProfile sets the shared config profile.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRegion sets the region override.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// loadOptions turns Options into SDK config load options.
func loadOptions(opts ...Option) []func(*config.LoadOptions) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	log.WithFields(log.Fields{"profile": o.profile, "region": o.region}).Debug("aws options applied")
	return loadOpts
}

// LoadAWSConfig loads AWS SDK v2 config.
func LoadAWSConfig(ctx context.Context, opts ...Option) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, loadOptions(opts...)...)
	if err != nil {
		return aws.Config{}, err
	}
	log.WithField("region", cfg.Region).Debug("aws config loaded")
	return cfg, nil
}

// NewS3 constructs an S3 client from cfg.
func NewS3(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
	return s3.NewFromConfig(cfg, optFns...)
}

var _ BucketAPI = (*s3.Client)(nil)
