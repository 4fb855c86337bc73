package s3

// BucketPolicy represents an AWS::S3::BucketPolicy resource.
//
// See: https://docs.aws.amazon.com/AWSCloudFormation/latest/UserGuide/aws-resource-s3-bucketpolicy.html
type BucketPolicy struct {
	// Bucket is the name of the bucket, usually a Ref to an AWS::S3::Bucket.
	Bucket any `json:"Bucket"`
	// PolicyDocument is an IAM policy document (intrinsics.PolicyDocument).
	PolicyDocument any `json:"PolicyDocument"`
}

// ResourceType returns the CloudFormation resource type.
func (r BucketPolicy) ResourceType() string {
	return "AWS::S3::BucketPolicy"
}
