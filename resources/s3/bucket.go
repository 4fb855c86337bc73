package s3

// Attribute names accepted by Fn::GetAtt on an AWS::S3::Bucket.
const (
	BucketAttrArn                = "Arn"
	BucketAttrDomainName         = "DomainName"
	BucketAttrRegionalDomainName = "RegionalDomainName"
	BucketAttrWebsiteURL         = "WebsiteURL"
)

// SSE algorithms for Bucket_ServerSideEncryptionByDefault.
const (
	SSEAlgorithmAES256  = "AES256"
	SSEAlgorithmKMS     = "aws:kms"
	SSEAlgorithmKMSDSSE = "aws:kms:dsse"
)

// Versioning states for Bucket_VersioningConfiguration.
const (
	VersioningEnabled   = "Enabled"
	VersioningSuspended = "Suspended"
)

// Bucket represents an AWS::S3::Bucket resource.
//
// See: https://docs.aws.amazon.com/AWSCloudFormation/latest/UserGuide/aws-resource-s3-bucket.html
type Bucket struct {
	// BucketName is optional; CloudFormation generates a unique name when unset.
	BucketName any `json:"BucketName,omitempty"`

	BucketEncryption               *Bucket_BucketEncryption               `json:"BucketEncryption,omitempty"`
	PublicAccessBlockConfiguration *Bucket_PublicAccessBlockConfiguration `json:"PublicAccessBlockConfiguration,omitempty"`
	VersioningConfiguration        *Bucket_VersioningConfiguration        `json:"VersioningConfiguration,omitempty"`
	OwnershipControls              *Bucket_OwnershipControls              `json:"OwnershipControls,omitempty"`
	ObjectLockEnabled              any                                    `json:"ObjectLockEnabled,omitempty"`
	Tags                           []Tag                                  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Bucket) ResourceType() string {
	return "AWS::S3::Bucket"
}

// Bucket_BucketEncryption specifies default server-side encryption.
type Bucket_BucketEncryption struct {
	ServerSideEncryptionConfiguration []Bucket_ServerSideEncryptionRule `json:"ServerSideEncryptionConfiguration"`
}

// Bucket_ServerSideEncryptionRule is one default encryption rule.
type Bucket_ServerSideEncryptionRule struct {
	BucketKeyEnabled              any                                   `json:"BucketKeyEnabled,omitempty"`
	ServerSideEncryptionByDefault *Bucket_ServerSideEncryptionByDefault `json:"ServerSideEncryptionByDefault,omitempty"`
}

// Bucket_ServerSideEncryptionByDefault names the algorithm and optional key.
type Bucket_ServerSideEncryptionByDefault struct {
	SSEAlgorithm   any `json:"SSEAlgorithm"`
	KMSMasterKeyID any `json:"KMSMasterKeyID,omitempty"`
}

// Bucket_PublicAccessBlockConfiguration controls the four public access guards.
type Bucket_PublicAccessBlockConfiguration struct {
	BlockPublicAcls       any `json:"BlockPublicAcls,omitempty"`
	BlockPublicPolicy     any `json:"BlockPublicPolicy,omitempty"`
	IgnorePublicAcls      any `json:"IgnorePublicAcls,omitempty"`
	RestrictPublicBuckets any `json:"RestrictPublicBuckets,omitempty"`
}

// Bucket_VersioningConfiguration sets the versioning state.
type Bucket_VersioningConfiguration struct {
	Status any `json:"Status"`
}

// Bucket_OwnershipControls sets object ownership rules.
type Bucket_OwnershipControls struct {
	Rules []Bucket_OwnershipControlsRule `json:"Rules"`
}

// Bucket_OwnershipControlsRule is a single ownership rule.
type Bucket_OwnershipControlsRule struct {
	ObjectOwnership any `json:"ObjectOwnership,omitempty"`
}

// Tag is a resource tag.
type Tag struct {
	Key   any `json:"Key"`
	Value any `json:"Value"`
}
