package checks

import (
	"fmt"

	coreinfra "github.com/academic-agent/core-infra"
)

const (
	bucketType       = "AWS::S3::Bucket"
	bucketPolicyType = "AWS::S3::BucketPolicy"
)

// BucketEncryption requires a default server-side encryption rule.
type BucketEncryption struct{}

func (r BucketEncryption) ID() string { return "CIS001" }
func (r BucketEncryption) Description() string {
	return "Buckets must have default encryption"
}

func (r BucketEncryption) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, bucketType) {
		props := tmpl.Resources[id].Properties
		rules := listAt(mapAt(props, "BucketEncryption"), "ServerSideEncryptionConfiguration")

		encrypted := false
		for _, rule := range rules {
			if algo, _ := mapAt(rule, "ServerSideEncryptionByDefault")["SSEAlgorithm"].(string); algo != "" {
				encrypted = true
			}
		}
		if !encrypted {
			findings = append(findings, finding(id, r, SeverityError,
				"bucket has no default encryption",
				"Set BucketEncryption with SSEAlgorithm AES256 or aws:kms"))
		}
	}
	return findings
}

// BucketPublicAccess requires all four public access block flags.
type BucketPublicAccess struct{}

func (r BucketPublicAccess) ID() string { return "CIS002" }
func (r BucketPublicAccess) Description() string {
	return "Buckets must block all public access"
}

var publicAccessFlags = []string{"BlockPublicAcls", "BlockPublicPolicy", "IgnorePublicAcls", "RestrictPublicBuckets"}

func (r BucketPublicAccess) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, bucketType) {
		block := mapAt(tmpl.Resources[id].Properties, "PublicAccessBlockConfiguration")
		for _, flag := range publicAccessFlags {
			if !isTrue(block[flag]) {
				findings = append(findings, finding(id, r, SeverityError,
					fmt.Sprintf("public access block flag %s is not true", flag),
					"Set all four PublicAccessBlockConfiguration flags to true"))
			}
		}
	}
	return findings
}

// BucketTLSOnly requires a bucket policy that denies requests without TLS.
type BucketTLSOnly struct{}

func (r BucketTLSOnly) ID() string { return "CIS003" }
func (r BucketTLSOnly) Description() string {
	return "Buckets must have a policy denying non-TLS requests"
}

func (r BucketTLSOnly) Check(tmpl *coreinfra.Template) []Finding {
	enforced := make(map[string]bool)
	for _, id := range resourcesOfType(tmpl, bucketPolicyType) {
		props := tmpl.Resources[id].Properties
		ref, ok := props["Bucket"].(map[string]any)
		if !ok {
			continue
		}
		bucket, _ := ref["Ref"].(string)
		if bucket != "" && deniesInsecureTransport(props["PolicyDocument"]) {
			enforced[bucket] = true
		}
	}

	var findings []Finding
	for _, id := range resourcesOfType(tmpl, bucketType) {
		if !enforced[id] {
			findings = append(findings, finding(id, r, SeverityError,
				"bucket does not deny requests made without TLS",
				"Add a BucketPolicy with a Deny statement conditioned on aws:SecureTransport false"))
		}
	}
	return findings
}

func deniesInsecureTransport(doc any) bool {
	for _, stmt := range listAt(doc, "Statement") {
		s, ok := stmt.(map[string]any)
		if !ok || s["Effect"] != "Deny" {
			continue
		}
		cond := mapAt(s, "Condition")
		if isFalse(mapAt(cond, "Bool")["aws:SecureTransport"]) {
			return true
		}
	}
	return false
}

// BucketVersioning recommends versioning.
type BucketVersioning struct{}

func (r BucketVersioning) ID() string { return "CIS004" }
func (r BucketVersioning) Description() string {
	return "Buckets should have versioning enabled"
}

func (r BucketVersioning) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, bucketType) {
		versioning := mapAt(tmpl.Resources[id].Properties, "VersioningConfiguration")
		if versioning["Status"] != "Enabled" {
			findings = append(findings, finding(id, r, SeverityWarning,
				"bucket versioning is not enabled",
				"Set VersioningConfiguration.Status to Enabled"))
		}
	}
	return findings
}
