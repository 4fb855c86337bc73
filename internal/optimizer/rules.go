package optimizer

import (
	"strings"

	coreinfra "github.com/academic-agent/core-infra"
)

// s3BucketRules contains optimization rules for S3 buckets.
var s3BucketRules = []Rule{
	{
		ID:          "OPT-S3-001",
		Category:    "cost",
		Severity:    "low",
		Title:       "Consider adding lifecycle rules",
		Description: "Lifecycle rules can automatically transition objects to cheaper storage classes or delete old objects.",
		Suggestion:  "Add LifecycleConfiguration with appropriate transition and expiration rules.",
		Applies: func(res coreinfra.ResourceDef) bool {
			return res.Properties["LifecycleConfiguration"] == nil
		},
	},
	{
		ID:          "OPT-S3-002",
		Category:    "cost",
		Severity:    "medium",
		Title:       "Expire noncurrent object versions",
		Description: "A versioned bucket keeps every overwritten or deleted object version and bills for all of them.",
		Suggestion:  "Add a lifecycle rule with NoncurrentVersionExpiration.",
		Applies: func(res coreinfra.ResourceDef) bool {
			versioning, _ := res.Properties["VersioningConfiguration"].(map[string]any)
			if versioning["Status"] != "Enabled" {
				return false
			}
			return !hasLifecycleRuleWith(res, "NoncurrentVersionExpiration")
		},
	},
	{
		ID:          "OPT-S3-003",
		Category:    "cost",
		Severity:    "low",
		Title:       "Enable S3 Bucket Keys for KMS encryption",
		Description: "Bucket Keys reduce the number of KMS requests made for SSE-KMS objects.",
		Suggestion:  "Set BucketKeyEnabled to true on the encryption rule.",
		Applies: func(res coreinfra.ResourceDef) bool {
			for _, rule := range encryptionRules(res) {
				byDefault, _ := rule["ServerSideEncryptionByDefault"].(map[string]any)
				if byDefault["SSEAlgorithm"] == "aws:kms" && rule["BucketKeyEnabled"] != true {
					return true
				}
			}
			return false
		},
	},
	{
		ID:          "OPT-S3-004",
		Category:    "security",
		Severity:    "medium",
		Title:       "Disable ACLs with bucket owner enforced ownership",
		Description: "With ObjectOwnership set to BucketOwnerEnforced, ACLs are disabled and the bucket owner owns every object.",
		Suggestion:  "Add OwnershipControls with ObjectOwnership set to 'BucketOwnerEnforced'.",
		Applies: func(res coreinfra.ResourceDef) bool {
			controls, _ := res.Properties["OwnershipControls"].(map[string]any)
			rules, _ := controls["Rules"].([]any)
			for _, r := range rules {
				if m, ok := r.(map[string]any); ok && m["ObjectOwnership"] == "BucketOwnerEnforced" {
					return false
				}
			}
			return true
		},
	},
}

// userPoolRules contains optimization rules for Cognito user pools.
var userPoolRules = []Rule{
	{
		ID:          "OPT-COG-001",
		Category:    "reliability",
		Severity:    "medium",
		Title:       "Enable deletion protection",
		Description: "Deletion protection stops the pool, and every user in it, from being deleted by an API call.",
		Suggestion:  "Set DeletionProtection to 'ACTIVE'.",
		Applies: func(res coreinfra.ResourceDef) bool {
			return res.Properties["DeletionProtection"] != "ACTIVE"
		},
	},
	{
		ID:          "OPT-COG-002",
		Category:    "cost",
		Severity:    "low",
		Title:       "Prefer TOTP over SMS for MFA",
		Description: "SMS messages are billed per message and need an SNS role; authenticator apps are free.",
		Suggestion:  "Enable SOFTWARE_TOKEN_MFA and consider dropping SMS_MFA from EnabledMfas.",
		Applies: func(res coreinfra.ResourceDef) bool {
			mfas, _ := res.Properties["EnabledMfas"].([]any)
			sms, totp := false, false
			for _, m := range mfas {
				switch m {
				case "SMS_MFA":
					sms = true
				case "SOFTWARE_TOKEN_MFA":
					totp = true
				}
			}
			return sms && !totp
		},
	},
}

// iamRules contains optimization rules for IAM roles.
var iamRules = []Rule{
	{
		ID:          "OPT-IAM-001",
		Category:    "security",
		Severity:    "high",
		Title:       "Avoid wildcard actions in inline policies",
		Description: "IAM policies should follow least privilege and name the actions they need.",
		Suggestion:  "Replace '*' or 'service:*' actions with the specific actions the role uses.",
		Applies: func(res coreinfra.ResourceDef) bool {
			policies, _ := res.Properties["Policies"].([]any)
			for _, p := range policies {
				policy, _ := p.(map[string]any)
				doc, _ := policy["PolicyDocument"].(map[string]any)
				statements, _ := doc["Statement"].([]any)
				for _, s := range statements {
					stmt, _ := s.(map[string]any)
					if stmt["Effect"] == "Allow" && hasWildcardAction(stmt["Action"]) {
						return true
					}
				}
			}
			return false
		},
	},
}

func hasWildcardAction(action any) bool {
	switch a := action.(type) {
	case string:
		return a == "*" || strings.HasSuffix(a, ":*")
	case []any:
		for _, elem := range a {
			if hasWildcardAction(elem) {
				return true
			}
		}
	}
	return false
}

func encryptionRules(res coreinfra.ResourceDef) []map[string]any {
	enc, _ := res.Properties["BucketEncryption"].(map[string]any)
	list, _ := enc["ServerSideEncryptionConfiguration"].([]any)
	var rules []map[string]any
	for _, r := range list {
		if m, ok := r.(map[string]any); ok {
			rules = append(rules, m)
		}
	}
	return rules
}

func hasLifecycleRuleWith(res coreinfra.ResourceDef, key string) bool {
	lifecycle, _ := res.Properties["LifecycleConfiguration"].(map[string]any)
	rules, _ := lifecycle["Rules"].([]any)
	for _, r := range rules {
		if m, ok := r.(map[string]any); ok && m[key] != nil {
			return true
		}
	}
	return false
}
