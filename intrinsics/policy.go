package intrinsics

import "encoding/json"

// PolicyVersion is the IAM policy language version every document uses.
const PolicyVersion = "2012-10-17"

// Json is shorthand for an inline JSON object such as a Condition block.
type Json = map[string]any

// Any collects mixed values, typically strings and intrinsics, into a []any.
func Any(items ...any) []any {
	return items
}

// PolicyDocument is an IAM policy document, used for bucket policies, role
// trust policies and inline role policies.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument returns an empty document at PolicyVersion.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement is one statement of a PolicyDocument.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// DenyStatement is a PolicyStatement meant to carry Effect "Deny", such as
// the TLS-only statement on a bucket policy.
type DenyStatement PolicyStatement

// NewDenyStatement returns a DenyStatement with Effect set.
func NewDenyStatement() DenyStatement {
	return DenyStatement{Effect: "Deny"}
}

// ServicePrincipal names AWS services, e.g. cognito-idp.amazonaws.com.
// It serializes to {"Service": ...}.
type ServicePrincipal []any

func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	return marshalPrincipal("Service", p)
}

// AWSPrincipal names accounts, roles or users, or AllPrincipal.
// It serializes to {"AWS": ...}.
type AWSPrincipal []any

func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	return marshalPrincipal("AWS", p)
}

// AllPrincipal matches every caller.
const AllPrincipal = "*"

// A single principal is written as a scalar, several as a list.
func marshalPrincipal(kind string, values []any) ([]byte, error) {
	if len(values) == 1 {
		return json.Marshal(map[string]any{kind: values[0]})
	}
	return json.Marshal(map[string]any{kind: values})
}

// Condition operators used as keys of a statement's Condition block.
const (
	Bool            = "Bool"
	StringEquals    = "StringEquals"
	StringNotEquals = "StringNotEquals"
	StringLike      = "StringLike"
	ArnLike         = "ArnLike"
	Null            = "Null"
)
