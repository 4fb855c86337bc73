// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds the IAM policy and template-rule types the core stack needs.
//
// Core intrinsic functions:
//
//	Ref{"UploadsBucket"} → {"Ref": "UploadsBucket"}
//	Sub{"${AWS::Region}-uploads"} → {"Fn::Sub": "${AWS::Region}-uploads"}
//	Join{"", []any{bucketArn, "/*"}} → {"Fn::Join": ["", [bucketArn, "/*"]]}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_STACK_NAME, etc.
package intrinsics

import (
	"encoding/json"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// Re-export core intrinsic types from the shared schema package.
type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// SubWithMap is Fn::Sub with a variable map.
	SubWithMap = intrinsics.SubWithMap

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split

	// If represents a CloudFormation Fn::If intrinsic function.
	If = intrinsics.If

	// Equals represents a CloudFormation Fn::Equals condition function.
	Equals = intrinsics.Equals

	// Not represents a CloudFormation Fn::Not condition function.
	Not = intrinsics.Not

	// ImportValue represents a CloudFormation Fn::ImportValue intrinsic function.
	ImportValue = intrinsics.ImportValue
)

// Contains is the Fn::Contains rule function. It is only valid inside the
// Rules section of a template.
//
//	Contains{Values: []any{"1", "2"}, Value: Ref{LogicalName: "BootstrapVersion"}}
//	→ {"Fn::Contains": [["1", "2"], {"Ref": "BootstrapVersion"}]}
type Contains struct {
	Values []any
	Value  any
}

// MarshalJSON serializes to {"Fn::Contains": [values, value]}.
func (c Contains) MarshalJSON() ([]byte, error) {
	values := c.Values
	if values == nil {
		values = []any{}
	}
	return json.Marshal(map[string][]any{
		"Fn::Contains": {values, c.Value},
	})
}

// Assertion is one entry of a template rule's Assertions list.
type Assertion struct {
	Assert            any    `json:"Assert"`
	AssertDescription string `json:"AssertDescription,omitempty"`
}

// TemplateRule is an entry of the template Rules section.
type TemplateRule struct {
	RuleCondition any         `json:"RuleCondition,omitempty"`
	Assertions    []Assertion `json:"Assertions"`
}

// BoolPtr returns a pointer to b, for optional settings where false is
// meaningful.
func BoolPtr(b bool) *bool {
	return &b
}
