// Package iam contains AWS::IAM resource types.
package iam

// Attribute names accepted by Fn::GetAtt on an AWS::IAM::Role.
const (
	RoleAttrArn    = "Arn"
	RoleAttrRoleId = "RoleId"
)

// Role represents an AWS::IAM::Role resource.
//
// See: https://docs.aws.amazon.com/AWSCloudFormation/latest/UserGuide/aws-resource-iam-role.html
type Role struct {
	RoleName                 any           `json:"RoleName,omitempty"`
	AssumeRolePolicyDocument any           `json:"AssumeRolePolicyDocument"`
	Description              any           `json:"Description,omitempty"`
	ManagedPolicyArns        []any         `json:"ManagedPolicyArns,omitempty"`
	MaxSessionDuration       any           `json:"MaxSessionDuration,omitempty"`
	Path                     any           `json:"Path,omitempty"`
	Policies                 []Role_Policy `json:"Policies,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Role_Policy is an inline policy embedded in the role.
type Role_Policy struct {
	PolicyDocument any `json:"PolicyDocument"`
	PolicyName     any `json:"PolicyName"`
}
