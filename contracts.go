// Package coreinfra declares the academic agent core infrastructure as Go values.
//
// Resources are typed structs that serialize to CloudFormation properties:
//
//	var uploads = s3.Bucket{
//	    VersioningConfiguration: &s3.Bucket_VersioningConfiguration{Status: "Enabled"},
//	}
//
// A stack registers them under logical IDs and synthesizes a template:
//
//	app := construct.NewApp()
//	stack, err := corestack.NewCoreStack(app, "AcademicAgentCoreStack", props)
//	if err != nil {
//	    return err
//	}
//	tmpl, err := stack.Template()
//
// The core-infra CLI writes the synthesized cloud assembly and offers
// inspection, checking and comparison of the result.
package coreinfra

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (s3.Bucket, cognito.UserPool, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::S3::Bucket")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// Example:
//
//	role := stack.AddResource("SmsRole", iam.Role{...})
//	pool := cognito.UserPool{
//	    SmsConfiguration: &cognito.UserPool_SmsConfiguration{
//	        SnsCallerArn: role.Attr("Arn"),
//	    },
//	}
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["SmsRole", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "DomainName")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DeclaredResource describes a resource registered on a stack.
type DeclaredResource struct {
	// Name is the logical ID in the template
	Name string
	// Type is the Go type (e.g., "s3.Bucket", "cognito.UserPool")
	Type string
	// CFType is the CloudFormation type (e.g., "AWS::S3::Bucket")
	CFType string
	// Dependencies are logical names of referenced resources
	Dependencies []string
	// AttrRefUsages records GetAtt references made by this resource
	AttrRefUsages []AttrRefUsage
}

// AttrRefUsage records a GetAtt reference from one resource to another.
type AttrRefUsage struct {
	ResourceName string
	Attribute    string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Rules                    map[string]any         `json:"Rules,omitempty" yaml:"Rules,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names an output for cross-stack import.
type Export struct {
	Name any `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `core-infra synth --stdout --format json`
// when the result envelope is requested.
type BuildResult struct {
	Success   bool     `json:"success"`
	Stack     string   `json:"stack,omitempty"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `core-infra validate`.
type ValidateResult struct {
	Success       bool     `json:"success"`
	Resources     int      `json:"resources"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Informational []string `json:"informational,omitempty"`
}

// CheckResult is the JSON output from `core-infra check`.
type CheckResult struct {
	Success bool         `json:"success"`
	Issues  []CheckIssue `json:"issues,omitempty"`
}

// CheckIssue is a single security check finding.
type CheckIssue struct {
	Resource string `json:"resource"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ListResult is the JSON output from `core-infra list`.
type ListResult struct {
	Stack     string         `json:"stack"`
	Resources []ListResource `json:"resources"`
	Outputs   []string       `json:"outputs,omitempty"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// TemplateDiff holds the resource-level differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
	Outputs  []string    `json:"outputs,omitempty"`
}

// DiffEntry is one changed resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the changes in a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Outputs  int `json:"outputs"`
	Total    int `json:"total"`
}

// DiffResult is the JSON output from `core-infra diff`.
type DiffResult struct {
	Success bool         `json:"success"`
	Diff    TemplateDiff `json:"diff"`
	Summary DiffSummary  `json:"summary"`
}

// OptimizeSuggestion is one improvement proposed for a resource.
type OptimizeSuggestion struct {
	Rule        string `json:"rule"`
	Resource    string `json:"resource"`
	Category    string `json:"category"` // "security", "cost", "performance", "reliability"
	Severity    string `json:"severity"` // "high", "medium", "low"
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// OptimizeSummary counts suggestions by category.
type OptimizeSummary struct {
	Security    int `json:"security"`
	Cost        int `json:"cost"`
	Performance int `json:"performance"`
	Reliability int `json:"reliability"`
	Total       int `json:"total"`
}

// OptimizeResult is the JSON output from `core-infra optimize`.
type OptimizeResult struct {
	Success       bool                 `json:"success"`
	Suggestions   []OptimizeSuggestion `json:"suggestions"`
	ResourceCount int                  `json:"resource_count"`
	Summary       OptimizeSummary      `json:"summary"`
}
