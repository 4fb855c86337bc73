// Package schema provides offline validation of synthesized resources
// against the property schemas of the resource types the core stack uses.
package schema

import (
	"fmt"
	"sort"
	"strings"

	coreinfra "github.com/academic-agent/core-infra"
)

// Options configures schema validation.
type Options struct {
	// Strict makes unknown resource types errors and reports unknown
	// properties as warnings.
	Strict bool
}

// Error is one schema violation.
type Error struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Error
}

// ValidateTemplate validates every resource of tmpl. Results are ordered by
// resource, then property.
func ValidateTemplate(tmpl *coreinfra.Template, opts Options) *Result {
	result := &Result{Valid: true}

	for name, resource := range tmpl.Resources {
		errs, warnings := validateResource(name, resource, opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	sortErrors(result.Errors)
	sortErrors(result.Warnings)
	result.Valid = len(result.Errors) == 0
	return result
}

func sortErrors(errs []Error) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Resource != errs[j].Resource {
			return errs[i].Resource < errs[j].Resource
		}
		return errs[i].Property < errs[j].Property
	})
}

// validateResource validates a single resource.
func validateResource(name string, resource coreinfra.ResourceDef, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		unknown := Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		}
		if opts.Strict {
			errs = append(errs, unknown)
		} else {
			warnings = append(warnings, unknown)
		}
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	for propName, propValue := range resource.Properties {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}

		errs = append(errs, validateProperty(name, propName, propValue, propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks the AWS::Service::Resource or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS" || parts[0] == "Alexa"
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errs []Error

	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok {
			found := false
			for _, allowed := range schema.AllowedValues {
				if strVal == allowed {
					found = true
					break
				}
			}
			if !found {
				errs = append(errs, Error{
					Resource: resource,
					Property: property,
					Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
				})
			}
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions match any type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	case "Json":
		return true
	default:
		return true
	}
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Type       string
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a top-level property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}

// Known returns the resource types with an offline schema, sorted.
func Known() []string {
	types := make([]string, 0, len(resourceSchemas))
	for t := range resourceSchemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var resourceSchemas = map[string]ResourceSchema{
	"AWS::S3::Bucket": {
		Type: "AWS::S3::Bucket",
		Properties: map[string]PropertySchema{
			"BucketName":                     {Type: "String"},
			"BucketEncryption":               {Type: "Map"},
			"PublicAccessBlockConfiguration": {Type: "Map"},
			"VersioningConfiguration":        {Type: "Map"},
			"ObjectLockEnabled":              {Type: "Boolean"},
			"OwnershipControls":              {Type: "Map"},
			"LifecycleConfiguration":         {Type: "Map"},
			"LoggingConfiguration":           {Type: "Map"},
			"CorsConfiguration":              {Type: "Map"},
			"Tags":                           {Type: "List"},
			"AccessControl": {Type: "String", AllowedValues: []string{
				"AuthenticatedRead", "AwsExecRead", "BucketOwnerFullControl", "BucketOwnerRead",
				"LogDeliveryWrite", "Private", "PublicRead", "PublicReadWrite",
			}},
		},
	},
	"AWS::S3::BucketPolicy": {
		Type:     "AWS::S3::BucketPolicy",
		Required: []string{"Bucket", "PolicyDocument"},
		Properties: map[string]PropertySchema{
			"Bucket":         {Type: "String"},
			"PolicyDocument": {Type: "Json"},
		},
	},
	"AWS::Cognito::UserPool": {
		Type: "AWS::Cognito::UserPool",
		Properties: map[string]PropertySchema{
			"UserPoolName":                {Type: "String"},
			"AccountRecoverySetting":      {Type: "Map"},
			"AdminCreateUserConfig":       {Type: "Map"},
			"AliasAttributes":             {Type: "List"},
			"AutoVerifiedAttributes":      {Type: "List"},
			"DeletionProtection":          {Type: "String", AllowedValues: []string{"ACTIVE", "INACTIVE"}},
			"EmailVerificationMessage":    {Type: "String"},
			"EmailVerificationSubject":    {Type: "String"},
			"EnabledMfas":                 {Type: "List"},
			"MfaConfiguration":            {Type: "String", AllowedValues: []string{"OFF", "ON", "OPTIONAL"}},
			"Policies":                    {Type: "Map"},
			"Schema":                      {Type: "List"},
			"SmsConfiguration":            {Type: "Map"},
			"SmsVerificationMessage":      {Type: "String"},
			"UsernameAttributes":          {Type: "List"},
			"UsernameConfiguration":       {Type: "Map"},
			"UserPoolTags":                {Type: "Map"},
			"VerificationMessageTemplate": {Type: "Map"},
		},
	},
	"AWS::IAM::Role": {
		Type:     "AWS::IAM::Role",
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": {Type: "Json"},
			"Description":              {Type: "String"},
			"ManagedPolicyArns":        {Type: "List"},
			"MaxSessionDuration":       {Type: "Integer"},
			"Path":                     {Type: "String"},
			"PermissionsBoundary":      {Type: "String"},
			"Policies":                 {Type: "List"},
			"RoleName":                 {Type: "String"},
			"Tags":                     {Type: "List"},
		},
	},
}
