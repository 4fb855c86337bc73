package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lex00/cloudformation-schema-go/enums"

	coreinfra "github.com/academic-agent/core-infra"
)

// EnumValues validates enumerated property values against enumAllowedValues,
// falling back to the schema package's enums for properties not listed there.
type EnumValues struct{}

func (r EnumValues) ID() string { return "CIS008" }
func (r EnumValues) Description() string {
	return "Enumerated property values must be valid"
}

// enumProperty locates an enumerated property within a resource type.
type enumProperty struct {
	service string
	path    []string
}

var enumProperties = map[string][]enumProperty{
	bucketType: {
		{"s3", []string{"VersioningConfiguration", "Status"}},
		{"s3", []string{"BucketEncryption", "ServerSideEncryptionConfiguration", "*", "ServerSideEncryptionByDefault", "SSEAlgorithm"}},
		{"s3", []string{"OwnershipControls", "Rules", "*", "ObjectOwnership"}},
	},
	userPoolType: {
		{"cognito-idp", []string{"MfaConfiguration"}},
		{"cognito-idp", []string{"EnabledMfas", "*"}},
		{"cognito-idp", []string{"AccountRecoverySetting", "RecoveryMechanisms", "*", "Name"}},
		{"cognito-idp", []string{"VerificationMessageTemplate", "DefaultEmailOption"}},
	},
}

// enumAllowedValues is keyed by service, then by the last property name.
var enumAllowedValues = map[string]map[string][]string{
	"s3": {
		"Status":       {"Enabled", "Suspended"},
		"SSEAlgorithm": {"AES256", "aws:kms", "aws:kms:dsse"},
	},
	"cognito-idp": {
		"MfaConfiguration":   {"OFF", "ON", "OPTIONAL"},
		"EnabledMfas":        {"SMS_MFA", "SOFTWARE_TOKEN_MFA", "EMAIL_OTP"},
		"Name":               {"admin_only", "verified_email", "verified_phone_number"},
		"DefaultEmailOption": {"CONFIRM_WITH_CODE", "CONFIRM_WITH_LINK"},
	},
}

func (r EnumValues) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding

	types := make([]string, 0, len(enumProperties))
	for t := range enumProperties {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, cfType := range types {
		for _, id := range resourcesOfType(tmpl, cfType) {
			props := tmpl.Resources[id].Properties
			for _, prop := range enumProperties[cfType] {
				name := prop.path[len(prop.path)-1]
				if name == "*" {
					name = prop.path[len(prop.path)-2]
				}
				for _, value := range valuesAt(props, prop.path) {
					s, ok := value.(string)
					if !ok {
						// Intrinsics resolve at deploy time.
						continue
					}
					if !validEnumValue(prop.service, name, s) {
						findings = append(findings, finding(id, r, SeverityError,
							fmt.Sprintf("invalid value %q for %s", s, strings.Join(prop.path, ".")),
							fmt.Sprintf("Use one of: %s", strings.Join(allowedValues(prop.service, name), ", "))))
					}
				}
			}
		}
	}
	return findings
}

func validEnumValue(service, property, value string) bool {
	if allowed, ok := enumAllowedValues[service][property]; ok {
		for _, v := range allowed {
			if v == value {
				return true
			}
		}
		return false
	}
	if enumName := enums.GetEnumForProperty(service, property); enumName != "" {
		return enums.IsValidValue(service, enumName, value)
	}
	return true
}

func allowedValues(service, property string) []string {
	return enumAllowedValues[service][property]
}

// valuesAt follows path through maps, expanding "*" over list elements.
func valuesAt(v any, path []string) []any {
	if len(path) == 0 {
		if v == nil {
			return nil
		}
		return []any{v}
	}

	if path[0] == "*" {
		list, _ := v.([]any)
		var out []any
		for _, elem := range list {
			out = append(out, valuesAt(elem, path[1:])...)
		}
		return out
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return valuesAt(m[path[0]], path[1:])
}

// RetainStateful recommends Retain on resources that hold data.
type RetainStateful struct{}

func (r RetainStateful) ID() string { return "CIS009" }
func (r RetainStateful) Description() string {
	return "Stateful resources should be retained on delete"
}

var statefulTypes = []string{bucketType, userPoolType}

func (r RetainStateful) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, cfType := range statefulTypes {
		for _, id := range resourcesOfType(tmpl, cfType) {
			res := tmpl.Resources[id]
			if res.DeletionPolicy != "Retain" {
				findings = append(findings, finding(id, r, SeverityWarning,
					"resource is deleted with the stack",
					"Set DeletionPolicy and UpdateReplacePolicy to Retain"))
			}
			if res.UpdateReplacePolicy != "Retain" {
				findings = append(findings, finding(id, r, SeverityWarning,
					"resource is deleted on replacement",
					"Set UpdateReplacePolicy to Retain"))
			}
		}
	}
	return findings
}
