package checks

import (
	"fmt"

	coreinfra "github.com/academic-agent/core-infra"
)

const userPoolType = "AWS::Cognito::UserPool"

// MinPasswordLength is the shortest password length UserPoolPasswordPolicy
// accepts.
const MinPasswordLength = 12

// UserPoolPasswordPolicy requires long passwords with all four classes.
type UserPoolPasswordPolicy struct{}

func (r UserPoolPasswordPolicy) ID() string { return "CIS005" }
func (r UserPoolPasswordPolicy) Description() string {
	return "User pools must require strong passwords"
}

var passwordClasses = []string{"RequireLowercase", "RequireNumbers", "RequireSymbols", "RequireUppercase"}

func (r UserPoolPasswordPolicy) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, userPoolType) {
		policy := mapAt(mapAt(tmpl.Resources[id].Properties, "Policies"), "PasswordPolicy")
		if policy == nil {
			findings = append(findings, finding(id, r, SeverityError,
				"user pool has no password policy",
				fmt.Sprintf("Set Policies.PasswordPolicy with MinimumLength >= %d", MinPasswordLength)))
			continue
		}

		if n, ok := asInt(policy["MinimumLength"]); !ok || n < MinPasswordLength {
			findings = append(findings, finding(id, r, SeverityError,
				fmt.Sprintf("password minimum length is below %d", MinPasswordLength),
				fmt.Sprintf("Set MinimumLength to at least %d", MinPasswordLength)))
		}
		for _, class := range passwordClasses {
			if !isTrue(policy[class]) {
				findings = append(findings, finding(id, r, SeverityError,
					fmt.Sprintf("password policy does not set %s", class),
					fmt.Sprintf("Set %s to true", class)))
			}
		}
	}
	return findings
}

// UserPoolMfa recommends MFA be available.
type UserPoolMfa struct{}

func (r UserPoolMfa) ID() string { return "CIS006" }
func (r UserPoolMfa) Description() string {
	return "User pools should not turn MFA off"
}

func (r UserPoolMfa) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, userPoolType) {
		mfa, _ := tmpl.Resources[id].Properties["MfaConfiguration"].(string)
		if mfa == "" || mfa == "OFF" {
			findings = append(findings, finding(id, r, SeverityWarning,
				"multi-factor authentication is off",
				"Set MfaConfiguration to OPTIONAL or ON"))
		}
	}
	return findings
}

// UserPoolSignUpMode asks for AllowAdminCreateUserOnly to be explicit, since
// the service default permits self sign-up.
type UserPoolSignUpMode struct{}

func (r UserPoolSignUpMode) ID() string { return "CIS007" }
func (r UserPoolSignUpMode) Description() string {
	return "User pools should declare sign-up mode explicitly"
}

func (r UserPoolSignUpMode) Check(tmpl *coreinfra.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, userPoolType) {
		admin := mapAt(tmpl.Resources[id].Properties, "AdminCreateUserConfig")
		if _, ok := admin["AllowAdminCreateUserOnly"]; !ok {
			findings = append(findings, finding(id, r, SeverityInfo,
				"sign-up mode is left to the service default",
				"Set AdminCreateUserConfig.AllowAdminCreateUserOnly"))
		}
	}
	return findings
}
