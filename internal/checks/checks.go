// Package checks runs security rules against synthesized templates.
//
// Rules:
//
//	CIS001: Buckets must have default encryption
//	CIS002: Buckets must block all public access
//	CIS003: Buckets must have a policy denying non-TLS requests
//	CIS004: Buckets should have versioning enabled
//	CIS005: User pools must require strong passwords
//	CIS006: User pools should not turn MFA off
//	CIS007: User pools should declare sign-up mode explicitly
//	CIS008: Enumerated property values must be valid
//	CIS009: Stateful resources should be retained on delete
package checks

import (
	"sort"
	"strconv"

	corelint "github.com/lex00/wetwire-core-go/lint"

	coreinfra "github.com/academic-agent/core-infra"
)

// Type aliases for the shared lint issue model.
type (
	// Issue is an alias for corelint.Issue.
	Issue = corelint.Issue
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Finding is an issue attached to the resource that caused it.
type Finding struct {
	Resource string
	Issue
}

// CheckIssue converts the finding to the CLI output form.
func (f Finding) CheckIssue() coreinfra.CheckIssue {
	return coreinfra.CheckIssue{
		Resource: f.Resource,
		Severity: f.Severity.String(),
		Message:  f.Message,
		Rule:     f.Rule,
	}
}

// Rule checks a template.
type Rule interface {
	ID() string
	Description() string
	Check(tmpl *coreinfra.Template) []Finding
}

// Result contains the outcome of checking.
type Result struct {
	// Success is false when any finding is an error.
	Success  bool
	Findings []Finding
}

// Options configures Run.
type Options struct {
	// EnabledRules limits the rules run. If empty, all rules run.
	EnabledRules []string
	// DisabledRules are skipped even when enabled.
	DisabledRules []string
	// File is recorded on every finding.
	File string
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		BucketEncryption{},
		BucketPublicAccess{},
		BucketTLSOnly{},
		BucketVersioning{},
		UserPoolPasswordPolicy{},
		UserPoolMfa{},
		UserPoolSignUpMode{},
		EnumValues{},
		RetainStateful{},
	}
}

func getRules(opts Options) []Rule {
	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}
	disabled := make(map[string]bool)
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	var rules []Rule
	for _, rule := range AllRules() {
		if len(enabled) > 0 && !enabled[rule.ID()] {
			continue
		}
		if disabled[rule.ID()] {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// Run checks tmpl with the selected rules. Findings are ordered by resource,
// then rule.
func Run(tmpl *coreinfra.Template, opts Options) Result {
	var findings []Finding
	for _, rule := range getRules(opts) {
		for _, f := range rule.Check(tmpl) {
			if f.File == "" {
				f.File = opts.File
			}
			findings = append(findings, f)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Resource != findings[j].Resource {
			return findings[i].Resource < findings[j].Resource
		}
		return findings[i].Rule < findings[j].Rule
	})

	success := true
	for _, f := range findings {
		if f.Severity == SeverityError {
			success = false
			break
		}
	}
	return Result{Success: success, Findings: findings}
}

// resourcesOfType returns the logical IDs of resources with the given type,
// sorted.
func resourcesOfType(tmpl *coreinfra.Template, cfType string) []string {
	var ids []string
	for id, res := range tmpl.Resources {
		if res.Type == cfType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func finding(resource string, rule Rule, severity Severity, message, suggestion string) Finding {
	return Finding{
		Resource: resource,
		Issue: Issue{
			Rule:       rule.ID(),
			Message:    message,
			Suggestion: suggestion,
			Severity:   severity,
		},
	}
}

// Property helpers tolerate the shapes a template can take: typed values
// from synthesis and strings or float64 from a parsed file.

func mapAt(v any, key string) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out, _ := m[key].(map[string]any)
	return out
}

func listAt(v any, key string) []any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out, _ := m[key].([]any)
	return out
}

func isTrue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "True"
	}
	return false
}

func isFalse(v any) bool {
	switch b := v.(type) {
	case bool:
		return !b
	case string:
		return b == "false" || b == "False"
	}
	return false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
