// Package optimizer suggests cost, reliability and security improvements
// for synthesized templates. Suggestions are advisory; they never fail a run.
package optimizer

import (
	"sort"

	coreinfra "github.com/academic-agent/core-infra"
)

// Categories in display order.
var Categories = []string{"security", "cost", "performance", "reliability"}

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all", "security", "cost", "performance", "reliability"
	Category string
}

// Result contains optimization suggestions.
type Result struct {
	Suggestions []coreinfra.OptimizeSuggestion
	Summary     coreinfra.OptimizeSummary
}

// ValidCategory reports whether category is "all" or one of Categories.
func ValidCategory(category string) bool {
	if category == "all" || category == "" {
		return true
	}
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Optimize analyzes the resources of tmpl and returns suggestions ordered
// by resource, then rule.
func Optimize(tmpl *coreinfra.Template, opts Options) *Result {
	result := &Result{}

	for name, res := range tmpl.Resources {
		result.Suggestions = append(result.Suggestions, analyzeResource(name, res, opts.Category)...)
	}

	sort.Slice(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Rule < b.Rule
	})

	result.Summary = calculateSummary(result.Suggestions)
	return result
}

// analyzeResource applies optimization rules to a single resource.
func analyzeResource(name string, res coreinfra.ResourceDef, category string) []coreinfra.OptimizeSuggestion {
	var suggestions []coreinfra.OptimizeSuggestion

	for _, rule := range getRulesForType(res.Type) {
		if category != "" && category != "all" && rule.Category != category {
			continue
		}
		if !rule.Applies(res) {
			continue
		}
		suggestions = append(suggestions, coreinfra.OptimizeSuggestion{
			Rule:        rule.ID,
			Resource:    name,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Title:       rule.Title,
			Description: rule.Description,
			Suggestion:  rule.Suggestion,
		})
	}

	return suggestions
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []coreinfra.OptimizeSuggestion) coreinfra.OptimizeSummary {
	summary := coreinfra.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case "security":
			summary.Security++
		case "cost":
			summary.Cost++
		case "performance":
			summary.Performance++
		case "reliability":
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

// Rule represents an optimization rule.
type Rule struct {
	ID          string
	Category    string
	Severity    string
	Title       string
	Description string
	Suggestion  string
	// Applies reports whether the resource would benefit from the suggestion.
	Applies func(res coreinfra.ResourceDef) bool
}

// getRulesForType returns applicable rules for a resource type.
func getRulesForType(resourceType string) []Rule {
	switch resourceType {
	case "AWS::S3::Bucket":
		return s3BucketRules
	case "AWS::Cognito::UserPool":
		return userPoolRules
	case "AWS::IAM::Role":
		return iamRules
	}
	return nil
}
