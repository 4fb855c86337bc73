// Package differ provides semantic comparison of synthesized templates.
package differ

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/template"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    coreinfra.TemplateDiff
	Summary coreinfra.DiffSummary
}

// Empty reports whether the templates were equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// DiffResult wraps the result in the JSON shape printed by the CLI.
func (r *Result) DiffResult() coreinfra.DiffResult {
	return coreinfra.DiffResult{Success: true, Diff: r.Diff, Summary: r.Summary}
}

// Compare compares two templates and returns differences. old is the
// baseline; resources only in updated are reported as added.
func Compare(old, updated *coreinfra.Template, opts Options) (*Result, error) {
	if old == nil || updated == nil {
		return nil, fmt.Errorf("compare: nil template")
	}
	result := &Result{}

	res1 := old.Resources
	res2 := updated.Resources

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, coreinfra.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, coreinfra.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, coreinfra.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	result.Diff.Outputs = compareOutputs(old.Outputs, updated.Outputs, opts)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = coreinfra.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
		Outputs:  len(result.Diff.Outputs),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed +
		result.Summary.Modified + result.Summary.Outputs

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := template.Load(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := template.Load(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 coreinfra.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", plain(def1.Properties), plain(def2.Properties), opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s → %s", orNone(def1.DeletionPolicy), orNone(def2.DeletionPolicy)))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %s → %s", orNone(def1.UpdateReplacePolicy), orNone(def2.UpdateReplacePolicy)))
	}

	return changes
}

// compareProperties recursively compares property maps, descending into
// nested objects so the change names the deepest differing key.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}
		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// compareOutputs reports added, removed and modified outputs.
func compareOutputs(out1, out2 map[string]coreinfra.Output, opts Options) []string {
	var changes []string
	for name, o2 := range out2 {
		o1, exists := out1[name]
		switch {
		case !exists:
			changes = append(changes, fmt.Sprintf("%s added", name))
		case !deepEqual(plain(o1), plain(o2), opts):
			changes = append(changes, fmt.Sprintf("%s modified", name))
		}
	}
	for name := range out1 {
		if _, exists := out2[name]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", name))
		}
	}
	sort.Strings(changes)
	return changes
}

// isIntrinsic reports whether m is a single-key intrinsic such as Ref or
// Fn::GetAtt, which is compared as a whole.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || (len(k) > 4 && k[:4] == "Fn::")
	}
	return false
}

// plain round-trips v through JSON so templates built in memory compare
// equal to templates loaded from disk.
func plain[T any](v T) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		for i, elem := range result {
			data, _ := json.Marshal(elem)
			keys[i] = string(data)
		}
		sort.Sort(byKey{values: result, keys: keys})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	values []any
	keys   []string
}

func (s byKey) Len() int           { return len(s.keys) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []coreinfra.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
