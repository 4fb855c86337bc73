// Package template assembles CloudFormation templates from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	coreinfra "github.com/academic-agent/core-infra"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// ErrCircularDependency is returned when resources reference each other in a loop.
var ErrCircularDependency = errors.New("circular dependency detected")

// Attributes carries the resource-level template attributes that sit next
// to Properties.
type Attributes struct {
	DependsOn           []string
	DeletionPolicy      string
	UpdateReplacePolicy string
}

// Builder constructs CloudFormation templates from declared resources.
type Builder struct {
	description string
	resources   map[string]coreinfra.DeclaredResource
	values      map[string]map[string]any
	attributes  map[string]Attributes
	parameters  map[string]coreinfra.Parameter
	rules       map[string]any
	outputs     map[string]coreinfra.Output
}

// NewBuilder creates a template builder from declared resources.
func NewBuilder(resources map[string]coreinfra.DeclaredResource) *Builder {
	return &Builder{
		resources:  resources,
		values:     make(map[string]map[string]any),
		attributes: make(map[string]Attributes),
		parameters: make(map[string]coreinfra.Parameter),
		rules:      make(map[string]any),
		outputs:    make(map[string]coreinfra.Output),
	}
}

// SetDescription sets the template Description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetValue associates serialized properties with a logical name.
func (b *Builder) SetValue(name string, props map[string]any) {
	b.values[name] = props
}

// SetAttributes sets DependsOn and the removal policies for a resource.
func (b *Builder) SetAttributes(name string, attrs Attributes) {
	b.attributes[name] = attrs
}

// AddParameter adds a template parameter.
func (b *Builder) AddParameter(name string, param coreinfra.Parameter) {
	b.parameters[name] = param
}

// AddRule adds an entry to the Rules section.
func (b *Builder) AddRule(name string, rule any) {
	b.rules[name] = rule
}

// AddOutput adds a template output.
func (b *Builder) AddOutput(name string, output coreinfra.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*coreinfra.Template, error) {
	// Resolve order first so cycles fail the build
	order, err := b.Order()
	if err != nil {
		return nil, err
	}

	template := &coreinfra.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]coreinfra.ResourceDef, len(order)),
	}

	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]coreinfra.Parameter, len(b.parameters))
		for name, param := range b.parameters {
			template.Parameters[name] = param
		}
	}

	if len(b.rules) > 0 {
		template.Rules = make(map[string]any, len(b.rules))
		for name, rule := range b.rules {
			template.Rules[name] = normalize(rule)
		}
	}

	for _, name := range order {
		res := b.resources[name]
		if res.CFType == "" {
			return nil, fmt.Errorf("unknown resource type for %s: %s", name, res.Type)
		}

		attrs := b.attributes[name]
		var dependsOn []string
		if len(attrs.DependsOn) > 0 {
			dependsOn = append([]string(nil), attrs.DependsOn...)
			sort.Strings(dependsOn)
		}

		template.Resources[name] = coreinfra.ResourceDef{
			Type:                res.CFType,
			Properties:          b.values[name],
			DependsOn:           dependsOn,
			DeletionPolicy:      attrs.DeletionPolicy,
			UpdateReplacePolicy: attrs.UpdateReplacePolicy,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]coreinfra.Output, len(b.outputs))
		for name, output := range b.outputs {
			output.Value = normalize(output.Value)
			if output.Export != nil {
				output.Export = &coreinfra.Export{Name: normalize(output.Export.Name)}
			}
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// normalize round-trips a value through JSON so intrinsics become plain
// maps and YAML output matches JSON output.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// Order returns resources in dependency order. Ties are broken by name so
// the order is stable across runs.
func (b *Builder) Order() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, deps := range b.dependencies() {
		for _, dep := range deps {
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// dependencies merges property references and explicit DependsOn, keeping
// only edges to declared resources.
func (b *Builder) dependencies() map[string][]string {
	deps := make(map[string][]string, len(b.resources))
	for name, res := range b.resources {
		seen := make(map[string]bool)
		all := append(append([]string(nil), res.Dependencies...), b.attributes[name].DependsOn...)
		for _, dep := range all {
			if _, exists := b.resources[dep]; !exists || seen[dep] {
				continue
			}
			seen[dep] = true
			deps[name] = append(deps[name], dep)
		}
		sort.Strings(deps[name])
	}
	return deps
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	deps := b.dependencies()
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " → "))
	}
	return ErrCircularDependency
}

// ToJSON serializes the template to JSON.
func ToJSON(t *coreinfra.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *coreinfra.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Encode serializes the template in the named format ("json" or "yaml").
func Encode(t *coreinfra.Template, format string) ([]byte, error) {
	switch format {
	case "json", "":
		return ToJSON(t)
	case "yaml", "yml":
		return ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// Parse decodes a template from JSON or YAML bytes.
func Parse(data []byte) (*coreinfra.Template, error) {
	var template coreinfra.Template

	// Try JSON first
	if err := json.Unmarshal(data, &template); err != nil {
		if yerr := yaml.Unmarshal(data, &template); yerr != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", yerr)
		}
	}
	return &template, nil
}

// Load reads a template file in JSON or YAML.
func Load(path string) (*coreinfra.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
