// Package graph generates DOT and Mermaid dependency graphs from templates.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/serialize"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeParameters includes parameter references in the graph.
	IncludeParameters bool

	// IncludeOutputs adds a node per output pointing at what it exports.
	IncludeOutputs bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// node is a resource with its outgoing references.
type node struct {
	cfType  string
	deps    []string
	getAtts map[string]bool
}

// Generate creates a dependency graph of tmpl and writes it to w.
func (g *Generator) Generate(tmpl *coreinfra.Template, w io.Writer) error {
	graph := g.buildGraph(tmpl)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *coreinfra.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// collect resolves each resource's references against the template.
func collect(tmpl *coreinfra.Template) map[string]*node {
	nodes := make(map[string]*node, len(tmpl.Resources))
	for name, res := range tmpl.Resources {
		n := &node{cfType: res.Type, getAtts: make(map[string]bool)}
		seen := make(map[string]bool)
		for _, ref := range serialize.References(res.Properties) {
			if ref.Attribute != "" {
				n.getAtts[ref.Name] = true
			}
			if !seen[ref.Name] {
				seen[ref.Name] = true
				n.deps = append(n.deps, ref.Name)
			}
		}
		for _, dep := range res.DependsOn {
			if !seen[dep] {
				seen[dep] = true
				n.deps = append(n.deps, dep)
			}
		}
		sort.Strings(n.deps)
		nodes[name] = n
	}
	return nodes
}

// buildGraph creates the dot.Graph structure for tmpl.
func (g *Generator) buildGraph(tmpl *coreinfra.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	nodes := collect(tmpl)
	names := sortedKeys(nodes)

	if g.ClusterByType {
		g.addClusteredNodes(graph, names, nodes)
	} else {
		for _, name := range names {
			graph.Node(name).Label(nodeLabel(name, nodes[name].cfType))
		}
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(tmpl.Parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
		}
	}

	for _, name := range names {
		for _, dep := range nodes[name].deps {
			_, isResource := nodes[dep]
			_, isParam := tmpl.Parameters[dep]
			if !isResource && !(isParam && g.IncludeParameters) {
				continue
			}

			e := graph.Edge(graph.Node(name), graph.Node(dep))
			if nodes[name].getAtts[dep] {
				e.Attr("color", "blue")
			}
		}
	}

	if g.IncludeOutputs {
		g.addOutputs(graph, tmpl, nodes)
	}

	return graph
}

// addOutputs adds an output node per template output, linked to the
// resources its value references.
func (g *Generator) addOutputs(graph *dot.Graph, tmpl *coreinfra.Template, nodes map[string]*node) {
	for _, name := range sortedKeys(tmpl.Outputs) {
		out := graph.Node("Output_" + name)
		out.Attr("shape", "note")
		out.Label(name)

		for _, ref := range serialize.References(normalizeValue(tmpl.Outputs[name].Value)) {
			if _, ok := nodes[ref.Name]; !ok {
				continue
			}
			e := graph.Edge(out, graph.Node(ref.Name))
			e.Attr("style", "dotted")
		}
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, names []string, nodes map[string]*node) {
	serviceResources := make(map[string][]string)
	for _, name := range names {
		service := extractService(nodes[name].cfType)
		serviceResources[service] = append(serviceResources[service], name)
	}

	for _, service := range sortedKeys(serviceResources) {
		resNames := serviceResources[service]
		if len(resNames) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, name := range resNames {
				cluster.Node(name).Label(nodeLabel(name, nodes[name].cfType))
			}
		} else {
			// Single resource, no cluster needed
			for _, name := range resNames {
				graph.Node(name).Label(nodeLabel(name, nodes[name].cfType))
			}
		}
	}
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

// extractService extracts the AWS service from a CloudFormation type.
// e.g., "AWS::S3::Bucket" -> "S3"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return strings.ToUpper(parts[1])
	}
	return "Other"
}

// normalizeValue converts typed output values into the map form
// serialize.References walks.
func normalizeValue(v any) any {
	props, err := serialize.Resource(struct{ Value any }{v})
	if err != nil {
		return nil
	}
	return props["Value"]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
