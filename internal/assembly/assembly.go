// Package assembly writes and reads the cloud assembly directory: one
// template file per stack plus a manifest.json describing the artifacts.
package assembly

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/apex/log"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/template"
)

const (
	// ManifestFile is the manifest name inside an assembly directory.
	ManifestFile = "manifest.json"
	// ManifestVersion is the cloud assembly schema version written.
	ManifestVersion = "36.0.0"
	// StackArtifactType marks a CloudFormation stack artifact.
	StackArtifactType = "aws:cloudformation:stack"
)

// ErrNoManifest is returned when a directory holds no manifest.json.
var ErrNoManifest = errors.New("no cloud assembly manifest")

// Manifest is the assembly manifest.
type Manifest struct {
	Version   string              `json:"version"`
	Artifacts map[string]Artifact `json:"artifacts"`
}

// Artifact is one manifest entry.
type Artifact struct {
	Type        string             `json:"type"`
	Environment string             `json:"environment,omitempty"`
	Properties  ArtifactProperties `json:"properties"`
}

// ArtifactProperties are the stack artifact properties.
type ArtifactProperties struct {
	TemplateFile    string `json:"templateFile"`
	StackName       string `json:"stackName,omitempty"`
	Description     string `json:"description,omitempty"`
	ValidateOnSynth bool   `json:"validateOnSynth"`
}

// TemplateFileName returns the file name of a stack's template.
func TemplateFileName(stack string) string {
	return stack + ".template.json"
}

// Write writes every stack template and the manifest into dir, creating it
// if needed. It returns the paths written, manifest last.
func Write(dir string, asm *construct.Assembly) ([]string, error) {
	if asm == nil || len(asm.Stacks) == 0 {
		return nil, errors.New("assembly has no stacks")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	manifest := Manifest{
		Version:   ManifestVersion,
		Artifacts: make(map[string]Artifact, len(asm.Stacks)),
	}

	var written []string
	for _, stack := range asm.Stacks {
		data, err := template.ToJSON(stack.Template)
		if err != nil {
			return written, fmt.Errorf("encoding %s: %w", stack.Name, err)
		}

		name := TemplateFileName(stack.Name)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)

		manifest.Artifacts[stack.Name] = Artifact{
			Type:        StackArtifactType,
			Environment: stack.Environment,
			Properties: ArtifactProperties{
				TemplateFile: name,
				StackName:    stack.Name,
				Description:  stack.Description,
			},
		}
		log.WithFields(log.Fields{"stack": stack.Name, "file": path}).Debug("template written")
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return written, err
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return written, fmt.Errorf("writing %s: %w", path, err)
	}
	return append(written, path), nil
}

// ReadManifest reads the manifest of the assembly in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}

// Stacks returns the stack artifact names in the manifest, sorted.
func (m *Manifest) Stacks() []string {
	var names []string
	for name, artifact := range m.Artifacts {
		if artifact.Type == StackArtifactType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// LoadTemplate reads the template of the named stack from the assembly in dir.
func LoadTemplate(dir, stack string) (*coreinfra.Template, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	artifact, ok := manifest.Artifacts[stack]
	if !ok || artifact.Type != StackArtifactType {
		return nil, fmt.Errorf("stack %s not found in %s", stack, dir)
	}
	return template.Load(filepath.Join(dir, artifact.Properties.TemplateFile))
}
