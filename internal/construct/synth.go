package construct

import (
	"errors"
	"fmt"

	coreinfra "github.com/academic-agent/core-infra"
)

// StackArtifact is one synthesized stack.
type StackArtifact struct {
	// Name is the stack name.
	Name string
	// Environment is the aws://account/region target string.
	Environment string
	// Description is the template description.
	Description string
	// Template is the synthesized CloudFormation template.
	Template *coreinfra.Template
}

// Assembly is the synthesized form of an App.
type Assembly struct {
	Stacks []StackArtifact
}

// Stack returns the artifact for the named stack.
func (a *Assembly) Stack(name string) (StackArtifact, bool) {
	for _, s := range a.Stacks {
		if s.Name == name {
			return s, true
		}
	}
	return StackArtifact{}, false
}

// Synth synthesizes every stack in declaration order. Errors from all stacks
// are reported together.
func (a *App) Synth() (*Assembly, error) {
	if len(a.stacks) == 0 {
		return nil, errors.New("app has no stacks")
	}

	assembly := &Assembly{}
	var errs []error
	for _, s := range a.stacks {
		tmpl, err := s.Template()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assembly.Stacks = append(assembly.Stacks, StackArtifact{
			Name:        s.name,
			Environment: s.env.String(),
			Description: s.description,
			Template:    tmpl,
		})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("synth failed: %w", errors.Join(errs...))
	}
	return assembly, nil
}
