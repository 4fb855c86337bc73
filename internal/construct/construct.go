// Package construct is the in-memory declaration model: an App holds Stacks,
// a Stack holds resources under logical IDs, and synthesis turns each Stack
// into a CloudFormation template.
package construct

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/apex/log"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/serialize"
	"github.com/academic-agent/core-infra/internal/template"
	"github.com/academic-agent/core-infra/intrinsics"
)

var (
	// ErrDuplicateID is returned when a logical ID is declared twice in a scope.
	ErrDuplicateID = errors.New("duplicate logical id")
	// ErrInvalidID is returned for logical IDs that are not alphanumeric.
	ErrInvalidID = errors.New("invalid logical id")
	// ErrUnknownReference is returned when a Ref or Fn::GetAtt names nothing
	// declared in the stack.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrCycle is returned when resources depend on each other in a loop.
	ErrCycle = template.ErrCircularDependency
)

var logicalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)

// ValidateID checks that id is a legal CloudFormation logical ID.
func ValidateID(id string) error {
	if !logicalIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must be 1-255 alphanumeric characters", ErrInvalidID, id)
	}
	return nil
}

// RemovalPolicy controls what happens to a resource when it leaves the stack.
type RemovalPolicy string

const (
	// RemovalRetain keeps the physical resource.
	RemovalRetain RemovalPolicy = "Retain"
	// RemovalDestroy deletes the physical resource.
	RemovalDestroy RemovalPolicy = "Delete"
	// RemovalSnapshot snapshots the resource before deleting it.
	RemovalSnapshot RemovalPolicy = "Snapshot"
)

// ResourceOption customizes a resource declaration.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	removal   RemovalPolicy
	dependsOn []string
}

// WithRemovalPolicy sets DeletionPolicy and UpdateReplacePolicy.
func WithRemovalPolicy(policy RemovalPolicy) ResourceOption {
	return func(o *resourceOptions) {
		o.removal = policy
	}
}

// WithDependsOn adds explicit DependsOn entries.
func WithDependsOn(deps ...*Construct) ResourceOption {
	return func(o *resourceOptions) {
		for _, dep := range deps {
			if dep != nil {
				o.dependsOn = append(o.dependsOn, dep.id)
			}
		}
	}
}

// App is the deployable unit. It owns stacks in declaration order.
type App struct {
	stacks []*Stack
	names  map[string]*Stack
}

// NewApp creates an empty App.
func NewApp() *App {
	return &App{names: make(map[string]*Stack)}
}

// Stacks returns the stacks in declaration order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack(nil), a.stacks...)
}

// Stack returns the stack with the given name.
func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.names[name]
	return s, ok
}

// Environment is the deployment target of a stack. Empty fields leave the
// stack environment-agnostic.
type Environment struct {
	Account string
	Region  string
}

// String renders the environment as aws://account/region.
func (e Environment) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return fmt.Sprintf("aws://%s/%s", account, region)
}

// IsAgnostic reports whether neither account nor region is pinned.
func (e Environment) IsAgnostic() bool {
	return e.Account == "" && e.Region == ""
}

// StackProps configures a new Stack.
type StackProps struct {
	Env         Environment
	Description string
	// SkipBootstrapVersionRule omits the BootstrapVersion parameter and its
	// CheckBootstrapVersion rule.
	SkipBootstrapVersionRule bool
}

// Stack is a single CloudFormation stack.
type Stack struct {
	name        string
	env         Environment
	description string

	order      []string
	resources  map[string]*entry
	parameters map[string]coreinfra.Parameter
	rules      map[string]any
	outputs    map[string]coreinfra.Output

	errs []error
}

type entry struct {
	resource coreinfra.Resource
	opts     resourceOptions
}

// NewStack declares a stack on app.
func NewStack(app *App, id string, props StackProps) (*Stack, error) {
	if app == nil {
		return nil, errors.New("stack requires an app")
	}
	if err := ValidateStackName(id); err != nil {
		return nil, err
	}
	if _, exists := app.names[id]; exists {
		return nil, fmt.Errorf("%w: stack %s", ErrDuplicateID, id)
	}

	s := &Stack{
		name:        id,
		env:         props.Env,
		description: props.Description,
		resources:   make(map[string]*entry),
		parameters:  make(map[string]coreinfra.Parameter),
		rules:       make(map[string]any),
		outputs:     make(map[string]coreinfra.Output),
	}
	if !props.SkipBootstrapVersionRule {
		addBootstrapVersionRule(s)
	}

	app.stacks = append(app.stacks, s)
	app.names[id] = s

	log.WithFields(log.Fields{"stack": id, "env": s.env.String()}).Debug("stack declared")
	return s, nil
}

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

// ValidateStackName checks that name is a legal CloudFormation stack name.
func ValidateStackName(name string) error {
	if !stackNamePattern.MatchString(name) {
		return fmt.Errorf("%w: stack name %q must start with a letter and contain only alphanumerics and hyphens", ErrInvalidID, name)
	}
	return nil
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Environment returns the deployment target.
func (s *Stack) Environment() Environment { return s.env }

// Description returns the template description.
func (s *Stack) Description() string { return s.description }

// AddResource declares a resource under a logical ID. Declaration errors are
// recorded on the stack and reported by Err and Template; the returned
// Construct is usable either way so declarations can be chained.
func (s *Stack) AddResource(id string, res coreinfra.Resource, opts ...ResourceOption) *Construct {
	c := &Construct{stack: s, id: id}

	if err := ValidateID(id); err != nil {
		s.errs = append(s.errs, err)
		return c
	}
	if s.idTaken(id) {
		s.errs = append(s.errs, fmt.Errorf("%w: %s", ErrDuplicateID, id))
		return c
	}
	if res == nil {
		s.errs = append(s.errs, fmt.Errorf("resource %s is nil", id))
		return c
	}

	e := &entry{resource: res}
	for _, opt := range opts {
		opt(&e.opts)
	}
	s.resources[id] = e
	s.order = append(s.order, id)

	log.WithFields(log.Fields{"stack": s.name, "id": id, "type": res.ResourceType()}).Debug("resource declared")
	return c
}

// AddParameter declares a template parameter.
func (s *Stack) AddParameter(id string, param coreinfra.Parameter) {
	if err := ValidateID(id); err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if s.idTaken(id) {
		s.errs = append(s.errs, fmt.Errorf("%w: %s", ErrDuplicateID, id))
		return
	}
	s.parameters[id] = param
}

// AddRule declares an entry in the template Rules section.
func (s *Stack) AddRule(id string, rule any) {
	if err := ValidateID(id); err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if _, exists := s.rules[id]; exists {
		s.errs = append(s.errs, fmt.Errorf("%w: rule %s", ErrDuplicateID, id))
		return
	}
	s.rules[id] = rule
}

// AddOutput declares a stack output.
func (s *Stack) AddOutput(id string, output coreinfra.Output) {
	if err := ValidateID(id); err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if _, exists := s.outputs[id]; exists {
		s.errs = append(s.errs, fmt.Errorf("%w: output %s", ErrDuplicateID, id))
		return
	}
	s.outputs[id] = output
}

func (s *Stack) idTaken(id string) bool {
	if _, exists := s.resources[id]; exists {
		return true
	}
	_, exists := s.parameters[id]
	return exists
}

// Err returns the declaration errors recorded so far.
func (s *Stack) Err() error {
	return errors.Join(s.errs...)
}

// Resource returns the declared resource for a logical ID.
func (s *Stack) Resource(id string) (coreinfra.Resource, bool) {
	e, ok := s.resources[id]
	if !ok {
		return nil, false
	}
	return e.resource, true
}

// LogicalIDs returns resource logical IDs in declaration order.
func (s *Stack) LogicalIDs() []string {
	return append([]string(nil), s.order...)
}

// OutputIDs returns output IDs sorted by name.
func (s *Stack) OutputIDs() []string {
	ids := make([]string, 0, len(s.outputs))
	for id := range s.outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Declared serializes every resource and returns its declaration metadata
// keyed by logical ID.
func (s *Stack) Declared() (map[string]coreinfra.DeclaredResource, error) {
	declared, _, err := s.declare()
	return declared, err
}

func (s *Stack) declare() (map[string]coreinfra.DeclaredResource, map[string]map[string]any, error) {
	if err := s.Err(); err != nil {
		return nil, nil, err
	}

	declared := make(map[string]coreinfra.DeclaredResource, len(s.resources))
	values := make(map[string]map[string]any, len(s.resources))
	var errs []error

	for _, id := range s.order {
		e := s.resources[id]
		props, err := serialize.Resource(e.resource)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s: %w", id, err))
			continue
		}
		values[id] = props

		res := coreinfra.DeclaredResource{
			Name:   id,
			Type:   goTypeName(e.resource),
			CFType: e.resource.ResourceType(),
		}
		deps := make(map[string]bool)
		for _, ref := range serialize.References(props) {
			if err := s.checkReference(ref); err != nil {
				errs = append(errs, fmt.Errorf("resource %s: %w", id, err))
				continue
			}
			if _, isResource := s.resources[ref.Name]; !isResource {
				continue
			}
			if ref.Name == id {
				errs = append(errs, fmt.Errorf("%w: %s references itself", ErrCycle, id))
				continue
			}
			if !deps[ref.Name] {
				deps[ref.Name] = true
				res.Dependencies = append(res.Dependencies, ref.Name)
			}
			if ref.Attribute != "" {
				res.AttrRefUsages = append(res.AttrRefUsages, coreinfra.AttrRefUsage{
					ResourceName: ref.Name,
					Attribute:    ref.Attribute,
				})
			}
		}
		for _, dep := range e.opts.dependsOn {
			if _, exists := s.resources[dep]; !exists {
				errs = append(errs, fmt.Errorf("resource %s: %w: DependsOn %s", id, ErrUnknownReference, dep))
			}
		}
		declared[id] = res
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return declared, values, nil
}

func (s *Stack) checkReference(ref serialize.Reference) error {
	if _, ok := s.resources[ref.Name]; ok {
		return nil
	}
	if _, ok := s.parameters[ref.Name]; ok && ref.Attribute == "" {
		return nil
	}
	if ref.Attribute != "" {
		return fmt.Errorf("%w: %s.%s", ErrUnknownReference, ref.Name, ref.Attribute)
	}
	return fmt.Errorf("%w: %s", ErrUnknownReference, ref.Name)
}

// Template synthesizes the stack into a CloudFormation template.
func (s *Stack) Template() (*coreinfra.Template, error) {
	declared, values, err := s.declare()
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}

	b := template.NewBuilder(declared)
	b.SetDescription(s.description)

	for id, props := range values {
		b.SetValue(id, props)
	}
	for id, e := range s.resources {
		attrs := template.Attributes{DependsOn: e.opts.dependsOn}
		if e.opts.removal != "" {
			attrs.DeletionPolicy = string(e.opts.removal)
			attrs.UpdateReplacePolicy = string(e.opts.removal)
		}
		b.SetAttributes(id, attrs)
	}
	for id, param := range s.parameters {
		b.AddParameter(id, param)
	}
	for id, rule := range s.rules {
		b.AddRule(id, rule)
	}

	var errs []error
	for _, id := range s.OutputIDs() {
		output := s.outputs[id]
		props, err := serialize.Resource(struct {
			Value any
		}{output.Value})
		if err != nil {
			errs = append(errs, fmt.Errorf("output %s: %w", id, err))
			continue
		}
		for _, ref := range serialize.References(props) {
			if err := s.checkReference(ref); err != nil {
				errs = append(errs, fmt.Errorf("output %s: %w", id, err))
			}
		}
		b.AddOutput(id, output)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("stack %s: %w", s.name, errors.Join(errs...))
	}

	tmpl, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}

	log.WithFields(log.Fields{"stack": s.name, "resources": len(tmpl.Resources)}).Debug("stack synthesized")
	return tmpl, nil
}

// goTypeName returns the package-qualified Go type, e.g. "s3.Bucket".
func goTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// Construct is a handle to a declared resource.
type Construct struct {
	stack *Stack
	id    string
}

// LogicalID returns the resource's logical ID.
func (c *Construct) LogicalID() string { return c.id }

// Stack returns the owning stack.
func (c *Construct) Stack() *Stack { return c.stack }

// Ref returns a Ref to the resource.
func (c *Construct) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: c.id}
}

// Attr returns a Fn::GetAtt reference to one of the resource's attributes.
func (c *Construct) Attr(name string) coreinfra.AttrRef {
	return coreinfra.AttrRef{Resource: c.id, Attribute: name}
}

// Resource returns the declared resource value.
func (c *Construct) Resource() coreinfra.Resource {
	res, _ := c.stack.Resource(c.id)
	return res
}
