package bt

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Node type names accepted in a Spec.
const (
	TypeSelector  = "selector"
	TypeSequence  = "sequence"
	TypeCondition = "condition"
	TypeAction    = "action"
)

// ValidNodeTypes is the set of recognized node type names.
var ValidNodeTypes = map[string]bool{
	TypeSelector:  true,
	TypeSequence:  true,
	TypeCondition: true,
	TypeAction:    true,
}

// Spec is the declarative form of a tree, loadable from YAML.
//
//	type: selector
//	children:
//	  - type: sequence
//	    children:
//	      - {type: condition, kind: open-for-3}
//	      - {type: action, kind: shoot-three}
type Spec struct {
	Type     string             `yaml:"type"`
	Kind     string             `yaml:"kind,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
	Children []Spec             `yaml:"children,omitempty"`
}

// LoadSpec reads a tree spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree spec: %w", err)
	}
	return ParseSpec(bytes.NewReader(data))
}

// ParseSpec decodes a tree spec, rejecting unknown fields.
func ParseSpec(r io.Reader) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing tree spec: %w", err)
	}
	return &spec, nil
}

// ConditionFactory builds a predicate from node params.
type ConditionFactory[S, A any] func(params map[string]float64) (Predicate[S, A], error)

// ActionFactory builds an effect from node params.
type ActionFactory[S, A any] func(params map[string]float64) (Effect[S, A], error)

// Registry maps leaf kinds to their factories.
type Registry[S, A any] struct {
	conditions map[string]ConditionFactory[S, A]
	actions    map[string]ActionFactory[S, A]
}

// NewRegistry creates an empty Registry.
func NewRegistry[S, A any]() *Registry[S, A] {
	return &Registry[S, A]{
		conditions: make(map[string]ConditionFactory[S, A]),
		actions:    make(map[string]ActionFactory[S, A]),
	}
}

// RegisterCondition adds a condition kind. Registering a kind twice panics.
func (r *Registry[S, A]) RegisterCondition(kind string, f ConditionFactory[S, A]) {
	if _, dup := r.conditions[kind]; dup {
		panic(fmt.Sprintf("bt: condition %q registered twice", kind))
	}
	r.conditions[kind] = f
}

// RegisterAction adds an action kind. Registering a kind twice panics.
func (r *Registry[S, A]) RegisterAction(kind string, f ActionFactory[S, A]) {
	if _, dup := r.actions[kind]; dup {
		panic(fmt.Sprintf("bt: action %q registered twice", kind))
	}
	r.actions[kind] = f
}

// ConditionKinds returns the registered condition kinds, sorted.
func (r *Registry[S, A]) ConditionKinds() []string {
	return sortedKeys(r.conditions)
}

// ActionKinds returns the registered action kinds, sorted.
func (r *Registry[S, A]) ActionKinds() []string {
	return sortedKeys(r.actions)
}

// Build validates spec and turns it into a node tree.
func (r *Registry[S, A]) Build(spec Spec) (Node[S, A], error) {
	return r.build(spec, "root")
}

func (r *Registry[S, A]) build(spec Spec, path string) (Node[S, A], error) {
	if !ValidNodeTypes[spec.Type] {
		return nil, fmt.Errorf("%s: unknown node type %q", path, spec.Type)
	}
	switch spec.Type {
	case TypeSelector, TypeSequence:
		if len(spec.Children) == 0 {
			return nil, fmt.Errorf("%s: %s has no children", path, spec.Type)
		}
		if spec.Kind != "" || len(spec.Params) > 0 {
			return nil, fmt.Errorf("%s: %s takes no kind or params", path, spec.Type)
		}
		children := make([]Node[S, A], 0, len(spec.Children))
		for i, c := range spec.Children {
			child, err := r.build(c, fmt.Sprintf("%s.%s[%d]", path, spec.Type, i))
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if spec.Type == TypeSelector {
			return NewSelector(children...), nil
		}
		return NewSequence(children...), nil
	case TypeCondition:
		if len(spec.Children) > 0 {
			return nil, fmt.Errorf("%s: condition %q cannot have children", path, spec.Kind)
		}
		f, ok := r.conditions[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("%s: unknown condition %q", path, spec.Kind)
		}
		test, err := f(spec.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: condition %q: %w", path, spec.Kind, err)
		}
		return NewCondition(spec.Kind, test), nil
	default:
		if len(spec.Children) > 0 {
			return nil, fmt.Errorf("%s: action %q cannot have children", path, spec.Kind)
		}
		f, ok := r.actions[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("%s: unknown action %q", path, spec.Kind)
		}
		run, err := f(spec.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: action %q: %w", path, spec.Kind, err)
		}
		return NewAction(spec.Kind, run), nil
	}
}

// Param returns params[name], or def when absent.
func Param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
