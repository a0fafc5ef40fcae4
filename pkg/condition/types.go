// Package condition implements the closed condition language shared by
// imperative policies and compliance controls. The grammar is a fixed set
// of node kinds over a flattened resource view; it is deliberately not
// Turing-complete. Extension happens through the custom kind, resolved by
// an injected Registry.
package condition

import (
	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// Kind identifies a condition node type.
type Kind string

const (
	// Field comparisons against a dotted path.
	KindFieldEquals    Kind = "field_equals"
	KindFieldNotEquals Kind = "field_not_equals"
	KindFieldContains  Kind = "field_contains"
	KindFieldMatches   Kind = "field_matches"
	KindFieldGT        Kind = "field_gt"
	KindFieldLT        Kind = "field_lt"
	KindFieldExists    Kind = "field_exists"
	KindFieldNotExists Kind = "field_not_exists"
	KindFieldIn        Kind = "field_in"
	KindFieldNotIn     Kind = "field_not_in"

	// Tag-map shortcuts.
	KindTagMissing Kind = "tag_missing"
	KindTagEquals  Kind = "tag_equals"

	// Resource identity shortcuts.
	KindResourceType Kind = "resource_type"
	KindProvider     Kind = "provider"
	KindRegion       Kind = "region"

	// Combinators.
	KindAnd Kind = "and"
	KindOr  Kind = "or"
	KindNot Kind = "not"

	// Named extension point, resolved through a Registry.
	KindCustom Kind = "custom"
)

// Condition is one node of the condition tree. Which fields are meaningful
// depends on Kind; Validate enforces the per-kind shape at load time.
type Condition struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Field is the dotted lookup path for field_* kinds.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	// Value is the comparison operand for equals/contains/gt/lt kinds and
	// the identity shortcuts.
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"`

	// Values is the membership set for field_in / field_not_in.
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`

	// Pattern is the regular expression for field_matches.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Key is the tag key for tag_missing / tag_equals.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Children are the operands for and/or (one or more) and not (exactly
	// one).
	Children []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Name and Args identify a custom condition.
	Name string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Args map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Registry resolves custom conditions by name. Implementations must be
// pure with respect to the input: evaluation order of sibling conditions
// is unspecified.
type Registry interface {
	Resolve(name string, args map[string]interface{}, input resource.Flattened) bool
}

// FuncRegistry is a Registry backed by a plain function map. Unknown names
// resolve to false.
type FuncRegistry map[string]func(args map[string]interface{}, input resource.Flattened) bool

// Resolve implements Registry.
func (r FuncRegistry) Resolve(name string, args map[string]interface{}, input resource.Flattened) bool {
	fn, ok := r[name]
	if !ok {
		return false
	}
	return fn(args, input)
}

// MultiRegistry combines several registries behind one Resolve. A name
// resolves true when any backing registry resolves it true; a name unknown
// to every backend resolves to false, preserving totality.
type MultiRegistry []Registry

// Resolve implements Registry.
func (m MultiRegistry) Resolve(name string, args map[string]interface{}, input resource.Flattened) bool {
	for _, r := range m {
		if r != nil && r.Resolve(name, args, input) {
			return true
		}
	}
	return false
}
