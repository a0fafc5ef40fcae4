package resource

import (
	"fmt"
	"strconv"
)

// Flattened is a dotted-path lookup table over an EvaluationInput, built
// once per evaluation. Building it is pure and side-effect-free; lookups
// never fail, they report absence instead.
type Flattened struct {
	values map[string]interface{}
}

// Flatten builds the lookup table for a single resource.
func Flatten(r *Resource) Flattened {
	return FlattenInput(&EvaluationInput{Resource: r})
}

// FlattenInput builds the lookup table for a full evaluation input.
// Paths follow the condition-language namespaces: resource.*, plan.*,
// cost.*, graph.*, actor, environment.
func FlattenInput(in *EvaluationInput) Flattened {
	values := make(map[string]interface{})
	if in == nil {
		return Flattened{values: values}
	}

	if r := in.Resource; r != nil {
		values["resource.id"] = r.ID
		values["resource.type"] = r.Type
		values["resource.provider"] = r.Provider
		values["resource.region"] = r.Region
		values["resource.name"] = r.Name
		values["resource.status"] = r.Status
		for k, v := range r.Tags {
			values["resource.tags."+k] = v
		}
		flattenMap(values, "resource.metadata", r.Metadata)
	}

	if p := in.Plan; p != nil {
		values["plan.totalCreates"] = p.TotalCreates
		values["plan.totalUpdates"] = p.TotalUpdates
		values["plan.totalDeletes"] = p.TotalDeletes
		values["plan.resources"] = len(p.Resources)
	}

	if c := in.Cost; c != nil {
		values["cost.current"] = c.Current
		values["cost.projected"] = c.Projected
		values["cost.delta"] = c.Delta
		values["cost.currency"] = c.Currency
	}

	if g := in.Graph; g != nil {
		values["graph.neighbors"] = g.Neighbors
		values["graph.blastRadius"] = g.BlastRadius
		values["graph.dependencyDepth"] = g.DependencyDepth
	}

	if in.Actor != "" {
		values["actor"] = in.Actor
	}
	if in.Environment != "" {
		values["environment"] = in.Environment
	}

	return Flattened{values: values}
}

// flattenMap expands nested maps into dotted paths. Non-map values are
// stored as-is, including slices, which only string comparisons can match.
func flattenMap(values map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		path := prefix + "." + k
		if nested, ok := v.(map[string]interface{}); ok {
			flattenMap(values, path, nested)
			continue
		}
		values[path] = v
	}
}

// Values returns a copy of the flattened path table. Custom-condition
// registries hand this to embedded expression runtimes.
func (f Flattened) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Lookup returns the raw value at a dotted path.
func (f Flattened) Lookup(path string) (interface{}, bool) {
	v, ok := f.values[path]
	return v, ok
}

// String returns the value at path rendered as a string. Absent paths
// report false.
func (f Flattened) String(path string) (string, bool) {
	v, ok := f.values[path]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// Number returns the value at path coerced to a float64. Absent paths and
// non-numeric values report false, so comparisons degrade to non-matching
// instead of failing.
func (f Flattened) Number(path string) (float64, bool) {
	v, ok := f.values[path]
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// Stringify renders a looked-up value for string comparison and regex
// matching.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToNumber coerces a looked-up value to a float64. Strings are parsed;
// anything unparseable reports false.
func ToNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
