// Package resource defines the evaluation subjects for the governance
// engine: normalized infrastructure resources and the optional-field
// evaluation input bundle policies are evaluated against.
package resource

// Resource is a normalized infrastructure resource supplied by an external
// discovery collaborator. Tags and Metadata are always present, possibly
// empty, never nil after Normalize.
type Resource struct {
	// ID is the unique identifier of the resource.
	ID string `json:"id" yaml:"id"`

	// Type is the resource type (e.g. "aws_s3_bucket", "aws_instance").
	Type string `json:"type" yaml:"type"`

	// Provider is the cloud provider (e.g. "aws", "gcp", "azure").
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Region is the provider region the resource lives in.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Name is the human-readable resource name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Status is the lifecycle status reported by discovery.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Tags are the user-assigned key/value tags.
	Tags map[string]string `json:"tags" yaml:"tags"`

	// Metadata contains provider-specific attributes, possibly nested.
	Metadata map[string]interface{} `json:"metadata" yaml:"metadata"`
}

// Normalize ensures Tags and Metadata are non-nil so downstream lookups
// never have to branch on absence.
func (r *Resource) Normalize() {
	if r.Tags == nil {
		r.Tags = map[string]string{}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
}

// PlanSummary describes a pending change set being evaluated.
type PlanSummary struct {
	TotalCreates int        `json:"total_creates" yaml:"total_creates"`
	TotalUpdates int        `json:"total_updates" yaml:"total_updates"`
	TotalDeletes int        `json:"total_deletes" yaml:"total_deletes"`
	Resources    []Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// CostEstimate describes the cost impact of a pending change.
type CostEstimate struct {
	Current   float64 `json:"current" yaml:"current"`
	Projected float64 `json:"projected" yaml:"projected"`
	Delta     float64 `json:"delta" yaml:"delta"`
	Currency  string  `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// GraphContext describes the dependency-graph position of a resource.
type GraphContext struct {
	Neighbors       int `json:"neighbors" yaml:"neighbors"`
	BlastRadius     int `json:"blast_radius" yaml:"blast_radius"`
	DependencyDepth int `json:"dependency_depth" yaml:"dependency_depth"`
}

// EvaluationInput bundles everything a policy condition may reference.
// Every field is optional; conditions that reference an absent namespace
// resolve to "not found" rather than erroring.
type EvaluationInput struct {
	Resource    *Resource     `json:"resource,omitempty" yaml:"resource,omitempty"`
	Plan        *PlanSummary  `json:"plan,omitempty" yaml:"plan,omitempty"`
	Cost        *CostEstimate `json:"cost,omitempty" yaml:"cost,omitempty"`
	Graph       *GraphContext `json:"graph,omitempty" yaml:"graph,omitempty"`
	Actor       string        `json:"actor,omitempty" yaml:"actor,omitempty"`
	Environment string        `json:"environment,omitempty" yaml:"environment,omitempty"`
}
