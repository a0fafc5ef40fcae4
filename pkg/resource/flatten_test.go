package resource

import "testing"

func TestFlattenInputPaths(t *testing.T) {
	input := &EvaluationInput{
		Resource: &Resource{
			ID:       "db-1",
			Type:     "aws_rds_instance",
			Provider: "aws",
			Region:   "eu-west-1",
			Name:     "orders",
			Status:   "running",
			Tags:     map[string]string{"Environment": "staging"},
			Metadata: map[string]interface{}{
				"encrypted": true,
				"storage": map[string]interface{}{
					"size_gb": 100,
					"class":   "gp3",
				},
			},
		},
		Plan: &PlanSummary{
			TotalCreates: 1,
			TotalUpdates: 2,
			TotalDeletes: 3,
			Resources:    []Resource{{ID: "a"}, {ID: "b"}},
		},
		Cost:        &CostEstimate{Current: 100, Projected: 150, Delta: 50, Currency: "USD"},
		Graph:       &GraphContext{Neighbors: 3, BlastRadius: 9, DependencyDepth: 2},
		Actor:       "alice",
		Environment: "staging",
	}

	flat := FlattenInput(input)

	want := map[string]interface{}{
		"resource.id":                       "db-1",
		"resource.type":                     "aws_rds_instance",
		"resource.provider":                 "aws",
		"resource.region":                   "eu-west-1",
		"resource.name":                     "orders",
		"resource.status":                   "running",
		"resource.tags.Environment":         "staging",
		"resource.metadata.encrypted":       true,
		"resource.metadata.storage.size_gb": 100,
		"resource.metadata.storage.class":   "gp3",
		"plan.totalCreates":                 1,
		"plan.totalUpdates":                 2,
		"plan.totalDeletes":                 3,
		"plan.resources":                    2,
		"cost.current":                      float64(100),
		"cost.projected":                    float64(150),
		"cost.delta":                        float64(50),
		"cost.currency":                     "USD",
		"graph.neighbors":                   3,
		"graph.blastRadius":                 9,
		"graph.dependencyDepth":             2,
		"actor":                             "alice",
		"environment":                       "staging",
	}

	for path, wantVal := range want {
		got, ok := flat.Lookup(path)
		if !ok {
			t.Errorf("Lookup(%q) missing", path)
			continue
		}
		if got != wantVal {
			t.Errorf("Lookup(%q) = %v (%T), want %v (%T)", path, got, got, wantVal, wantVal)
		}
	}

	if len(flat.Values()) != len(want) {
		t.Errorf("Values() has %d entries, want %d", len(flat.Values()), len(want))
	}
}

func TestFlattenOptionalSections(t *testing.T) {
	// Only the resource section is present; no plan, cost, graph, actor or
	// environment paths may appear.
	flat := Flatten(&Resource{ID: "r1", Type: "aws_instance"})

	for _, path := range []string{"plan.totalDeletes", "cost.delta", "graph.blastRadius", "actor", "environment"} {
		if _, ok := flat.Lookup(path); ok {
			t.Errorf("Lookup(%q) present, want absent", path)
		}
	}

	if _, ok := flat.Lookup("resource.id"); !ok {
		t.Error("Lookup(resource.id) absent, want present")
	}

	// Nil input flattens to an empty table, not a panic.
	empty := FlattenInput(nil)
	if len(empty.Values()) != 0 {
		t.Errorf("FlattenInput(nil) has %d entries, want 0", len(empty.Values()))
	}
}

func TestFlattenedString(t *testing.T) {
	flat := FlattenInput(&EvaluationInput{
		Resource: &Resource{
			ID:   "r1",
			Type: "t",
			Metadata: map[string]interface{}{
				"public": true,
				"count":  int64(42),
				"ratio":  0.5,
			},
		},
	})

	tests := []struct {
		path string
		want string
	}{
		{"resource.metadata.public", "true"},
		{"resource.metadata.count", "42"},
		{"resource.metadata.ratio", "0.5"},
		{"resource.id", "r1"},
	}

	for _, tt := range tests {
		got, ok := flat.String(tt.path)
		if !ok {
			t.Errorf("String(%q) missing", tt.path)
			continue
		}
		if got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if _, ok := flat.String("resource.metadata.absent"); ok {
		t.Error("String on absent path reported present")
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   float64
		wantOK bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int", 7, 7, true},
		{"int64", int64(9), 9, true},
		{"numeric string", "12.25", 12.25, true},
		{"non-numeric string", "many", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.value)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ToNumber(%v) = (%v, %v), want (%v, %v)", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
