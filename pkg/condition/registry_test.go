package condition

import (
	"context"
	"testing"
)

func TestExprRegistryResolve(t *testing.T) {
	registry, err := NewExprRegistry(map[string]string{
		"blast-radius-large": `num("graph.blastRadius") > args.limit`,
		"public-production":  `field("resource.metadata.public") == "true" && has("resource.tags.Environment")`,
	})
	if err != nil {
		t.Fatalf("NewExprRegistry() error = %v", err)
	}

	input := testInput()

	tests := []struct {
		name    string
		resolve string
		args    map[string]interface{}
		want    bool
	}{
		{"numeric args match", "blast-radius-large", map[string]interface{}{"limit": 10}, true},
		{"numeric args mismatch", "blast-radius-large", map[string]interface{}{"limit": 20}, false},
		{"field helpers match", "public-production", nil, true},
		{"unknown name", "no-such-condition", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.Resolve(tt.resolve, tt.args, input); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.resolve, got, tt.want)
			}
		})
	}

	// Resolution also flows through the custom condition kind.
	cond := Condition{Kind: KindCustom, Name: "blast-radius-large", Args: map[string]interface{}{"limit": 10}}
	if !Evaluate(cond, input, registry) {
		t.Error("custom condition did not resolve through the expr registry")
	}
}

func TestExprRegistryRejectsBadExpression(t *testing.T) {
	if _, err := NewExprRegistry(map[string]string{"broken": `num("x" >`}); err == nil {
		t.Fatal("NewExprRegistry() accepted an uncompilable expression")
	}
}

const publicBucketRego = `package guardrails

default match := false

match if input.fields["resource.metadata.public"] == true
`

const blastRadiusRego = `package guardrails

default match := false

match if input.fields["graph.blastRadius"] > input.args.limit
`

func TestRegoRegistryResolve(t *testing.T) {
	ctx := context.Background()
	registry, err := NewRegoRegistry(ctx, map[string]string{
		"public-bucket":      publicBucketRego,
		"blast-radius-large": blastRadiusRego,
	})
	if err != nil {
		t.Fatalf("NewRegoRegistry() error = %v", err)
	}

	input := testInput()

	if !registry.Resolve("public-bucket", nil, input) {
		t.Error("public-bucket did not match a public resource")
	}
	if !registry.Resolve("blast-radius-large", map[string]interface{}{"limit": 10}, input) {
		t.Error("blast-radius-large did not match with limit 10")
	}
	if registry.Resolve("blast-radius-large", map[string]interface{}{"limit": 20}, input) {
		t.Error("blast-radius-large matched with limit 20")
	}
	if registry.Resolve("no-such-condition", nil, input) {
		t.Error("unknown name resolved true")
	}

	cond := Condition{Kind: KindCustom, Name: "public-bucket"}
	if !Evaluate(cond, input, registry) {
		t.Error("custom condition did not resolve through the rego registry")
	}
}

func TestRegoRegistryRejectsBadModule(t *testing.T) {
	if _, err := NewRegoRegistry(context.Background(), map[string]string{
		"broken": "package guardrails\n\nmatch if {",
	}); err == nil {
		t.Fatal("NewRegoRegistry() accepted an unparseable module")
	}
}

func TestMultiRegistryResolve(t *testing.T) {
	exprReg, err := NewExprRegistry(map[string]string{
		"high-cost": `num("cost.delta") > 500`,
	})
	if err != nil {
		t.Fatalf("NewExprRegistry() error = %v", err)
	}
	regoReg, err := NewRegoRegistry(context.Background(), map[string]string{
		"public-bucket": publicBucketRego,
	})
	if err != nil {
		t.Fatalf("NewRegoRegistry() error = %v", err)
	}

	registry := MultiRegistry{exprReg, regoReg}
	input := testInput()

	// Each backend serves the names it registered.
	if !registry.Resolve("high-cost", nil, input) {
		t.Error("expr-backed name did not resolve")
	}
	if !registry.Resolve("public-bucket", nil, input) {
		t.Error("rego-backed name did not resolve")
	}
	if registry.Resolve("no-such-condition", nil, input) {
		t.Error("unknown name resolved true")
	}

	var empty MultiRegistry
	if empty.Resolve("high-cost", nil, input) {
		t.Error("empty chain resolved true")
	}
}
