package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// RegoRegistry resolves custom conditions through prepared Rego queries.
// Each registered module must define a boolean `match` rule in its
// package; the query input carries the flattened field table and the
// condition args.
type RegoRegistry struct {
	queries map[string]rego.PreparedEvalQuery
}

// NewRegoRegistry parses and prepares the named Rego modules. Preparation
// failures are configuration errors and abort registration.
func NewRegoRegistry(ctx context.Context, modules map[string]string) (*RegoRegistry, error) {
	queries := make(map[string]rego.PreparedEvalQuery, len(modules))
	for name, src := range modules {
		query := fmt.Sprintf("data.%s.match", regoPackageName(src))
		r := rego.New(
			rego.Module(name, src),
			rego.Query(query),
			rego.SetRegoVersion(ast.RegoV1),
		)
		prepared, err := r.PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("prepare custom condition %q: %w", name, err)
		}
		queries[name] = prepared
	}
	return &RegoRegistry{queries: queries}, nil
}

// Resolve implements Registry. Unknown names, evaluation failures, and
// undefined results resolve to false.
func (r *RegoRegistry) Resolve(name string, args map[string]interface{}, input resource.Flattened) bool {
	prepared, ok := r.queries[name]
	if !ok {
		return false
	}

	results, err := prepared.Eval(context.Background(), rego.EvalInput(map[string]interface{}{
		"fields": input.Values(),
		"args":   args,
	}))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}

	matched, ok := results[0].Expressions[0].Value.(bool)
	return ok && matched
}

// regoPackageName extracts the package name from Rego source.
func regoPackageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "cloudgovern.custom"
}
