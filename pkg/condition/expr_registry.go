package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// ExprRegistry resolves custom conditions through pre-compiled expr-lang
// programs. Programs are registered by name at load time; evaluation is a
// pure VM run over the flattened input.
//
// The expression environment exposes:
//
//	fields  map of every flattened dotted path to its raw value
//	args    the args attached to the custom condition node
//	field(path)  string value of a path ("" when absent)
//	num(path)    numeric value of a path (0 when absent or non-numeric)
//	has(path)    whether a path is present
type ExprRegistry struct {
	programs map[string]*vm.Program
}

// NewExprRegistry compiles the named expressions. Compilation failures are
// configuration errors and abort registration.
func NewExprRegistry(exprs map[string]string) (*ExprRegistry, error) {
	programs := make(map[string]*vm.Program, len(exprs))
	for name, src := range exprs {
		program, err := expr.Compile(src,
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
		)
		if err != nil {
			return nil, fmt.Errorf("compile custom condition %q: %w", name, err)
		}
		programs[name] = program
	}
	return &ExprRegistry{programs: programs}, nil
}

// Resolve implements Registry. Unknown names and runtime failures resolve
// to false, keeping evaluation total.
func (r *ExprRegistry) Resolve(name string, args map[string]interface{}, input resource.Flattened) bool {
	program, ok := r.programs[name]
	if !ok {
		return false
	}

	env := map[string]interface{}{
		"fields": input.Values(),
		"args":   args,
		"field": func(path string) string {
			s, _ := input.String(path)
			return s
		},
		"num": func(path string) float64 {
			n, _ := input.Number(path)
			return n
		},
		"has": func(path string) bool {
			_, ok := input.Lookup(path)
			return ok
		},
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return false
	}

	matched, ok := out.(bool)
	return ok && matched
}
