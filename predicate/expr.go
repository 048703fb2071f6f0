package predicate

import (
	"fmt"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluator runs expr-lang expressions. The environment exposes
// os (build number), contract(name) (highest present major version or 0),
// hasType(name) and hasProperty(type, name).
type ExprEvaluator struct {
	mu       sync.Mutex
	programs map[string]*exprvm.Program
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{programs: make(map[string]*exprvm.Program)}
}

func exprEnvironment(p *Platform) map[string]any {
	return map[string]any{
		"os": int(p.OSVersion),
		"contract": func(name string) int {
			return p.Contracts[name]
		},
		"hasType": func(name string) bool {
			return p.HasType(name)
		},
		"hasProperty": func(typeName, prop string) bool {
			return p.HasProperty(typeName, prop)
		},
	}
}

func (e *ExprEvaluator) Evaluate(p *Platform, expression string) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, wrapEvaluationError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	env := exprEnvironment(p)
	program, err := e.loadOrCompile(expression, env)
	if err != nil {
		return false, err
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return false, wrapEvaluationError("expr", expression, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, wrapEvaluationError("expr", expression, fmt.Errorf("result is %T, not bool", out))
	}
	return b, nil
}

func (e *ExprEvaluator) loadOrCompile(expression string, env map[string]any) (*exprvm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if program, ok := e.programs[expression]; ok {
		return program, nil
	}
	program, err := exprlang.Compile(expression, exprlang.Env(env), exprlang.AsBool())
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	e.programs[expression] = program
	return program, nil
}
