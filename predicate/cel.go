package predicate

import (
	"fmt"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
)

// CELEvaluator runs CEL expressions over the variables os (int), contracts
// (map of name to major version), types and properties (lists of names,
// properties as "Type.Property").
type CELEvaluator struct {
	mu       sync.Mutex
	env      *celgo.Env
	envErr   error
	once     sync.Once
	programs map[string]celgo.Program
}

func NewCELEvaluator() *CELEvaluator {
	return &CELEvaluator{programs: make(map[string]celgo.Program)}
}

func (e *CELEvaluator) environment() (*celgo.Env, error) {
	e.once.Do(func() {
		e.env, e.envErr = celgo.NewEnv(
			celgo.Variable("os", celgo.IntType),
			celgo.Variable("contracts", celgo.MapType(celgo.StringType, celgo.IntType)),
			celgo.Variable("types", celgo.ListType(celgo.StringType)),
			celgo.Variable("properties", celgo.ListType(celgo.StringType)),
		)
	})
	return e.env, e.envErr
}

func celActivation(p *Platform) map[string]any {
	contracts := make(map[string]int64, len(p.Contracts))
	for k, v := range p.Contracts {
		contracts[k] = int64(v)
	}
	types := make([]string, 0, len(p.Types))
	for t := range p.Types {
		types = append(types, t)
	}
	props := make([]string, 0, len(p.Properties))
	for pr := range p.Properties {
		props = append(props, pr)
	}
	return map[string]any{
		"os":         int64(p.OSVersion),
		"contracts":  contracts,
		"types":      types,
		"properties": props,
	}
}

func (e *CELEvaluator) Evaluate(p *Platform, expression string) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, wrapEvaluationError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	prg, err := e.loadOrCompile(expression)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(celActivation(p))
	if err != nil {
		return false, wrapEvaluationError("cel", expression, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, wrapEvaluationError("cel", expression, fmt.Errorf("result is %T, not bool", out.Value()))
	}
	return b, nil
}

func (e *CELEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expression]; ok {
		return prg, nil
	}
	env, err := e.environment()
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	e.programs[expression] = prg
	return prg, nil
}
