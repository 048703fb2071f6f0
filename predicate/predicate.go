// Package predicate evaluates the guards of conditionally declared objects.
package predicate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"vsmrt/stream"
)

var ErrUnknownPredicate = errors.New("predicate: unknown predicate")

// Built in predicate names.
const (
	IsApiContractPresent    = "IsApiContractPresent"
	IsApiContractNotPresent = "IsApiContractNotPresent"
	IsTypePresent           = "IsTypePresent"
	IsTypeNotPresent        = "IsTypeNotPresent"
	IsPropertyPresent       = "IsPropertyPresent"
	IsPropertyNotPresent    = "IsPropertyNotPresent"
	Expr                    = "Expr"
	CEL                     = "CEL"
	// Expression is routed to Expr or CEL depending on configuration.
	Expression = "Expression"
)

// Platform is the set of capabilities predicates are evaluated against.
type Platform struct {
	OSVersion  uint32
	Contracts  map[string]int
	Types      map[string]struct{}
	Properties map[string]struct{} // "Type.Property"
}

// NewPlatform builds a platform description. Properties are given as
// "Type.Property".
func NewPlatform(os uint32, contracts map[string]int, types, properties []string) *Platform {
	p := &Platform{
		OSVersion:  os,
		Contracts:  make(map[string]int, len(contracts)),
		Types:      make(map[string]struct{}, len(types)),
		Properties: make(map[string]struct{}, len(properties)),
	}
	for k, v := range contracts {
		p.Contracts[k] = v
	}
	for _, t := range types {
		p.Types[t] = struct{}{}
	}
	for _, pr := range properties {
		p.Properties[pr] = struct{}{}
	}
	return p
}

func (p *Platform) HasContract(name string, major int) bool {
	v, ok := p.Contracts[name]
	return ok && v >= major
}

func (p *Platform) HasType(name string) bool {
	_, ok := p.Types[name]
	return ok
}

func (p *Platform) HasProperty(typeName, prop string) bool {
	_, ok := p.Properties[typeName+"."+prop]
	return ok
}

// Evaluator decides one predicate kind given its argument string.
type Evaluator interface {
	Evaluate(p *Platform, args string) (bool, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(p *Platform, args string) (bool, error)

func (f EvaluatorFunc) Evaluate(p *Platform, args string) (bool, error) { return f(p, args) }

// Registry maps predicate names to evaluators.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// Option configures a Registry.
type Option func(*Registry)

// WithExpressionEngine routes the Expression predicate to engine (Expr or
// CEL).
func WithExpressionEngine(engine string) Option {
	return func(r *Registry) {
		if e, ok := r.evaluators[engine]; ok {
			r.evaluators[Expression] = e
		}
	}
}

// WithEvaluator registers a custom predicate.
func WithEvaluator(name string, e Evaluator) Option {
	return func(r *Registry) {
		r.evaluators[name] = e
	}
}

// NewRegistry returns a registry with all built in predicates. Expression
// defaults to Expr.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{evaluators: make(map[string]Evaluator)}
	r.evaluators[IsApiContractPresent] = EvaluatorFunc(contractPresent)
	r.evaluators[IsApiContractNotPresent] = not(EvaluatorFunc(contractPresent))
	r.evaluators[IsTypePresent] = EvaluatorFunc(typePresent)
	r.evaluators[IsTypeNotPresent] = not(EvaluatorFunc(typePresent))
	r.evaluators[IsPropertyPresent] = EvaluatorFunc(propertyPresent)
	r.evaluators[IsPropertyNotPresent] = not(EvaluatorFunc(propertyPresent))
	r.evaluators[Expr] = NewExprEvaluator()
	r.evaluators[CEL] = NewCELEvaluator()
	r.evaluators[Expression] = r.evaluators[Expr]
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Evaluate decides a single predicate.
func (r *Registry) Evaluate(p *Platform, pa stream.PredicateAndArgs) (bool, error) {
	r.mu.RLock()
	e, ok := r.evaluators[pa.Predicate.Name]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%q: %w", pa.Predicate.Name, ErrUnknownPredicate)
	}
	return e.Evaluate(p, pa.Args)
}

// EvaluateAll reports whether every predicate holds. Evaluation stops at the
// first false or failing predicate.
func (r *Registry) EvaluateAll(p *Platform, preds []stream.PredicateAndArgs) (bool, error) {
	for _, pa := range preds {
		ok, err := r.Evaluate(p, pa)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func not(e Evaluator) Evaluator {
	return EvaluatorFunc(func(p *Platform, args string) (bool, error) {
		ok, err := e.Evaluate(p, args)
		return !ok && err == nil, err
	})
}

func splitArgs(args string) []string {
	parts := strings.Split(args, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// contractPresent takes "ContractName,Major[,Minor]".
func contractPresent(p *Platform, args string) (bool, error) {
	parts := splitArgs(args)
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return false, fmt.Errorf("%s(%s): expected contract name and major version", IsApiContractPresent, args)
	}
	major, err := strconv.Atoi(parts[1])
	if err != nil {
		return false, fmt.Errorf("%s(%s): bad major version: %w", IsApiContractPresent, args, err)
	}
	return p.HasContract(parts[0], major), nil
}

// typePresent takes "Namespace.Type".
func typePresent(p *Platform, args string) (bool, error) {
	parts := splitArgs(args)
	if len(parts) != 1 || parts[0] == "" {
		return false, fmt.Errorf("%s(%s): expected a type name", IsTypePresent, args)
	}
	return p.HasType(parts[0]), nil
}

// propertyPresent takes "Namespace.Type,Property".
func propertyPresent(p *Platform, args string) (bool, error) {
	parts := splitArgs(args)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false, fmt.Errorf("%s(%s): expected a type and a property name", IsPropertyPresent, args)
	}
	return p.HasProperty(parts[0], parts[1]), nil
}
