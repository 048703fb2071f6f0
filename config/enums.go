package config

// When a collection whose runtime data is incomplete gets created.
// ENUM(onLoad, onDemand)
type FallbackPolicy int

// Engine behind the Expression predicate of conditional markup.
// ENUM(expr, cel)
type PredicateEngine int

// Predicate returns the name the engine is registered under.
func (e PredicateEngine) Predicate() string {
	switch e {
	case PredicateEngineExpr:
		return "Expr"
	case PredicateEngineCel:
		return "CEL"
	default:
		// this should never happen
		panic("unsupported predicate engine requested")
	}
}
