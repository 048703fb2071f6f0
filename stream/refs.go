package stream

import "fmt"

// TypeRef names a markup type. Index is the type registry number, Name is
// kept for types the registry does not know (custom triggers for example).
type TypeRef struct {
	Index uint16
	Name  string
}

func (t TypeRef) String() string {
	return t.Name
}

// PropertyRef names a property of a markup type.
type PropertyRef struct {
	Owner TypeRef
	Name  string
}

func (p PropertyRef) String() string {
	if p.Owner.Name == "" {
		return p.Name
	}
	return p.Owner.Name + "." + p.Name
}

// PredicateAndArgs is one guard of a conditionally declared object.
type PredicateAndArgs struct {
	Predicate TypeRef
	Args      string
}

func (p PredicateAndArgs) String() string {
	return fmt.Sprintf("%s(%s)", p.Predicate.Name, p.Args)
}
