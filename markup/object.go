package markup

import (
	"fmt"
	"slices"

	"vsmrt/stream"
)

// NoOffset marks objects that did not come from a node stream.
const NoOffset = ^uint32(0)

// Object is a generic materialized markup object.
type Object struct {
	Type    stream.TypeRef
	Members []*Member
	// Predicates guard the object, all must hold for it to exist.
	Predicates []stream.PredicateAndArgs
	// Offset is the node stream position the object was read from.
	Offset uint32
}

// Member is one property of an Object, holding either values or objects.
type Member struct {
	Property   stream.PropertyRef
	Values     []stream.Value
	Objects    []*Object
	Predicates []stream.PredicateAndArgs
}

func NewObject(t stream.TypeRef) *Object {
	return &Object{Type: t, Offset: NoOffset}
}

// Member returns the first member for p or nil.
func (o *Object) Member(p stream.PropertyRef) *Member {
	for _, m := range o.Members {
		if m.Property == p {
			return m
		}
	}
	return nil
}

func (o *Object) ensure(p stream.PropertyRef) *Member {
	if m := o.Member(p); m != nil {
		return m
	}
	m := &Member{Property: p}
	o.Members = append(o.Members, m)
	return m
}

// Set replaces the values of p with v.
func (o *Object) Set(p stream.PropertyRef, v stream.Value) *Object {
	m := o.ensure(p)
	m.Values = []stream.Value{v}
	m.Objects = nil
	return o
}

// SetString is Set with a string value.
func (o *Object) SetString(p stream.PropertyRef, s string) *Object {
	return o.Set(p, stream.StringValue(s))
}

// Add appends children to p.
func (o *Object) Add(p stream.PropertyRef, children ...*Object) *Object {
	m := o.ensure(p)
	m.Objects = append(m.Objects, children...)
	return o
}

// Value returns the first value of p.
func (o *Object) Value(p stream.PropertyRef) (stream.Value, bool) {
	m := o.Member(p)
	if m == nil || len(m.Values) == 0 {
		return stream.Value{}, false
	}
	return m.Values[0], true
}

// String returns the first value of p when it is a string.
func (o *Object) String(p stream.PropertyRef) string {
	v, ok := o.Value(p)
	if !ok || v.Kind != stream.ValueString {
		return ""
	}
	return v.String
}

// Children returns the objects of p.
func (o *Object) Children(p stream.PropertyRef) []*Object {
	if m := o.Member(p); m != nil {
		return m.Objects
	}
	return nil
}

// Child returns the only object of p.
func (o *Object) Child(p stream.PropertyRef) *Object {
	if c := o.Children(p); len(c) > 0 {
		return c[0]
	}
	return nil
}

func (o *Object) Name() string { return o.String(DirectiveName) }
func (o *Object) Key() string  { return o.String(DirectiveKey) }

// Walk visits o and every nested object depth first until fn returns false.
func (o *Object) Walk(fn func(*Object) bool) bool {
	if !fn(o) {
		return false
	}
	for _, m := range o.Members {
		for _, c := range m.Objects {
			if !c.Walk(fn) {
				return false
			}
		}
	}
	return true
}

// Nodes flattens o back into a node list.
func (o *Object) Nodes() []Node {
	var out []Node
	o.appendNodes(&out)
	return out
}

func (o *Object) appendNodes(out *[]Node) {
	if len(o.Predicates) > 0 {
		*out = append(*out, ConditionalScope(o.Predicates...))
	}
	*out = append(*out, StartObject(o.Type))
	for _, m := range o.Members {
		if len(m.Predicates) > 0 {
			*out = append(*out, ConditionalScope(m.Predicates...))
		}
		*out = append(*out, StartMember(m.Property))
		for _, v := range m.Values {
			*out = append(*out, ValueNode(v))
		}
		for _, c := range m.Objects {
			c.appendNodes(out)
		}
		*out = append(*out, EndMember())
		if len(m.Predicates) > 0 {
			*out = append(*out, EndConditionalScope())
		}
	}
	*out = append(*out, EndObject())
	if len(o.Predicates) > 0 {
		*out = append(*out, EndConditionalScope())
	}
}

// BuildObject turns the node list of exactly one object into an Object.
// offsets may be nil, otherwise it holds the stream offset of every node.
func BuildObject(nodes []Node, offsets []uint32) (*Object, error) {
	b := builder{}
	for i, n := range nodes {
		off := NoOffset
		if offsets != nil {
			off = offsets[i]
		}
		if err := b.add(n, off); err != nil {
			return nil, err
		}
	}
	if b.root == nil || len(b.stack) != 0 {
		return nil, fmt.Errorf("incomplete object: %w", ErrMalformedNodes)
	}
	return b.root, nil
}

type frame struct {
	obj *Object
	mem *Member
}

type scope struct {
	depth int
	preds []stream.PredicateAndArgs
}

type builder struct {
	root   *Object
	stack  []frame
	scopes []scope
}

// guards collects the open conditional scopes of the current object depth.
func (b *builder) guards() []stream.PredicateAndArgs {
	var out []stream.PredicateAndArgs
	for _, s := range b.scopes {
		if s.depth == len(b.stack) {
			out = append(out, s.preds...)
		}
	}
	return out
}

func (b *builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

func (b *builder) add(n Node, off uint32) error {
	top := b.top()
	switch n.Kind {
	case NodeStartObject:
		obj := &Object{Type: n.Type, Offset: off, Predicates: b.guards()}
		switch {
		case top == nil && b.root == nil:
			b.root = obj
		case top != nil && top.mem != nil:
			top.mem.Objects = append(top.mem.Objects, obj)
		default:
			return fmt.Errorf("object %s outside of a member: %w", n.Type, ErrMalformedNodes)
		}
		b.stack = append(b.stack, frame{obj: obj})
	case NodeEndObject:
		if top == nil || top.mem != nil {
			return fmt.Errorf("unbalanced end of object: %w", ErrMalformedNodes)
		}
		b.stack = b.stack[:len(b.stack)-1]
	case NodeStartMember:
		if top == nil || top.mem != nil {
			return fmt.Errorf("member %s outside of an object: %w", n.Property, ErrMalformedNodes)
		}
		top.mem = &Member{Property: n.Property, Predicates: b.guards()}
		top.obj.Members = append(top.obj.Members, top.mem)
	case NodeEndMember:
		if top == nil || top.mem == nil {
			return fmt.Errorf("unbalanced end of member: %w", ErrMalformedNodes)
		}
		top.mem = nil
	case NodeValue:
		if top == nil || top.mem == nil {
			return fmt.Errorf("value outside of a member: %w", ErrMalformedNodes)
		}
		top.mem.Values = append(top.mem.Values, n.Value)
	case NodeConditionalScope:
		b.scopes = append(b.scopes, scope{depth: len(b.stack), preds: slices.Clone(n.Predicates)})
	case NodeEndConditionalScope:
		if len(b.scopes) == 0 {
			return fmt.Errorf("unbalanced end of conditional scope: %w", ErrMalformedNodes)
		}
		b.scopes = b.scopes[:len(b.scopes)-1]
	default:
		return fmt.Errorf("node kind %s: %w", n.Kind, ErrMalformedNodes)
	}
	return nil
}
