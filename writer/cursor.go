package writer

import (
	"fmt"

	"vsmrt/markup"
	"vsmrt/stream"
)

type frame struct {
	node   int
	member bool
	typ    stream.TypeRef
	prop   stream.PropertyRef
	// done runs in reverse order when the frame closes, with the index of
	// the closing node
	done []func(end int) error
}

type scope struct {
	depth int
	preds []stream.PredicateAndArgs
}

// handler receives the opening nodes of a node list. Closing nodes are
// delivered through cursor.onEnd.
type handler interface {
	startObject(i int, t stream.TypeRef, guards []stream.PredicateAndArgs) error
	startMember(i int, p stream.PropertyRef) error
	value(i int, v stream.Value) error
	conditional(i int, preds []stream.PredicateAndArgs) error
}

// cursor keeps track of where in the node list a writer is and hands out
// tokens bound to node indexes.
type cursor struct {
	tokens *stream.TokenTable
	roots  []int
	stack  []frame
	scopes []scope
}

func newCursor(tokens *stream.TokenTable) cursor {
	return cursor{tokens: tokens}
}

func (c *cursor) step(i int, n markup.Node, h handler) error {
	switch n.Kind {
	case markup.NodeStartObject:
		guards := c.guards()
		c.stack = append(c.stack, frame{node: i, typ: n.Type})
		return h.startObject(i, n.Type, guards)
	case markup.NodeStartMember:
		if len(c.stack) == 0 || c.top().member {
			return fmt.Errorf("node %d: member %s outside of an object: %w", i, n.Property, markup.ErrMalformedNodes)
		}
		c.stack = append(c.stack, frame{node: i, member: true, prop: n.Property})
		return h.startMember(i, n.Property)
	case markup.NodeEndObject, markup.NodeEndMember:
		if len(c.stack) == 0 || c.top().member != (n.Kind == markup.NodeEndMember) {
			return fmt.Errorf("node %d: unbalanced %s: %w", i, n.Kind, markup.ErrMalformedNodes)
		}
		f := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		for j := len(f.done) - 1; j >= 0; j-- {
			if err := f.done[j](i); err != nil {
				return err
			}
		}
	case markup.NodeValue:
		if len(c.stack) == 0 || !c.top().member {
			return fmt.Errorf("node %d: value outside of a member: %w", i, markup.ErrMalformedNodes)
		}
		return h.value(i, n.Value)
	case markup.NodeConditionalScope:
		c.scopes = append(c.scopes, scope{depth: len(c.stack), preds: n.Predicates})
		return h.conditional(i, n.Predicates)
	case markup.NodeEndConditionalScope:
		if len(c.scopes) == 0 {
			return fmt.Errorf("node %d: unbalanced end of conditional scope: %w", i, markup.ErrMalformedNodes)
		}
		c.scopes = c.scopes[:len(c.scopes)-1]
	default:
		return fmt.Errorf("node %d: kind %s: %w", i, n.Kind, markup.ErrMalformedNodes)
	}
	return nil
}

// finished reports whether every opened frame and scope was closed.
func (c *cursor) finished() error {
	if len(c.stack) != 0 || len(c.scopes) != 0 {
		return fmt.Errorf("node list ends inside %d frames: %w", len(c.stack), markup.ErrMalformedNodes)
	}
	return nil
}

func (c *cursor) guards() []stream.PredicateAndArgs {
	var out []stream.PredicateAndArgs
	for _, s := range c.scopes {
		if s.depth == len(c.stack) {
			out = append(out, s.preds...)
		}
	}
	return out
}

func (c *cursor) top() *frame {
	return &c.stack[len(c.stack)-1]
}

// depth is 1 for the root object, 2 for its members and so on.
func (c *cursor) depth() int {
	return len(c.stack)
}

// parent returns the frame enclosing the top one.
func (c *cursor) parent() (frame, bool) {
	if len(c.stack) < 2 {
		return frame{}, false
	}
	return c.stack[len(c.stack)-2], true
}

// within returns the member the top object was declared in.
func (c *cursor) within() stream.PropertyRef {
	if p, ok := c.parent(); ok && p.member {
		return p.prop
	}
	return stream.PropertyRef{}
}

// owner returns the type of the object the top member belongs to.
func (c *cursor) owner() stream.TypeRef {
	if p, ok := c.parent(); ok && !p.member {
		return p.typ
	}
	return stream.TypeRef{}
}

// member returns the property of the top frame, for value nodes.
func (c *cursor) member() stream.PropertyRef {
	return c.top().prop
}

// onEnd schedules fn to run when the top frame closes.
func (c *cursor) onEnd(fn func(end int) error) {
	f := c.top()
	f.done = append(f.done, fn)
}

// token hands out a token bound to node i.
func (c *cursor) token(i int) stream.StreamOffsetToken {
	tok := c.tokens.New()
	c.tokens.Bind(tok, uint32(i))
	c.roots = append(c.roots, i)
	return tok
}

// Conditional is an object declared under predicates, keyed by the logical
// token it was written with.
type Conditional struct {
	Token      stream.StreamOffsetToken
	Predicates []stream.PredicateAndArgs
}

func valueString(v stream.Value) string {
	if v.Kind == stream.ValueString {
		return v.String
	}
	if v.IsNull() {
		return ""
	}
	return v.Format()
}
