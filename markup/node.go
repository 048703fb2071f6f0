package markup

import (
	"errors"
	"fmt"

	"vsmrt/stream"
)

var ErrMalformedNodes = errors.New("markup: malformed node stream")

// NodeKind is the discriminator of a node.
type NodeKind uint8

const (
	NodeStartObject NodeKind = iota + 1
	NodeEndObject
	NodeStartMember
	NodeEndMember
	NodeValue
	NodeConditionalScope
	NodeEndConditionalScope
)

func (k NodeKind) String() string {
	switch k {
	case NodeStartObject:
		return "StartObject"
	case NodeEndObject:
		return "EndObject"
	case NodeStartMember:
		return "StartMember"
	case NodeEndMember:
		return "EndMember"
	case NodeValue:
		return "Value"
	case NodeConditionalScope:
		return "ConditionalScope"
	case NodeEndConditionalScope:
		return "EndConditionalScope"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Node is one event of a parsed markup document.
type Node struct {
	Kind       NodeKind
	Type       stream.TypeRef            // StartObject
	Property   stream.PropertyRef        // StartMember
	Value      stream.Value              // Value
	Predicates []stream.PredicateAndArgs // ConditionalScope
}

func StartObject(t stream.TypeRef) Node       { return Node{Kind: NodeStartObject, Type: t} }
func EndObject() Node                         { return Node{Kind: NodeEndObject} }
func StartMember(p stream.PropertyRef) Node   { return Node{Kind: NodeStartMember, Property: p} }
func EndMember() Node                         { return Node{Kind: NodeEndMember} }
func ValueNode(v stream.Value) Node           { return Node{Kind: NodeValue, Value: v} }
func EndConditionalScope() Node               { return Node{Kind: NodeEndConditionalScope} }
func ConditionalScope(p ...stream.PredicateAndArgs) Node {
	return Node{Kind: NodeConditionalScope, Predicates: p}
}

func (n Node) String() string {
	switch n.Kind {
	case NodeStartObject:
		return "SO " + n.Type.Name
	case NodeStartMember:
		return "SM " + n.Property.String()
	case NodeValue:
		return "V " + n.Value.Format()
	case NodeConditionalScope:
		return fmt.Sprintf("CS %v", n.Predicates)
	default:
		return n.Kind.String()
	}
}

// ObjectEnd returns the index of the EndObject matching the StartObject at
// start.
func ObjectEnd(nodes []Node, start int) (int, error) {
	return matchingEnd(nodes, start, NodeStartObject, NodeEndObject)
}

// MemberEnd returns the index of the EndMember matching the StartMember at
// start.
func MemberEnd(nodes []Node, start int) (int, error) {
	return matchingEnd(nodes, start, NodeStartMember, NodeEndMember)
}

func matchingEnd(nodes []Node, start int, open, close NodeKind) (int, error) {
	if start < 0 || start >= len(nodes) || nodes[start].Kind != open {
		return 0, fmt.Errorf("node %d is not %s: %w", start, open, ErrMalformedNodes)
	}
	depth := 0
	for i := start; i < len(nodes); i++ {
		switch nodes[i].Kind {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated %s at %d: %w", open, start, ErrMalformedNodes)
}
