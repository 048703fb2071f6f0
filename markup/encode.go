package markup

import (
	"fmt"
	"slices"

	"vsmrt/stream"
)

// NodeEncoder writes nodes into a node stream.
type NodeEncoder struct {
	w *stream.Writer
}

// NewNodeEncoder wraps w, which should share the string table of the blob.
func NewNodeEncoder(w *stream.Writer) *NodeEncoder {
	return &NodeEncoder{w: w}
}

// Encode appends nodes and returns the stream offset of each of them.
func (e *NodeEncoder) Encode(nodes []Node) ([]uint32, error) {
	offsets := make([]uint32, len(nodes))
	for i, n := range nodes {
		offsets[i] = uint32(e.w.Len())
		e.w.PersistUint8(uint8(n.Kind))
		switch n.Kind {
		case NodeStartObject:
			e.w.PersistType(n.Type)
		case NodeStartMember:
			e.w.PersistProperty(n.Property)
		case NodeValue:
			if err := e.w.PersistValue(n.Value); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
		case NodeConditionalScope:
			if err := stream.Serialize(e.w, n.Predicates); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
		case NodeEndObject, NodeEndMember, NodeEndConditionalScope:
		default:
			return nil, fmt.Errorf("node %d kind %d: %w", i, n.Kind, ErrMalformedNodes)
		}
	}
	return offsets, nil
}

// SkipRange covers the nodes from Start to End inclusive.
type SkipRange struct {
	Start, End stream.StreamOffsetToken
}

func (s SkipRange) contains(off uint32) bool {
	return off >= uint32(s.Start) && off <= uint32(s.End)
}

// SubReader replays single objects out of an encoded node stream without
// decoding anything else.
type SubReader struct {
	data    []byte
	strings []string
}

func NewSubReader(nodeStream []byte, strings []string) *SubReader {
	return &SubReader{data: nodeStream, strings: strings}
}

func (s *SubReader) readNode(r *stream.Reader) (Node, error) {
	k, err := r.ReadUint8()
	if err != nil {
		return Node{}, err
	}
	n := Node{Kind: NodeKind(k)}
	switch n.Kind {
	case NodeStartObject:
		n.Type, err = r.ReadXamlType()
	case NodeStartMember:
		n.Property, err = r.ReadXamlProperty()
	case NodeValue:
		n.Value, err = r.ReadCValue()
	case NodeConditionalScope:
		n.Predicates, err = stream.Deserialize[[]stream.PredicateAndArgs](r)
	case NodeEndObject, NodeEndMember, NodeEndConditionalScope:
	default:
		err = fmt.Errorf("node kind %d at %d: %w", k, r.Offset()-1, ErrMalformedNodes)
	}
	return n, err
}

// NodesAt decodes the node at offset and, when it opens an object or a
// member, everything up to the matching end.
func (s *SubReader) NodesAt(offset uint32) ([]Node, []uint32, error) {
	r := stream.NewReader(s.data, s.strings, nil)
	if err := r.Seek(int(offset)); err != nil {
		return nil, nil, err
	}
	var (
		nodes   []Node
		offsets []uint32
		depth   int
	)
	for {
		at := uint32(r.Offset())
		n, err := s.readNode(r)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
		offsets = append(offsets, at)
		switch n.Kind {
		case NodeStartObject, NodeStartMember:
			depth++
		case NodeEndObject, NodeEndMember:
			depth--
		}
		if depth <= 0 {
			if depth < 0 {
				return nil, nil, fmt.Errorf("unbalanced node at %d: %w", at, ErrMalformedNodes)
			}
			return nodes, offsets, nil
		}
	}
}

// ReadObjectAt materializes the object starting at offset. Nodes inside any
// of the skip ranges are left out.
func (s *SubReader) ReadObjectAt(offset uint32, skip ...SkipRange) (*Object, error) {
	nodes, offsets, err := s.NodesAt(offset)
	if err != nil {
		return nil, err
	}
	if nodes[0].Kind != NodeStartObject {
		return nil, fmt.Errorf("offset %d holds %s, not an object: %w", offset, nodes[0].Kind, ErrMalformedNodes)
	}
	if len(skip) > 0 {
		keepNodes := nodes[:0:0]
		keepOffsets := offsets[:0:0]
		for i, off := range offsets {
			if slices.ContainsFunc(skip, func(r SkipRange) bool { return r.contains(off) }) {
				continue
			}
			keepNodes = append(keepNodes, nodes[i])
			keepOffsets = append(keepOffsets, off)
		}
		nodes, offsets = keepNodes, keepOffsets
	}
	return BuildObject(nodes, offsets)
}

// ApplyToExisting reads the object at offset and merges its members into
// target, replacing members target already has.
func (s *SubReader) ApplyToExisting(offset uint32, target *Object, skip ...SkipRange) error {
	src, err := s.ReadObjectAt(offset, skip...)
	if err != nil {
		return err
	}
	if target.Type.Name != "" && src.Type.Name != target.Type.Name {
		return fmt.Errorf("apply %s to existing %s: %w", src.Type, target.Type, ErrMalformedNodes)
	}
	for _, m := range src.Members {
		if i := slices.IndexFunc(target.Members, func(t *Member) bool { return t.Property == m.Property }); i >= 0 {
			target.Members[i] = m
		} else {
			target.Members = append(target.Members, m)
		}
	}
	if target.Offset == NoOffset {
		target.Offset = src.Offset
	}
	return nil
}
