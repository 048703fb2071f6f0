// Package blob packs runtime data, its node stream and the tables they share
// into a single self checking binary payload.
package blob

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"vsmrt/markup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// Blob is the runtime data attached to one markup collection object. It is
// immutable once built except for the conditionally declared objects map,
// which only ever grows.
type Blob struct {
	ID        uuid.UUID
	TypeIndex typeindex.TypeIndex
	OSVersion typeindex.OSVersion

	Strings []string
	// Tokens is the sorted set of node stream offsets tokens may point at.
	Tokens []uint32
	Nodes  []byte
	Data   []byte

	conditionals map[stream.StreamOffsetToken][]stream.PredicateAndArgs
	condOrder    []stream.StreamOffsetToken
}

// New creates a blob with a fresh time ordered ID.
func New(ti typeindex.TypeIndex, os typeindex.OSVersion) (*Blob, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate blob id: %w", err)
	}
	return &Blob{ID: id, TypeIndex: ti, OSVersion: os}, nil
}

// AddConditional records the predicates guarding the object at tok. A token
// can only be recorded once.
func (b *Blob) AddConditional(tok stream.StreamOffsetToken, preds []stream.PredicateAndArgs) {
	if b.conditionals == nil {
		b.conditionals = make(map[stream.StreamOffsetToken][]stream.PredicateAndArgs)
	}
	if _, dup := b.conditionals[tok]; dup {
		panic(fmt.Sprintf("blob: conditional object %v recorded twice", tok))
	}
	b.conditionals[tok] = slices.Clone(preds)
	b.condOrder = append(b.condOrder, tok)
}

// Conditional returns the predicates of tok, if it is conditionally declared.
func (b *Blob) Conditional(tok stream.StreamOffsetToken) ([]stream.PredicateAndArgs, bool) {
	p, ok := b.conditionals[tok]
	return p, ok
}

// ConditionalTokens lists conditionally declared objects in insertion order.
func (b *Blob) ConditionalTokens() []stream.StreamOffsetToken {
	return b.condOrder
}

// SubReader returns a reader over the node stream.
func (b *Blob) SubReader() *markup.SubReader {
	return markup.NewSubReader(b.Nodes, b.Strings)
}

// DataReader returns a reader over the runtime data section.
func (b *Blob) DataReader() *stream.Reader {
	r := stream.NewReader(b.Data, b.Strings, b.Tokens)
	r.SetTypeIndex(b.TypeIndex)
	return r
}

// Kind returns the runtime data kind the blob holds.
func (b *Blob) Kind() (typeindex.Kind, error) {
	return typeindex.KindOf(b.TypeIndex)
}
