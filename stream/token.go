package stream

import (
	"fmt"
	"math"
	"slices"
)

// StreamOffsetToken is a handle to an object in the node stream.
//
// While a blob is being written the value is a logical index into the
// TokenTable of that blob. Once read back it is the physical byte offset of
// the object in the node stream. Either way it only makes sense to the blob it
// came from.
type StreamOffsetToken uint32

// NoToken marks an absent optional token.
const NoToken StreamOffsetToken = math.MaxUint32

func (t StreamOffsetToken) IsValid() bool {
	return t != NoToken
}

func (t StreamOffsetToken) String() string {
	if !t.IsValid() {
		return "<none>"
	}
	return fmt.Sprintf("@%d", uint32(t))
}

const unresolved = math.MaxUint32

// TokenTable maps logical tokens handed out at write time to physical node
// stream offsets.
type TokenTable struct {
	offsets []uint32
}

func NewTokenTable() *TokenTable {
	return &TokenTable{}
}

// New allocates a token whose offset is not known yet.
func (t *TokenTable) New() StreamOffsetToken {
	t.offsets = append(t.offsets, unresolved)
	return StreamOffsetToken(len(t.offsets) - 1)
}

// Bind sets the node stream offset of tok.
func (t *TokenTable) Bind(tok StreamOffsetToken, offset uint32) {
	if int(tok) >= len(t.offsets) {
		panic(fmt.Sprintf("bind of unknown token %d", tok))
	}
	t.offsets[tok] = offset
}

// Offset resolves tok to its physical offset.
func (t *TokenTable) Offset(tok StreamOffsetToken) (uint32, error) {
	if int(tok) >= len(t.offsets) || t.offsets[tok] == unresolved {
		return 0, fmt.Errorf("token %d: %w", tok, ErrUnresolvedToken)
	}
	return t.offsets[tok], nil
}

// Remap rewrites every bound offset through fn. Offsets fn drops become
// unresolved, so persisting their tokens later fails loudly.
func (t *TokenTable) Remap(fn func(offset uint32) (uint32, bool)) {
	for i, off := range t.offsets {
		if off == unresolved {
			continue
		}
		if n, ok := fn(off); ok {
			t.offsets[i] = n
		} else {
			t.offsets[i] = unresolved
		}
	}
}

func (t *TokenTable) Len() int {
	return len(t.offsets)
}

// Physical returns the sorted distinct set of bound offsets. This is what a
// blob stores so that readers can reject tokens that point nowhere.
func (t *TokenTable) Physical() []uint32 {
	out := make([]uint32, 0, len(t.offsets))
	for _, off := range t.offsets {
		if off != unresolved {
			out = append(out, off)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
