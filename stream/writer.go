package stream

import (
	"encoding/binary"
	"fmt"
	"math"

	"vsmrt/typeindex"
)

// Writer appends little endian primitives to a growable byte arena.
type Writer struct {
	buf     []byte
	strings *StringTable
	tokens  *TokenTable
	os      typeindex.OSVersion
}

// NewWriter creates writer sharing the blob wide string and token tables.
func NewWriter(strings *StringTable, tokens *TokenTable, os typeindex.OSVersion) *Writer {
	if strings == nil {
		strings = NewStringTable()
	}
	if tokens == nil {
		tokens = NewTokenTable()
	}
	return &Writer{strings: strings, tokens: tokens, os: os}
}

func (w *Writer) TargetOSVersion() typeindex.OSVersion { return w.os }
func (w *Writer) Strings() *StringTable                { return w.strings }
func (w *Writer) Tokens() *TokenTable                  { return w.tokens }
func (w *Writer) Bytes() []byte                        { return w.buf }
func (w *Writer) Len() int                             { return len(w.buf) }

// PersistConstant writes a raw 32 bit value (counts, flags, selectors).
func (w *Writer) PersistConstant(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PersistUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PersistUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) PersistUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PersistUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) PersistInt32(v int32) {
	w.PersistUint32(uint32(v))
}

func (w *Writer) PersistInt64(v int64) {
	w.PersistUint64(uint64(v))
}

func (w *Writer) PersistFloat64(v float64) {
	w.PersistUint64(math.Float64bits(v))
}

func (w *Writer) PersistBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// PersistCount writes a container length.
func (w *Writer) PersistCount(n int) error {
	if n < 0 || n > math.MaxUint32 {
		return fmt.Errorf("count %d does not fit: %w", n, ErrOutOfBounds)
	}
	w.PersistUint32(uint32(n))
	return nil
}

// PersistSharedString writes s as an index into the shared string table.
func (w *Writer) PersistSharedString(s string) {
	w.PersistUint32(w.strings.Intern(s))
}

// PersistBytes writes a length prefixed byte run.
func (w *Writer) PersistBytes(b []byte) error {
	if err := w.PersistCount(len(b)); err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// PersistToken resolves tok through the token table and writes its physical
// node stream offset.
func (w *Writer) PersistToken(tok StreamOffsetToken) error {
	if !tok.IsValid() {
		w.PersistUint32(uint32(NoToken))
		return nil
	}
	off, err := w.tokens.Offset(tok)
	if err != nil {
		return err
	}
	w.PersistUint32(off)
	return nil
}

func (w *Writer) PersistType(t TypeRef) {
	w.PersistUint16(t.Index)
	w.PersistSharedString(t.Name)
}

func (w *Writer) PersistProperty(p PropertyRef) {
	w.PersistType(p.Owner)
	w.PersistSharedString(p.Name)
}

func (w *Writer) PersistValue(v Value) error {
	data, err := marshalValue(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return w.PersistBytes(data)
}

func (w *Writer) PersistPredicate(p PredicateAndArgs) {
	w.PersistType(p.Predicate)
	w.PersistSharedString(p.Args)
}

// Reserve appends n zero bytes and returns their position for a later Patch.
func (w *Writer) Reserve(n int) int {
	at := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return at
}

// PatchUint32 overwrites a previously reserved slot.
func (w *Writer) PatchUint32(at int, v uint32) error {
	if at < 0 || at+4 > len(w.buf) {
		return fmt.Errorf("patch at %d of %d: %w", at, len(w.buf), ErrOutOfBounds)
	}
	binary.LittleEndian.PutUint32(w.buf[at:at+4], v)
	return nil
}
