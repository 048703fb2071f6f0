package stream

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"vsmrt/typeindex"
)

// Reader is the bounds checked counterpart of Writer.
type Reader struct {
	data    []byte
	pos     int
	strings []string
	tokens  []uint32 // sorted valid node stream offsets, nil disables the check
	ti      typeindex.TypeIndex
}

// NewReader creates reader over data. strings is the blob string table,
// tokens the sorted list of offsets tokens may point at.
func NewReader(data []byte, strings []string, tokens []uint32) *Reader {
	return &Reader{data: data, strings: strings, tokens: tokens}
}

// SetTypeIndex records the layout revision the caller is decoding.
func (r *Reader) SetTypeIndex(ti typeindex.TypeIndex) { r.ti = ti }
func (r *Reader) TypeIndex() typeindex.TypeIndex      { return r.ti }
func (r *Reader) Offset() int                         { return r.pos }
func (r *Reader) Remaining() int                      { return len(r.data) - r.pos }
func (r *Reader) Len() int                            { return len(r.data) }

func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("seek to %d of %d: %w", pos, len(r.data), ErrOutOfBounds)
	}
	r.pos = pos
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, fmt.Errorf("read %d bytes at %d of %d: %w", n, r.pos, len(r.data), ErrOutOfBounds)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadConstant() (uint32, error) {
	return r.ReadUint32()
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	at := r.pos
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, formatErrorf(at, "bool byte %#x", b)
	}
}

// ReadCount reads a container length. Every persisted element takes at least
// one byte, so a count larger than what is left cannot be valid.
func (r *Reader) ReadCount() (int, error) {
	at := r.pos
	n, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(r.Remaining()) {
		return 0, formatErrorf(at, "count %d exceeds %d remaining bytes", n, r.Remaining())
	}
	return int(n), nil
}

func (r *Reader) ReadSharedString() (string, error) {
	at := r.pos
	id, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if int(id) >= len(r.strings) {
		return "", formatErrorf(at, "string index %d, table has %d", id, len(r.strings))
	}
	return r.strings[id], nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return slices.Clone(b), nil
}

// ReadToken returns a physical node stream offset.
func (r *Reader) ReadToken() (StreamOffsetToken, error) {
	at := r.pos
	v, err := r.ReadUint32()
	if err != nil {
		return NoToken, err
	}
	tok := StreamOffsetToken(v)
	if !tok.IsValid() || r.tokens == nil {
		return tok, nil
	}
	if _, ok := slices.BinarySearch(r.tokens, v); !ok {
		return NoToken, formatErrorf(at, "token %d points to no object", v)
	}
	return tok, nil
}

func (r *Reader) ReadXamlType() (TypeRef, error) {
	idx, err := r.ReadUint16()
	if err != nil {
		return TypeRef{}, err
	}
	name, err := r.ReadSharedString()
	if err != nil {
		return TypeRef{}, err
	}
	return TypeRef{Index: idx, Name: name}, nil
}

func (r *Reader) ReadXamlProperty() (PropertyRef, error) {
	owner, err := r.ReadXamlType()
	if err != nil {
		return PropertyRef{}, err
	}
	name, err := r.ReadSharedString()
	if err != nil {
		return PropertyRef{}, err
	}
	return PropertyRef{Owner: owner, Name: name}, nil
}

func (r *Reader) ReadCValue() (Value, error) {
	at := r.pos
	data, err := r.ReadBytes()
	if err != nil {
		return Value{}, err
	}
	v, err := unmarshalValue(data)
	if err != nil {
		return Value{}, &FormatError{Offset: at, Msg: err.Error()}
	}
	return v, nil
}

func (r *Reader) ReadPredicate() (PredicateAndArgs, error) {
	t, err := r.ReadXamlType()
	if err != nil {
		return PredicateAndArgs{}, err
	}
	args, err := r.ReadSharedString()
	if err != nil {
		return PredicateAndArgs{}, err
	}
	return PredicateAndArgs{Predicate: t, Args: args}, nil
}
