package stream

import (
	"fmt"
	"reflect"
	"sync"
)

// Codec persists values of one Go type.
type Codec[T any] interface {
	Encode(w *Writer, v T) error
	Decode(r *Reader) (T, error)
}

// CodecFunc adapts a pair of functions to Codec.
type CodecFunc[T any] struct {
	EncodeFn func(w *Writer, v T) error
	DecodeFn func(r *Reader) (T, error)
}

func (c CodecFunc[T]) Encode(w *Writer, v T) error { return c.EncodeFn(w, v) }
func (c CodecFunc[T]) Decode(r *Reader) (T, error) { return c.DecodeFn(r) }

// Registry is a closed set of codecs keyed by Go type. Types that are not
// registered cannot be persisted at all.
type Registry struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]any
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[reflect.Type]any)}
}

var defaultRegistry = func() *Registry {
	reg := NewRegistry()
	registerScalars(reg)
	return reg
}()

// Default returns the process wide registry with all scalar codecs present.
func Default() *Registry {
	return defaultRegistry
}

// RegisterIn adds codec for T to reg. Registering the same type twice is a
// programming error.
func RegisterIn[T any](reg *Registry, codec Codec[T]) {
	rt := reflect.TypeFor[T]()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.codecs[rt]; ok {
		panic(fmt.Sprintf("stream: codec for %s registered twice", rt))
	}
	reg.codecs[rt] = codec
}

// Register adds codec for T to the default registry.
func Register[T any](codec Codec[T]) {
	RegisterIn(defaultRegistry, codec)
}

// CodecFrom looks up the codec for T in reg.
func CodecFrom[T any](reg *Registry) (Codec[T], error) {
	rt := reflect.TypeFor[T]()
	reg.mu.RLock()
	c, ok := reg.codecs[rt]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", rt, ErrNoCodec)
	}
	return c.(Codec[T]), nil
}

// CodecFor looks up the codec for T in the default registry.
func CodecFor[T any]() (Codec[T], error) {
	return CodecFrom[T](defaultRegistry)
}

// MustCodecFor is CodecFor for package initialization where a missing codec
// means the binary is broken.
func MustCodecFor[T any]() Codec[T] {
	c, err := CodecFor[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// Serialize writes v with the registered codec for T.
func Serialize[T any](w *Writer, v T) error {
	c, err := CodecFor[T]()
	if err != nil {
		return err
	}
	return c.Encode(w, v)
}

// Deserialize reads a T with the registered codec.
func Deserialize[T any](r *Reader) (T, error) {
	c, err := CodecFor[T]()
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Decode(r)
}

func scalar[T any](enc func(w *Writer, v T) error, dec func(r *Reader) (T, error)) Codec[T] {
	return CodecFunc[T]{EncodeFn: enc, DecodeFn: dec}
}

func registerScalars(reg *Registry) {
	RegisterIn(reg, scalar(func(w *Writer, v uint8) error { w.PersistUint8(v); return nil }, (*Reader).ReadUint8))
	RegisterIn(reg, scalar(func(w *Writer, v uint16) error { w.PersistUint16(v); return nil }, (*Reader).ReadUint16))
	RegisterIn(reg, scalar(func(w *Writer, v uint32) error { w.PersistUint32(v); return nil }, (*Reader).ReadUint32))
	RegisterIn(reg, scalar(func(w *Writer, v uint64) error { w.PersistUint64(v); return nil }, (*Reader).ReadUint64))
	RegisterIn(reg, scalar(func(w *Writer, v int32) error { w.PersistInt32(v); return nil }, (*Reader).ReadInt32))
	RegisterIn(reg, scalar(func(w *Writer, v int64) error { w.PersistInt64(v); return nil }, (*Reader).ReadInt64))
	RegisterIn(reg, scalar(func(w *Writer, v float64) error { w.PersistFloat64(v); return nil }, (*Reader).ReadFloat64))
	RegisterIn(reg, scalar(func(w *Writer, v bool) error { w.PersistBool(v); return nil }, (*Reader).ReadBool))
	RegisterIn(reg, scalar(func(w *Writer, v string) error { w.PersistSharedString(v); return nil }, (*Reader).ReadSharedString))
	RegisterIn(reg, scalar((*Writer).PersistToken, (*Reader).ReadToken))
	RegisterIn(reg, scalar(func(w *Writer, v TypeRef) error { w.PersistType(v); return nil }, (*Reader).ReadXamlType))
	RegisterIn(reg, scalar(func(w *Writer, v PropertyRef) error { w.PersistProperty(v); return nil }, (*Reader).ReadXamlProperty))
	RegisterIn(reg, scalar((*Writer).PersistValue, (*Reader).ReadCValue))
	RegisterIn(reg, scalar(func(w *Writer, v PredicateAndArgs) error { w.PersistPredicate(v); return nil }, (*Reader).ReadPredicate))

	// containers of scalars used by essences
	RegisterIn(reg, Codec[[]StreamOffsetToken](SliceOf(mustFrom[StreamOffsetToken](reg))))
	RegisterIn(reg, Codec[[]string](SliceOf(mustFrom[string](reg))))
	RegisterIn(reg, Codec[[]Value](SliceOf(mustFrom[Value](reg))))
	RegisterIn(reg, Codec[[]PredicateAndArgs](SliceOf(mustFrom[PredicateAndArgs](reg))))
	RegisterIn(reg, Codec[[]uint32](SliceOf(mustFrom[uint32](reg))))
	RegisterIn(reg, Codec[map[string]uint32](MapOf(mustFrom[string](reg), mustFrom[uint32](reg))))
}

func mustFrom[T any](reg *Registry) Codec[T] {
	c, err := CodecFrom[T](reg)
	if err != nil {
		panic(err)
	}
	return c
}
