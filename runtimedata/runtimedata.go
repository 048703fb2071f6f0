// Package runtimedata holds the per kind aggregates persisted in the data
// section of a blob.
package runtimedata

import (
	"fmt"

	"vsmrt/blob"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// RuntimeData is implemented by every per kind aggregate.
type RuntimeData interface {
	Kind() typeindex.Kind
	Revision() typeindex.TypeIndex
	Serialize(w *stream.Writer) error
}

func writeHeader(w *stream.Writer, ti typeindex.TypeIndex) {
	w.PersistUint16(uint16(ti))
}

// Decode reads the type index header and dispatches to the decoder of its
// kind. A type index this build does not know is fatal.
func Decode(r *stream.Reader) (RuntimeData, error) {
	raw, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("runtime data header: %w", err)
	}
	ti := typeindex.TypeIndex(raw)
	kind, err := typeindex.KindOf(ti)
	if err != nil {
		return nil, err
	}
	r.SetTypeIndex(ti)
	var rd RuntimeData
	switch kind {
	case typeindex.KindVisualStateGroupCollection:
		rd, err = decodeVisualStateGroupCollection(r, ti)
	case typeindex.KindStyle:
		rd, err = decodeStyle(r, ti)
	case typeindex.KindResourceDictionary:
		rd, err = decodeResourceDictionary(r, ti)
	case typeindex.KindDeferredElement:
		rd, err = decodeDeferredElement(r, ti)
	default:
		panic(fmt.Sprintf("runtime data kind %s has no decoder", kind))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ti, err)
	}
	return rd, nil
}

// FromBlob decodes the data section of b and checks it agrees with the blob
// header.
func FromBlob(b *blob.Blob) (RuntimeData, error) {
	r := b.DataReader()
	rd, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if rd.Revision() != b.TypeIndex {
		return nil, &stream.FormatError{Offset: 0, Msg: fmt.Sprintf("data is %s but blob header says %s", rd.Revision(), b.TypeIndex)}
	}
	if r.Remaining() != 0 {
		return nil, &stream.FormatError{Offset: r.Offset(), Msg: fmt.Sprintf("%d trailing bytes", r.Remaining())}
	}
	return rd, nil
}

// Encode writes rd into a fresh writer sharing strings and tokens.
func Encode(rd RuntimeData, strings *stream.StringTable, tokens *stream.TokenTable, os typeindex.OSVersion) ([]byte, error) {
	w := stream.NewWriter(strings, tokens, os)
	if err := rd.Serialize(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
