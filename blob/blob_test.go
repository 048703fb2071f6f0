package blob

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"vsmrt/markup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

func sampleBlob(t *testing.T) *Blob {
	t.Helper()
	b, err := New(typeindex.VisualStateGroupCollectionV4, typeindex.OSVersionRS5)
	if err != nil {
		t.Fatal(err)
	}
	nw := stream.NewWriter(nil, nil, b.OSVersion)
	state := markup.NewObject(markup.TypeVisualState).SetString(markup.DirectiveName, "Normal")
	offsets, err := markup.NewNodeEncoder(nw).Encode(state.Nodes())
	if err != nil {
		t.Fatal(err)
	}
	b.Nodes = nw.Bytes()
	b.Strings = slices.Clone(nw.Strings().Strings())
	b.Tokens = []uint32{offsets[0]}
	b.Data = []byte{1, 2, 3, 4}
	b.AddConditional(stream.StreamOffsetToken(offsets[0]), []stream.PredicateAndArgs{
		{Predicate: stream.TypeRef{Name: "IsApiContractPresent"}, Args: "Contract,7"},
	})
	return b
}

func TestPackUnpack(t *testing.T) {
	b := sampleBlob(t)
	data, err := Pack(b)
	if err != nil {
		t.Fatalf("Pack error = %v", err)
	}
	got, err := Unpack(data)
	if err != nil {
		t.Fatalf("Unpack error = %v", err)
	}
	if got.ID != b.ID || got.TypeIndex != b.TypeIndex || got.OSVersion != b.OSVersion {
		t.Errorf("header = %v %v %v", got.ID, got.TypeIndex, got.OSVersion)
	}
	if !bytes.Equal(got.Nodes, b.Nodes) || !bytes.Equal(got.Data, b.Data) {
		t.Error("sections differ")
	}
	// the conditional predicate name was interned while packing
	if len(got.Strings) != len(b.Strings)+2 {
		t.Errorf("strings = %v", got.Strings)
	}
	preds, ok := got.Conditional(stream.StreamOffsetToken(b.Tokens[0]))
	if !ok || len(preds) != 1 || preds[0].Args != "Contract,7" {
		t.Errorf("conditional = %v, %v", preds, ok)
	}
	obj, err := got.SubReader().ReadObjectAt(b.Tokens[0])
	if err != nil || obj.Name() != "Normal" {
		t.Errorf("ReadObjectAt = %+v, %v", obj, err)
	}
	if got.DataReader().TypeIndex() != typeindex.VisualStateGroupCollectionV4 {
		t.Error("data reader has no type index")
	}
}

func TestDuplicateConditionalPanics(t *testing.T) {
	b := sampleBlob(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	b.AddConditional(stream.StreamOffsetToken(b.Tokens[0]), nil)
}

func TestUnpackRejects(t *testing.T) {
	good, err := Pack(sampleBlob(t))
	if err != nil {
		t.Fatal(err)
	}
	mutate := func(fn func([]byte)) []byte {
		d := bytes.Clone(good)
		fn(d)
		return d
	}
	tests := map[string][]byte{
		"short":          good[:10],
		"signature":      mutate(func(d []byte) { d[0] = 'X' }),
		"version":        mutate(func(d []byte) { binary.LittleEndian.PutUint16(d[4:], 9) }),
		"type index":     mutate(func(d []byte) { binary.LittleEndian.PutUint16(d[6:], 1) }),
		"header length":  mutate(func(d []byte) { binary.LittleEndian.PutUint32(d[28:], 3) }),
		"section bounds": mutate(func(d []byte) { binary.LittleEndian.PutUint32(d[36:], 1<<30) }),
		"section id":     mutate(func(d []byte) { binary.LittleEndian.PutUint32(d[32:], 42) }),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Unpack(data); err == nil {
				t.Error("Unpack accepted corrupted data")
			}
		})
	}
	_, err = Unpack(mutate(func(d []byte) { binary.LittleEndian.PutUint16(d[6:], 1) }))
	if !errors.Is(err, typeindex.ErrUnknownTypeIndex) {
		t.Errorf("unknown type index error = %v", err)
	}
}

func TestPackRejectsUnknownTypeIndex(t *testing.T) {
	b := sampleBlob(t)
	b.TypeIndex = 7
	if _, err := Pack(b); !errors.Is(err, typeindex.ErrUnknownTypeIndex) {
		t.Errorf("Pack error = %v", err)
	}
}
