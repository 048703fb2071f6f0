package stream

import (
	"errors"
	"testing"

	"vsmrt/typeindex"
)

func newTestWriter() *Writer {
	return NewWriter(nil, nil, typeindex.OSVersionRS5)
}

func readerFor(w *Writer) *Reader {
	return NewReader(w.Bytes(), w.Strings().Strings(), nil)
}

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	w := newTestWriter()
	if err := Serialize(w, v); err != nil {
		t.Fatalf("Serialize(%v) error = %v", v, err)
	}
	r := readerFor(w)
	got, err := Deserialize[T](r)
	if err != nil {
		t.Fatalf("Deserialize error = %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("%d bytes left unread", r.Remaining())
	}
	return got
}

func TestScalarRoundTrip(t *testing.T) {
	if got := roundTrip(t, uint8(0xAB)); got != 0xAB {
		t.Errorf("uint8 = %#x", got)
	}
	if got := roundTrip(t, uint16(0xBEEF)); got != 0xBEEF {
		t.Errorf("uint16 = %#x", got)
	}
	if got := roundTrip(t, uint64(1<<40+7)); got != 1<<40+7 {
		t.Errorf("uint64 = %d", got)
	}
	if got := roundTrip(t, int32(-12)); got != -12 {
		t.Errorf("int32 = %d", got)
	}
	if got := roundTrip(t, int64(-1<<50)); got != -1<<50 {
		t.Errorf("int64 = %d", got)
	}
	if got := roundTrip(t, 2.5); got != 2.5 {
		t.Errorf("float64 = %v", got)
	}
	if got := roundTrip(t, true); !got {
		t.Error("bool = false")
	}
	if got := roundTrip(t, "Pressed"); got != "Pressed" {
		t.Errorf("string = %q", got)
	}
	tr := TypeRef{Index: 42, Name: "AdaptiveTrigger"}
	if got := roundTrip(t, tr); got != tr {
		t.Errorf("TypeRef = %+v", got)
	}
	pr := PropertyRef{Owner: tr, Name: "MinWindowWidth"}
	if got := roundTrip(t, pr); got != pr {
		t.Errorf("PropertyRef = %+v", got)
	}
	pa := PredicateAndArgs{Predicate: TypeRef{Name: "IsApiContractPresent"}, Args: "Contract,5"}
	if got := roundTrip(t, pa); got != pa {
		t.Errorf("PredicateAndArgs = %+v", got)
	}
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		NullValue(),
		BoolValue(true),
		IntValue(-720),
		FloatValue(0.25),
		StringValue("Collapsed"),
		BytesValue([]byte{1, 2, 3}),
	}
	for _, v := range values {
		t.Run(v.Kind.String(), func(t *testing.T) {
			got := roundTrip(t, v)
			if !got.Equal(v) {
				t.Errorf("got %s, want %s", got.Format(), v.Format())
			}
		})
	}
}

func TestSharedStringsAreInterned(t *testing.T) {
	w := newTestWriter()
	for range 3 {
		w.PersistSharedString("Normal")
	}
	w.PersistSharedString("Hover")
	if n := w.Strings().Len(); n != 2 {
		t.Fatalf("string table has %d entries, want 2", n)
	}
}

func TestTokenResolution(t *testing.T) {
	tokens := NewTokenTable()
	a, b := tokens.New(), tokens.New()
	tokens.Bind(a, 100)

	w := NewWriter(nil, tokens, typeindex.OSVersionRS5)
	if err := w.PersistToken(a); err != nil {
		t.Fatalf("PersistToken(a) error = %v", err)
	}
	if err := w.PersistToken(b); !errors.Is(err, ErrUnresolvedToken) {
		t.Fatalf("PersistToken(b) error = %v, want ErrUnresolvedToken", err)
	}
	if err := w.PersistToken(NoToken); err != nil {
		t.Fatalf("PersistToken(NoToken) error = %v", err)
	}

	r := NewReader(w.Bytes(), nil, tokens.Physical())
	got, err := r.ReadToken()
	if err != nil || got != 100 {
		t.Fatalf("ReadToken = %v, %v; want @100", got, err)
	}
	got, err = r.ReadToken()
	if err != nil || got.IsValid() {
		t.Fatalf("ReadToken = %v, %v; want NoToken", got, err)
	}
}

func TestTokenRemap(t *testing.T) {
	tokens := NewTokenTable()
	a, b := tokens.New(), tokens.New()
	tokens.Bind(a, 10)
	tokens.Bind(b, 20)
	tokens.Remap(func(off uint32) (uint32, bool) {
		if off == 20 {
			return 0, false
		}
		return off - 5, true
	})
	if off, err := tokens.Offset(a); err != nil || off != 5 {
		t.Errorf("Offset(a) = %d, %v", off, err)
	}
	if _, err := tokens.Offset(b); !errors.Is(err, ErrUnresolvedToken) {
		t.Errorf("Offset(b) error = %v", err)
	}
}

func TestReaderRejectsDanglingToken(t *testing.T) {
	w := newTestWriter()
	w.PersistUint32(77)
	r := NewReader(w.Bytes(), nil, []uint32{10, 20})
	_, err := r.ReadToken()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("ReadToken error = %v, want FormatError", err)
	}
}

func TestOutOfBounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, nil, nil)
	if _, err := r.ReadUint32(); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("ReadUint32 error = %v, want ErrOutOfBounds", err)
	}
	if err := r.Seek(4); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Seek error = %v", err)
	}
	w := newTestWriter()
	if err := w.PatchUint32(0, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("PatchUint32 error = %v", err)
	}
}

func TestCountSanity(t *testing.T) {
	w := newTestWriter()
	w.PersistUint32(1000)
	r := readerFor(w)
	_, err := Deserialize[[]uint32](r)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FormatError", err)
	}
}

func TestStringIndexOutOfTable(t *testing.T) {
	w := newTestWriter()
	w.PersistUint32(3)
	r := NewReader(w.Bytes(), []string{"only"}, nil)
	var fe *FormatError
	if _, err := r.ReadSharedString(); !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FormatError", err)
	}
}

func TestNoCodec(t *testing.T) {
	type unknown struct{ A int }
	w := newTestWriter()
	if err := Serialize(w, unknown{}); !errors.Is(err, ErrNoCodec) {
		t.Fatalf("Serialize error = %v, want ErrNoCodec", err)
	}
	if _, err := Deserialize[unknown](readerFor(w)); !errors.Is(err, ErrNoCodec) {
		t.Fatalf("Deserialize error = %v, want ErrNoCodec", err)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := NewRegistry()
	u8 := MustCodecFor[uint8]()
	RegisterIn(reg, u8)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	RegisterIn(reg, u8)
}

func TestContainers(t *testing.T) {
	strs := []string{"b", "a", "c"}
	if got := roundTrip(t, strs); len(got) != 3 || got[0] != "b" || got[2] != "c" {
		t.Errorf("slice = %v", got)
	}

	m := map[string]uint32{"Normal": 0, "Hover": 1, "Pressed": 2}
	gotMap := roundTrip(t, m)
	if len(gotMap) != len(m) {
		t.Fatalf("map = %v", gotMap)
	}
	for k, v := range m {
		if gotMap[k] != v {
			t.Errorf("map[%q] = %d, want %d", k, gotMap[k], v)
		}
	}

	// unordered containers must still encode deterministically
	w1, w2 := newTestWriter(), newTestWriter()
	_ = Serialize(w1, m)
	_ = Serialize(w2, map[string]uint32{"Pressed": 2, "Normal": 0, "Hover": 1})
	if string(w1.Bytes()) != string(w2.Bytes()) {
		t.Error("equal maps produced different bytes")
	}

	u32 := MustCodecFor[uint32]()
	set := SetOf(u32)
	w := newTestWriter()
	if err := set.Encode(w, map[uint32]struct{}{5: {}, 1: {}}); err != nil {
		t.Fatal(err)
	}
	gotSet, err := set.Decode(readerFor(w))
	if err != nil || len(gotSet) != 2 {
		t.Fatalf("set = %v, %v", gotSet, err)
	}
}

func TestSortedCodec(t *testing.T) {
	u32 := MustCodecFor[uint32]()
	str := MustCodecFor[string]()
	codec := SortedOf(u32, str)

	var m SortedMap[uint32, string]
	m.Set(30, "c")
	m.Set(10, "a")
	m.Set(20, "b")
	m.Set(10, "A")

	w := newTestWriter()
	if err := codec.Encode(w, &m); err != nil {
		t.Fatal(err)
	}
	got, err := codec.Decode(readerFor(w))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 3 {
		t.Fatalf("Len = %d", got.Len())
	}
	if v, ok := got.Get(10); !ok || v != "A" {
		t.Errorf("Get(10) = %q, %v", v, ok)
	}
	if _, ok := got.Get(15); ok {
		t.Error("Get(15) found")
	}

	// hand written unsorted input
	w = newTestWriter()
	w.PersistUint32(2)
	w.PersistUint32(9)
	w.PersistSharedString("x")
	w.PersistUint32(3)
	w.PersistSharedString("y")
	_, err = codec.Decode(readerFor(w))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("unsorted decode error = %v, want FormatError", err)
	}
}

func TestConstantsAndTargetOS(t *testing.T) {
	w := newTestWriter()
	if w.TargetOSVersion() != typeindex.OSVersionRS5 {
		t.Errorf("TargetOSVersion() = %d", w.TargetOSVersion())
	}
	w.PersistConstant(0xDEADBEEF)
	w.PersistConstant(7)
	r := readerFor(w)
	for _, want := range []uint32{0xDEADBEEF, 7} {
		got, err := r.ReadConstant()
		if err != nil || got != want {
			t.Errorf("ReadConstant() = %#x, %v, want %#x", got, err, want)
		}
	}
	if _, err := r.ReadConstant(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadConstant() past end error = %v", err)
	}
}
