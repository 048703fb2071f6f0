package essence

import (
	"errors"
	"reflect"
	"testing"

	"vsmrt/markup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// boundTokens returns a token table where logical token i sits at offset
// 10*(i+1), and the tokens themselves.
func boundTokens(n int) (*stream.TokenTable, []stream.StreamOffsetToken) {
	tt := stream.NewTokenTable()
	toks := make([]stream.StreamOffsetToken, n)
	for i := range toks {
		toks[i] = tt.New()
		tt.Bind(toks[i], uint32(10*(i+1)))
	}
	return tt, toks
}

func physical(tok stream.StreamOffsetToken) stream.StreamOffsetToken {
	return stream.StreamOffsetToken(10 * (uint32(tok) + 1))
}

func fullState(toks []stream.StreamOffsetToken) VisualStateEssence {
	return VisualStateEssence{
		Name:          "Wide",
		Storyboard:    toks[0],
		HasStoryboard: true,
		Setters:       []stream.StreamOffsetToken{toks[1], toks[2]},
		TriggerValues: []TriggerValues{
			{{Dimension: QualifierWidth, Min: 720}, {Dimension: QualifierHeight, Min: 400}},
		},
		TriggerCollection:      []markup.SkipRange{{Start: toks[3], End: toks[4]}},
		ExtensibleTriggers:     []stream.StreamOffsetToken{toks[5]},
		StaticResourceTriggers: []stream.StreamOffsetToken{toks[6]},
	}
}

// physicalState is what reading fullState back must produce at revision rev.
func physicalState(rev int) VisualStateEssence {
	var toks []stream.StreamOffsetToken
	for i := range 7 {
		toks = append(toks, physical(stream.StreamOffsetToken(i)))
	}
	e := fullState(toks)
	if rev < 3 {
		e.ExtensibleTriggers, e.StaticResourceTriggers = nil, nil
	}
	if rev < 2 {
		e.TriggerValues, e.TriggerCollection = nil, nil
	}
	return e
}

func normalize(e VisualStateEssence) VisualStateEssence {
	// empty and nil slices are the same thing on the wire
	if len(e.Setters) == 0 {
		e.Setters = nil
	}
	if len(e.TriggerValues) == 0 {
		e.TriggerValues = nil
	}
	if len(e.TriggerCollection) == 0 {
		e.TriggerCollection = nil
	}
	if len(e.ExtensibleTriggers) == 0 {
		e.ExtensibleTriggers = nil
	}
	if len(e.StaticResourceTriggers) == 0 {
		e.StaticResourceTriggers = nil
	}
	return e
}

func TestVisualStateRoundTripPerRevision(t *testing.T) {
	for _, ti := range []typeindex.TypeIndex{
		typeindex.VisualStateGroupCollectionLegacy,
		typeindex.VisualStateGroupCollectionV2,
		typeindex.VisualStateGroupCollectionV3,
		typeindex.VisualStateGroupCollectionV4,
	} {
		t.Run(ti.String(), func(t *testing.T) {
			tt, toks := boundTokens(7)
			w := stream.NewWriter(nil, tt, typeindex.OSVersionLatest)
			e := fullState(toks)
			if err := e.Serialize(w, ti); err != nil {
				t.Fatalf("Serialize error = %v", err)
			}
			r := stream.NewReader(w.Bytes(), w.Strings().Strings(), tt.Physical())
			got, err := DeserializeVisualState(r, ti)
			if err != nil {
				t.Fatalf("Deserialize error = %v", err)
			}
			if r.Remaining() != 0 {
				t.Errorf("%d bytes left", r.Remaining())
			}
			want := physicalState(typeindex.Revision(ti))
			if !reflect.DeepEqual(normalize(got), normalize(want)) {
				t.Errorf("got  %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestVisualStateV2ReadByNewerReader(t *testing.T) {
	tt, toks := boundTokens(7)
	w := stream.NewWriter(nil, tt, typeindex.OSVersionRS1)
	e := fullState(toks)
	if err := e.Serialize(w, typeindex.VisualStateGroupCollectionV2); err != nil {
		t.Fatal(err)
	}
	// a trailing sentinel proves the v2 read stops where the v2 write did
	w.PersistUint32(0xCAFEF00D)

	r := stream.NewReader(w.Bytes(), w.Strings().Strings(), nil)
	got, err := DeserializeVisualState(r, typeindex.VisualStateGroupCollectionV2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ExtensibleTriggers) != 0 || len(got.StaticResourceTriggers) != 0 {
		t.Errorf("v3 fields populated: %+v", got)
	}
	if len(got.TriggerValues) != 1 || got.TriggerValues[0][1].Min != 400 {
		t.Errorf("trigger values = %+v", got.TriggerValues)
	}
	if tail, err := r.ReadUint32(); err != nil || tail != 0xCAFEF00D {
		t.Errorf("tail = %#x, %v", tail, err)
	}
}

func TestWrongKindIsRejected(t *testing.T) {
	w := stream.NewWriter(nil, nil, typeindex.OSVersionLatest)
	e := NewVisualStateEssence("x")
	if err := e.Serialize(w, typeindex.StyleV2); !errors.Is(err, typeindex.ErrUnknownTypeIndex) {
		t.Errorf("Serialize with style index error = %v", err)
	}
	if _, err := DeserializeVisualState(stream.NewReader(nil, nil, nil), 9999); !errors.Is(err, typeindex.ErrUnknownTypeIndex) {
		t.Errorf("Deserialize with unknown index error = %v", err)
	}
}

func TestGroupAndTransitionCodecs(t *testing.T) {
	tt, toks := boundTokens(3)
	ti := typeindex.VisualStateGroupCollectionV3
	w := stream.NewWriter(nil, tt, typeindex.OSVersionLatest)

	groups := []VisualStateGroupEssence{{Name: "CommonStates", HasDynamicTimelines: true, Token: toks[0]}}
	trans := []VisualTransitionEssence{{From: "Normal", To: "Pressed", Token: toks[1]}, {To: "Hover", Token: toks[2]}}
	if err := VisualStateGroups(ti).Encode(w, groups); err != nil {
		t.Fatal(err)
	}
	if err := VisualTransitions(ti).Encode(w, trans); err != nil {
		t.Fatal(err)
	}

	r := stream.NewReader(w.Bytes(), w.Strings().Strings(), tt.Physical())
	gotGroups, err := VisualStateGroups(ti).Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	gotTrans, err := VisualTransitions(ti).Decode(r)
	if err != nil {
		t.Fatal(err)
	}
	if gotGroups[0].Name != "CommonStates" || !gotGroups[0].HasDynamicTimelines || gotGroups[0].Token != physical(toks[0]) {
		t.Errorf("group = %+v", gotGroups[0])
	}
	if len(gotTrans) != 2 || gotTrans[1].From != "" || gotTrans[1].To != "Hover" || gotTrans[0].Token != physical(toks[1]) {
		t.Errorf("transitions = %+v", gotTrans)
	}
}

func TestStyleSetterRevisions(t *testing.T) {
	tt, toks := boundTokens(1)
	setters := []StyleSetterEssence{
		{Property: markup.Prop("Button", "Width"), Value: stream.FloatValue(120), ValueToken: stream.NoToken},
		{Property: markup.Prop("Button", "Template"), ValueToken: toks[0], Mutable: true},
	}
	for _, ti := range []typeindex.TypeIndex{typeindex.StyleLegacy, typeindex.StyleV2} {
		w := stream.NewWriter(nil, tt, typeindex.OSVersionLatest)
		if err := StyleSetters(ti).Encode(w, setters); err != nil {
			t.Fatal(err)
		}
		got, err := StyleSetters(ti).Decode(stream.NewReader(w.Bytes(), w.Strings().Strings(), nil))
		if err != nil {
			t.Fatal(err)
		}
		if !got[0].Value.Equal(stream.FloatValue(120)) || got[0].HasObjectValue() {
			t.Errorf("%s: inline setter = %+v", ti, got[0])
		}
		if got[1].ValueToken != physical(toks[0]) {
			t.Errorf("%s: object setter token = %v", ti, got[1].ValueToken)
		}
		if wantMutable := ti == typeindex.StyleV2; got[1].Mutable != wantMutable {
			t.Errorf("%s: mutable = %v", ti, got[1].Mutable)
		}
	}
}

func TestDeferredAndDictionary(t *testing.T) {
	tt, toks := boundTokens(3)
	w := stream.NewWriter(nil, tt, typeindex.OSVersionLatest)
	de := DeferredElementEssence{Name: "Details", Content: toks[0], RealizeOnLoad: true}
	if err := de.Serialize(w, typeindex.DeferredElementLegacy); err != nil {
		t.Fatal(err)
	}
	rd := ResourceDictionaryEssence{
		Keyed:  map[string]stream.StreamOffsetToken{"Accent": toks[1]},
		Named:  map[string]stream.StreamOffsetToken{"Root": toks[2]},
		Themes: map[string]stream.StreamOffsetToken{"Dark": toks[0]},
	}
	if err := rd.Serialize(w, typeindex.ResourceDictionaryV2); err != nil {
		t.Fatal(err)
	}

	r := stream.NewReader(w.Bytes(), w.Strings().Strings(), tt.Physical())
	gotDE, err := DeserializeDeferredElement(r, typeindex.DeferredElementLegacy)
	if err != nil {
		t.Fatal(err)
	}
	if gotDE.Name != "Details" || gotDE.RealizeOnLoad {
		t.Errorf("deferred = %+v", gotDE)
	}
	gotRD, err := DeserializeResourceDictionary(r, typeindex.ResourceDictionaryV2)
	if err != nil {
		t.Fatal(err)
	}
	if tok, ok := gotRD.Lookup("Root"); !ok || tok != physical(toks[2]) {
		t.Errorf("Lookup(Root) = %v, %v", tok, ok)
	}
	if len(gotRD.Themes) != 0 {
		t.Errorf("v3 themes read from v2 data: %v", gotRD.Themes)
	}
}
