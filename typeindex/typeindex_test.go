package typeindex

import (
	"errors"
	"testing"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		os   OSVersion
		want TypeIndex
	}{
		{"vsgc before rs1", KindVisualStateGroupCollection, OSVersionTH1, VisualStateGroupCollectionLegacy},
		{"vsgc rs1", KindVisualStateGroupCollection, OSVersionRS1, VisualStateGroupCollectionV2},
		{"vsgc rs3", KindVisualStateGroupCollection, OSVersionRS3, VisualStateGroupCollectionV3},
		{"vsgc rs5", KindVisualStateGroupCollection, OSVersionRS5, VisualStateGroupCollectionV4},
		{"vsgc latest", KindVisualStateGroupCollection, OSVersionLatest, VisualStateGroupCollectionV4},
		{"style rs2", KindStyle, OSVersionRS2, StyleLegacy},
		{"style rs3", KindStyle, OSVersionRS3, StyleV2},
		{"rd rs4", KindResourceDictionary, OSVersionRS4, ResourceDictionaryV2},
		{"rd 19h1", KindResourceDictionary, OSVersion19H1, ResourceDictionaryV3},
		{"deferred rs3", KindDeferredElement, OSVersionRS3, DeferredElementLegacy},
		{"deferred rs4", KindDeferredElement, OSVersionRS4, DeferredElementV2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.kind, tt.os); got != tt.want {
				t.Errorf("Select(%s, %d) = %s, want %s", tt.kind, tt.os, got, tt.want)
			}
		})
	}
}

func TestRevisionAndKind(t *testing.T) {
	for _, r := range revisions {
		if err := Validate(r.index); err != nil {
			t.Errorf("Validate(%d) error = %v", r.index, err)
		}
		k, err := KindOf(r.index)
		if err != nil || k != r.kind {
			t.Errorf("KindOf(%d) = %s, %v; want %s", r.index, k, err, r.kind)
		}
		if Revision(r.index) != r.revision {
			t.Errorf("Revision(%d) = %d, want %d", r.index, Revision(r.index), r.revision)
		}
		ti, err := ForRevision(r.kind, r.revision)
		if err != nil || ti != r.index {
			t.Errorf("ForRevision(%s, %d) = %d, %v", r.kind, r.revision, ti, err)
		}
	}
}

func TestUnknownTypeIndex(t *testing.T) {
	for _, ti := range []TypeIndex{0, 1, 577, 1031, 0xFFFF} {
		if err := Validate(ti); !errors.Is(err, ErrUnknownTypeIndex) {
			t.Errorf("Validate(%d) error = %v, want ErrUnknownTypeIndex", ti, err)
		}
		if _, err := KindOf(ti); !errors.Is(err, ErrUnknownTypeIndex) {
			t.Errorf("KindOf(%d) error = %v, want ErrUnknownTypeIndex", ti, err)
		}
		if Revision(ti) != 0 {
			t.Errorf("Revision(%d) = %d, want 0", ti, Revision(ti))
		}
	}
	if _, err := ForRevision(KindStyle, 9); !errors.Is(err, ErrUnknownTypeIndex) {
		t.Errorf("ForRevision(Style, 9) error = %v", err)
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(VisualStateGroupCollectionV3, 2) {
		t.Error("V3 should be at least revision 2")
	}
	if AtLeast(VisualStateGroupCollectionV2, 3) {
		t.Error("V2 should not be at least revision 3")
	}
	if AtLeast(TypeIndex(7), 1) {
		t.Error("unknown index should not satisfy any revision")
	}
}

func TestString(t *testing.T) {
	if s := VisualStateGroupCollectionLegacy.String(); s != "VisualStateGroupCollectionLegacy" {
		t.Errorf("String() = %q", s)
	}
	if s := ResourceDictionaryV3.String(); s != "ResourceDictionaryV3" {
		t.Errorf("String() = %q", s)
	}
	if s := TypeIndex(3).String(); s != "TypeIndex(3)" {
		t.Errorf("String() = %q", s)
	}
	k, err := ParseKind("Style")
	if err != nil || k != KindStyle {
		t.Errorf("ParseKind(Style) = %v, %v", k, err)
	}
	if _, err := ParseKind("Bogus"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(Bogus) error = %v", err)
	}
}

func TestOSVersionString(t *testing.T) {
	tests := []struct {
		v    OSVersion
		want string
	}{
		{OSVersionTH1, "TH1(10240)"},
		{OSVersionRS5, "RS5(17763)"},
		{OSVersion19H1, "19H1(18362)"},
		{OSVersion(22000), "22000"},
		{OSVersionLatest, "latest"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("OSVersion(%d).String() = %q, want %q", uint32(tt.v), got, tt.want)
		}
	}
}
