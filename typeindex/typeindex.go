// Package typeindex maps runtime data kinds and target OS versions to the
// on-disk revision of their layout and back.
package typeindex

import (
	"errors"
	"fmt"
	"strconv"
)

// Runtime data kind stored in a blob.
// ENUM(VisualStateGroupCollection, Style, ResourceDictionary, DeferredElement)
type Kind uint16

// TypeIndex identifies both the kind of runtime data and the revision of its
// layout. Values are never reused or renumbered: a new revision always gets a
// new value appended at the end of the list below.
type TypeIndex uint16

const (
	// Carried over unchanged from the type registry numbering used before
	// runtime data had its own identifier space.
	StyleLegacy                      TypeIndex = 578
	ResourceDictionaryLegacy         TypeIndex = 591
	VisualStateGroupCollectionLegacy TypeIndex = 624
	DeferredElementLegacy            TypeIndex = 795

	// Sequential values, append only.
	VisualStateGroupCollectionV2 TypeIndex = 1024
	VisualStateGroupCollectionV3 TypeIndex = 1025
	ResourceDictionaryV2         TypeIndex = 1026
	StyleV2                      TypeIndex = 1027
	VisualStateGroupCollectionV4 TypeIndex = 1028
	DeferredElementV2            TypeIndex = 1029
	ResourceDictionaryV3         TypeIndex = 1030
)

// OSVersion is the build number of the OS release a blob targets.
type OSVersion uint32

const (
	OSVersionTH1  OSVersion = 10240
	OSVersionRS1  OSVersion = 14393
	OSVersionRS2  OSVersion = 15063
	OSVersionRS3  OSVersion = 16299
	OSVersionRS4  OSVersion = 17134
	OSVersionRS5  OSVersion = 17763
	OSVersion19H1 OSVersion = 18362

	// OSVersionLatest makes the writer pick the newest known revision.
	OSVersionLatest OSVersion = ^OSVersion(0)
)

var osVersionNames = map[OSVersion]string{
	OSVersionTH1:  "TH1",
	OSVersionRS1:  "RS1",
	OSVersionRS2:  "RS2",
	OSVersionRS3:  "RS3",
	OSVersionRS4:  "RS4",
	OSVersionRS5:  "RS5",
	OSVersion19H1: "19H1",
}

// String names known releases along with their build number.
func (v OSVersion) String() string {
	if v == OSVersionLatest {
		return "latest"
	}
	if name, ok := osVersionNames[v]; ok {
		return fmt.Sprintf("%s(%d)", name, uint32(v))
	}
	return strconv.FormatUint(uint64(v), 10)
}

var ErrUnknownTypeIndex = errors.New("unknown runtime data type index")

type revisionInfo struct {
	index    TypeIndex
	kind     Kind
	revision int
	minOS    OSVersion
}

// revisions is ordered by kind and then by revision, Select depends on that.
var revisions = []revisionInfo{
	{VisualStateGroupCollectionLegacy, KindVisualStateGroupCollection, 1, 0},
	{VisualStateGroupCollectionV2, KindVisualStateGroupCollection, 2, OSVersionRS1},
	{VisualStateGroupCollectionV3, KindVisualStateGroupCollection, 3, OSVersionRS2},
	{VisualStateGroupCollectionV4, KindVisualStateGroupCollection, 4, OSVersionRS5},

	{StyleLegacy, KindStyle, 1, 0},
	{StyleV2, KindStyle, 2, OSVersionRS3},

	{ResourceDictionaryLegacy, KindResourceDictionary, 1, 0},
	{ResourceDictionaryV2, KindResourceDictionary, 2, OSVersionRS2},
	{ResourceDictionaryV3, KindResourceDictionary, 3, OSVersionRS5},

	{DeferredElementLegacy, KindDeferredElement, 1, 0},
	{DeferredElementV2, KindDeferredElement, 2, OSVersionRS4},
}

var byIndex = func() map[TypeIndex]revisionInfo {
	m := make(map[TypeIndex]revisionInfo, len(revisions))
	for _, r := range revisions {
		if _, dup := m[r.index]; dup {
			panic(fmt.Sprintf("type index %d registered twice", r.index))
		}
		m[r.index] = r
	}
	return m
}()

// Select returns the newest revision of kind that the target OS can read.
func Select(kind Kind, os OSVersion) TypeIndex {
	var (
		found bool
		best  revisionInfo
	)
	for _, r := range revisions {
		if r.kind != kind || r.minOS > os {
			continue
		}
		if !found || r.revision > best.revision {
			best, found = r, true
		}
	}
	if !found {
		// every kind has a legacy revision with minOS 0
		panic(fmt.Sprintf("no revision registered for kind %s", kind))
	}
	return best.index
}

// Latest returns the newest revision known for kind.
func Latest(kind Kind) TypeIndex {
	return Select(kind, OSVersionLatest)
}

// ForRevision returns the type index of the given revision of kind.
func ForRevision(kind Kind, revision int) (TypeIndex, error) {
	for _, r := range revisions {
		if r.kind == kind && r.revision == revision {
			return r.index, nil
		}
	}
	return 0, fmt.Errorf("%s revision %d: %w", kind, revision, ErrUnknownTypeIndex)
}

// Validate fails for values this reader was not built to understand.
func Validate(ti TypeIndex) error {
	if _, ok := byIndex[ti]; !ok {
		return fmt.Errorf("%d: %w", uint16(ti), ErrUnknownTypeIndex)
	}
	return nil
}

// KindOf returns the kind ti belongs to.
func KindOf(ti TypeIndex) (Kind, error) {
	r, ok := byIndex[ti]
	if !ok {
		return 0, fmt.Errorf("%d: %w", uint16(ti), ErrUnknownTypeIndex)
	}
	return r.kind, nil
}

// Revision returns the layout revision of ti (legacy values are revision 1)
// or 0 for unknown values.
func Revision(ti TypeIndex) int {
	return byIndex[ti].revision
}

// AtLeast reports whether ti has revision rev or newer of its kind's layout.
func AtLeast(ti TypeIndex, rev int) bool {
	return Revision(ti) >= rev
}

func (ti TypeIndex) String() string {
	r, ok := byIndex[ti]
	if !ok {
		return fmt.Sprintf("TypeIndex(%d)", uint16(ti))
	}
	if r.revision == 1 {
		return r.kind.String() + "Legacy"
	}
	return fmt.Sprintf("%sV%d", r.kind, r.revision)
}
