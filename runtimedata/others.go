package runtimedata

import (
	"fmt"

	"vsmrt/essence"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

func checkKind(ti typeindex.TypeIndex, want typeindex.Kind) error {
	if k, err := typeindex.KindOf(ti); err != nil || k != want {
		return fmt.Errorf("%s written as %s: %w", want, ti, typeindex.ErrUnknownTypeIndex)
	}
	return nil
}

// StyleRuntimeData is the optimized form of a Style.
type StyleRuntimeData struct {
	TypeIndex  typeindex.TypeIndex
	TargetType stream.TypeRef
	BasedOn    stream.StreamOffsetToken
	Setters    []essence.StyleSetterEssence
}

func (d *StyleRuntimeData) Kind() typeindex.Kind          { return typeindex.KindStyle }
func (d *StyleRuntimeData) Revision() typeindex.TypeIndex { return d.TypeIndex }

func (d *StyleRuntimeData) Serialize(w *stream.Writer) error {
	if err := checkKind(d.TypeIndex, typeindex.KindStyle); err != nil {
		return err
	}
	writeHeader(w, d.TypeIndex)
	w.PersistType(d.TargetType)
	if err := w.PersistToken(d.BasedOn); err != nil {
		return fmt.Errorf("based on: %w", err)
	}
	return essence.StyleSetters(d.TypeIndex).Encode(w, d.Setters)
}

func decodeStyle(r *stream.Reader, ti typeindex.TypeIndex) (*StyleRuntimeData, error) {
	d := &StyleRuntimeData{TypeIndex: ti}
	var err error
	if d.TargetType, err = r.ReadXamlType(); err != nil {
		return nil, err
	}
	if d.BasedOn, err = r.ReadToken(); err != nil {
		return nil, err
	}
	if d.Setters, err = essence.StyleSetters(ti).Decode(r); err != nil {
		return nil, fmt.Errorf("style setters: %w", err)
	}
	return d, nil
}

// ResourceDictionaryRuntimeData is the optimized form of a ResourceDictionary.
type ResourceDictionaryRuntimeData struct {
	TypeIndex typeindex.TypeIndex
	essence.ResourceDictionaryEssence
}

func (d *ResourceDictionaryRuntimeData) Kind() typeindex.Kind {
	return typeindex.KindResourceDictionary
}
func (d *ResourceDictionaryRuntimeData) Revision() typeindex.TypeIndex { return d.TypeIndex }

func (d *ResourceDictionaryRuntimeData) Serialize(w *stream.Writer) error {
	if err := checkKind(d.TypeIndex, typeindex.KindResourceDictionary); err != nil {
		return err
	}
	writeHeader(w, d.TypeIndex)
	return d.ResourceDictionaryEssence.Serialize(w, d.TypeIndex)
}

func decodeResourceDictionary(r *stream.Reader, ti typeindex.TypeIndex) (*ResourceDictionaryRuntimeData, error) {
	e, err := essence.DeserializeResourceDictionary(r, ti)
	if err != nil {
		return nil, err
	}
	return &ResourceDictionaryRuntimeData{TypeIndex: ti, ResourceDictionaryEssence: e}, nil
}

// DeferredElementRuntimeData is the optimized form of an x:Load element.
type DeferredElementRuntimeData struct {
	TypeIndex typeindex.TypeIndex
	essence.DeferredElementEssence
}

func (d *DeferredElementRuntimeData) Kind() typeindex.Kind {
	return typeindex.KindDeferredElement
}
func (d *DeferredElementRuntimeData) Revision() typeindex.TypeIndex { return d.TypeIndex }

func (d *DeferredElementRuntimeData) Serialize(w *stream.Writer) error {
	if err := checkKind(d.TypeIndex, typeindex.KindDeferredElement); err != nil {
		return err
	}
	writeHeader(w, d.TypeIndex)
	return d.DeferredElementEssence.Serialize(w, d.TypeIndex)
}

func decodeDeferredElement(r *stream.Reader, ti typeindex.TypeIndex) (*DeferredElementRuntimeData, error) {
	e, err := essence.DeserializeDeferredElement(r, ti)
	if err != nil {
		return nil, err
	}
	return &DeferredElementRuntimeData{TypeIndex: ti, DeferredElementEssence: e}, nil
}
