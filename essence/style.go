package essence

import (
	"fmt"

	"vsmrt/stream"
	"vsmrt/typeindex"
)

// StyleSetterEssence is one Style setter. Setters with a plain value keep it
// inline, setters whose value is an object point at it with ValueToken.
type StyleSetterEssence struct {
	Property   stream.PropertyRef
	Value      stream.Value
	ValueToken stream.StreamOffsetToken

	// revision 2: the value object is mutable and has to be created per
	// target instead of being shared
	Mutable bool
}

func (e *StyleSetterEssence) HasObjectValue() bool {
	return e.ValueToken.IsValid()
}

func styleRevision(ti typeindex.TypeIndex) (int, error) {
	k, err := typeindex.KindOf(ti)
	if err != nil {
		return 0, err
	}
	if k != typeindex.KindStyle {
		return 0, fmt.Errorf("%s is not a style layout: %w", ti, typeindex.ErrUnknownTypeIndex)
	}
	return typeindex.Revision(ti), nil
}

func (e *StyleSetterEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	rev, err := styleRevision(ti)
	if err != nil {
		return err
	}
	w.PersistProperty(e.Property)
	if err := w.PersistValue(e.Value); err != nil {
		return fmt.Errorf("setter %s: %w", e.Property, err)
	}
	if err := w.PersistToken(e.ValueToken); err != nil {
		return fmt.Errorf("setter %s: %w", e.Property, err)
	}
	if rev >= 2 {
		w.PersistBool(e.Mutable)
	}
	return nil
}

func DeserializeStyleSetter(r *stream.Reader, ti typeindex.TypeIndex) (StyleSetterEssence, error) {
	var e StyleSetterEssence
	rev, err := styleRevision(ti)
	if err != nil {
		return e, err
	}
	if e.Property, err = r.ReadXamlProperty(); err != nil {
		return e, err
	}
	if e.Value, err = r.ReadCValue(); err != nil {
		return e, err
	}
	if e.ValueToken, err = r.ReadToken(); err != nil {
		return e, err
	}
	if rev >= 2 {
		if e.Mutable, err = r.ReadBool(); err != nil {
			return e, err
		}
	}
	return e, nil
}
