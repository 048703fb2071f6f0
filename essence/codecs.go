package essence

import (
	"vsmrt/markup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

func init() {
	qv := stream.CodecFunc[QualifierValue]{
		EncodeFn: func(w *stream.Writer, v QualifierValue) error {
			w.PersistUint8(uint8(v.Dimension))
			w.PersistInt32(v.Min)
			return nil
		},
		DecodeFn: func(r *stream.Reader) (QualifierValue, error) {
			at := r.Offset()
			d, err := r.ReadUint8()
			if err != nil {
				return QualifierValue{}, err
			}
			if QualifierDimension(d) != QualifierWidth && QualifierDimension(d) != QualifierHeight {
				return QualifierValue{}, &stream.FormatError{Offset: at, Msg: "unknown qualifier dimension"}
			}
			v, err := r.ReadInt32()
			return QualifierValue{Dimension: QualifierDimension(d), Min: v}, err
		},
	}
	stream.Register[QualifierValue](qv)

	tv := stream.CodecFunc[TriggerValues]{
		EncodeFn: func(w *stream.Writer, v TriggerValues) error { return stream.SliceOf[QualifierValue](qv).Encode(w, v) },
		DecodeFn: func(r *stream.Reader) (TriggerValues, error) { return stream.SliceOf[QualifierValue](qv).Decode(r) },
	}
	stream.Register[TriggerValues](tv)
	stream.Register[[]TriggerValues](stream.SliceOf[TriggerValues](tv))

	sr := stream.CodecFunc[markup.SkipRange]{
		EncodeFn: func(w *stream.Writer, v markup.SkipRange) error {
			if err := w.PersistToken(v.Start); err != nil {
				return err
			}
			return w.PersistToken(v.End)
		},
		DecodeFn: func(r *stream.Reader) (markup.SkipRange, error) {
			start, err := r.ReadToken()
			if err != nil {
				return markup.SkipRange{}, err
			}
			end, err := r.ReadToken()
			return markup.SkipRange{Start: start, End: end}, err
		},
	}
	stream.Register[markup.SkipRange](sr)
	stream.Register[[]markup.SkipRange](stream.SliceOf[markup.SkipRange](sr))
}

// revisioned binds an essence encoding to one layout revision so that it can
// be composed with the generic container codecs.
type revisioned[T any] struct {
	ti  typeindex.TypeIndex
	enc func(*T, *stream.Writer, typeindex.TypeIndex) error
	dec func(*stream.Reader, typeindex.TypeIndex) (T, error)
}

func (c revisioned[T]) Encode(w *stream.Writer, v T) error { return c.enc(&v, w, c.ti) }
func (c revisioned[T]) Decode(r *stream.Reader) (T, error) { return c.dec(r, c.ti) }

// VisualStates is the codec of a state list at revision ti.
func VisualStates(ti typeindex.TypeIndex) stream.SliceCodec[VisualStateEssence] {
	return stream.SliceOf[VisualStateEssence](revisioned[VisualStateEssence]{ti, (*VisualStateEssence).Serialize, DeserializeVisualState})
}

// VisualStateGroups is the codec of a group list at revision ti.
func VisualStateGroups(ti typeindex.TypeIndex) stream.SliceCodec[VisualStateGroupEssence] {
	return stream.SliceOf[VisualStateGroupEssence](revisioned[VisualStateGroupEssence]{ti, (*VisualStateGroupEssence).Serialize, DeserializeVisualStateGroup})
}

// VisualTransitions is the codec of a transition list at revision ti.
func VisualTransitions(ti typeindex.TypeIndex) stream.SliceCodec[VisualTransitionEssence] {
	return stream.SliceOf[VisualTransitionEssence](revisioned[VisualTransitionEssence]{ti, (*VisualTransitionEssence).Serialize, DeserializeVisualTransition})
}

// StyleSetters is the codec of a style setter list at revision ti.
func StyleSetters(ti typeindex.TypeIndex) stream.SliceCodec[StyleSetterEssence] {
	return stream.SliceOf[StyleSetterEssence](revisioned[StyleSetterEssence]{ti, (*StyleSetterEssence).Serialize, DeserializeStyleSetter})
}
