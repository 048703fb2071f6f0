// Package essence defines the compact descriptors persisted in place of full
// markup objects, and their revision gated encoding.
package essence

import (
	"fmt"

	"vsmrt/markup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// QualifierDimension is the window dimension an adaptive trigger compares.
type QualifierDimension uint8

const (
	QualifierWidth QualifierDimension = iota + 1
	QualifierHeight
)

func (d QualifierDimension) String() string {
	switch d {
	case QualifierWidth:
		return "Width"
	case QualifierHeight:
		return "Height"
	}
	return fmt.Sprintf("QualifierDimension(%d)", uint8(d))
}

// QualifierValue is one minimum window dimension of an adaptive trigger.
type QualifierValue struct {
	Dimension QualifierDimension
	Min       int32
}

// TriggerValues are the captured thresholds of one inline adaptive trigger.
type TriggerValues []QualifierValue

// VisualStateEssence stands in for a VisualState until it has to be faulted
// in.
type VisualStateEssence struct {
	Name          string
	Storyboard    stream.StreamOffsetToken
	HasStoryboard bool
	Setters       []stream.StreamOffsetToken

	// revision 2
	TriggerValues     []TriggerValues
	TriggerCollection []markup.SkipRange

	// revision 3
	ExtensibleTriggers     []stream.StreamOffsetToken
	StaticResourceTriggers []stream.StreamOffsetToken
}

// NewVisualStateEssence returns an essence with no storyboard.
func NewVisualStateEssence(name string) VisualStateEssence {
	return VisualStateEssence{Name: name, Storyboard: stream.NoToken}
}

// HasTriggers reports whether any trigger source is present.
func (e *VisualStateEssence) HasTriggers() bool {
	return len(e.TriggerValues) > 0 || len(e.ExtensibleTriggers) > 0 || len(e.StaticResourceTriggers) > 0
}

func collectionRevision(ti typeindex.TypeIndex) (int, error) {
	k, err := typeindex.KindOf(ti)
	if err != nil {
		return 0, err
	}
	if k != typeindex.KindVisualStateGroupCollection {
		return 0, fmt.Errorf("%s is not a visual state group collection layout: %w", ti, typeindex.ErrUnknownTypeIndex)
	}
	return typeindex.Revision(ti), nil
}

// Serialize writes the fields that exist in revision ti.
func (e *VisualStateEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	rev, err := collectionRevision(ti)
	if err != nil {
		return err
	}
	w.PersistSharedString(e.Name)
	if err := w.PersistToken(e.Storyboard); err != nil {
		return fmt.Errorf("state %q storyboard: %w", e.Name, err)
	}
	w.PersistBool(e.HasStoryboard)
	if err := stream.Serialize(w, e.Setters); err != nil {
		return fmt.Errorf("state %q setters: %w", e.Name, err)
	}
	if rev < 2 {
		return nil
	}
	if err := stream.Serialize(w, e.TriggerValues); err != nil {
		return fmt.Errorf("state %q trigger values: %w", e.Name, err)
	}
	if err := stream.Serialize(w, e.TriggerCollection); err != nil {
		return fmt.Errorf("state %q trigger collection: %w", e.Name, err)
	}
	if rev < 3 {
		return nil
	}
	if err := stream.Serialize(w, e.ExtensibleTriggers); err != nil {
		return fmt.Errorf("state %q extensible triggers: %w", e.Name, err)
	}
	if err := stream.Serialize(w, e.StaticResourceTriggers); err != nil {
		return fmt.Errorf("state %q static resource triggers: %w", e.Name, err)
	}
	return nil
}

// DeserializeVisualState reads exactly the fields of revision ti, newer
// fields stay empty.
func DeserializeVisualState(r *stream.Reader, ti typeindex.TypeIndex) (VisualStateEssence, error) {
	var e VisualStateEssence
	rev, err := collectionRevision(ti)
	if err != nil {
		return e, err
	}
	if e.Name, err = r.ReadSharedString(); err != nil {
		return e, err
	}
	if e.Storyboard, err = r.ReadToken(); err != nil {
		return e, err
	}
	if e.HasStoryboard, err = r.ReadBool(); err != nil {
		return e, err
	}
	if e.Setters, err = stream.Deserialize[[]stream.StreamOffsetToken](r); err != nil {
		return e, fmt.Errorf("state %q setters: %w", e.Name, err)
	}
	if rev < 2 {
		return e, nil
	}
	if e.TriggerValues, err = stream.Deserialize[[]TriggerValues](r); err != nil {
		return e, fmt.Errorf("state %q trigger values: %w", e.Name, err)
	}
	if e.TriggerCollection, err = stream.Deserialize[[]markup.SkipRange](r); err != nil {
		return e, fmt.Errorf("state %q trigger collection: %w", e.Name, err)
	}
	if rev < 3 {
		return e, nil
	}
	if e.ExtensibleTriggers, err = stream.Deserialize[[]stream.StreamOffsetToken](r); err != nil {
		return e, fmt.Errorf("state %q extensible triggers: %w", e.Name, err)
	}
	if e.StaticResourceTriggers, err = stream.Deserialize[[]stream.StreamOffsetToken](r); err != nil {
		return e, fmt.Errorf("state %q static resource triggers: %w", e.Name, err)
	}
	return e, nil
}

// VisualStateGroupEssence stands in for a VisualStateGroup.
type VisualStateGroupEssence struct {
	Name                string
	HasDynamicTimelines bool
	Token               stream.StreamOffsetToken
}

func (e *VisualStateGroupEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	if _, err := collectionRevision(ti); err != nil {
		return err
	}
	w.PersistSharedString(e.Name)
	w.PersistBool(e.HasDynamicTimelines)
	if err := w.PersistToken(e.Token); err != nil {
		return fmt.Errorf("group %q: %w", e.Name, err)
	}
	return nil
}

func DeserializeVisualStateGroup(r *stream.Reader, ti typeindex.TypeIndex) (VisualStateGroupEssence, error) {
	var e VisualStateGroupEssence
	if _, err := collectionRevision(ti); err != nil {
		return e, err
	}
	var err error
	if e.Name, err = r.ReadSharedString(); err != nil {
		return e, err
	}
	if e.HasDynamicTimelines, err = r.ReadBool(); err != nil {
		return e, err
	}
	if e.Token, err = r.ReadToken(); err != nil {
		return e, err
	}
	return e, nil
}

// VisualTransitionEssence stands in for a VisualTransition. Empty From or
// To means "any state".
type VisualTransitionEssence struct {
	To    string
	From  string
	Token stream.StreamOffsetToken
}

func (e *VisualTransitionEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	if _, err := collectionRevision(ti); err != nil {
		return err
	}
	w.PersistSharedString(e.To)
	w.PersistSharedString(e.From)
	if err := w.PersistToken(e.Token); err != nil {
		return fmt.Errorf("transition %q -> %q: %w", e.From, e.To, err)
	}
	return nil
}

func DeserializeVisualTransition(r *stream.Reader, ti typeindex.TypeIndex) (VisualTransitionEssence, error) {
	var e VisualTransitionEssence
	if _, err := collectionRevision(ti); err != nil {
		return e, err
	}
	var err error
	if e.To, err = r.ReadSharedString(); err != nil {
		return e, err
	}
	if e.From, err = r.ReadSharedString(); err != nil {
		return e, err
	}
	if e.Token, err = r.ReadToken(); err != nil {
		return e, err
	}
	return e, nil
}
