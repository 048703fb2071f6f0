package essence

import (
	"fmt"

	"vsmrt/stream"
	"vsmrt/typeindex"
)

// DeferredElementEssence describes an element declared with x:Load.
type DeferredElementEssence struct {
	Name    string
	Content stream.StreamOffsetToken

	// revision 2: x:Load was true, realize together with the parent
	RealizeOnLoad bool
}

func deferredRevision(ti typeindex.TypeIndex) (int, error) {
	k, err := typeindex.KindOf(ti)
	if err != nil {
		return 0, err
	}
	if k != typeindex.KindDeferredElement {
		return 0, fmt.Errorf("%s is not a deferred element layout: %w", ti, typeindex.ErrUnknownTypeIndex)
	}
	return typeindex.Revision(ti), nil
}

func (e *DeferredElementEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	rev, err := deferredRevision(ti)
	if err != nil {
		return err
	}
	w.PersistSharedString(e.Name)
	if err := w.PersistToken(e.Content); err != nil {
		return fmt.Errorf("deferred element %q: %w", e.Name, err)
	}
	if rev >= 2 {
		w.PersistBool(e.RealizeOnLoad)
	}
	return nil
}

func DeserializeDeferredElement(r *stream.Reader, ti typeindex.TypeIndex) (DeferredElementEssence, error) {
	var e DeferredElementEssence
	rev, err := deferredRevision(ti)
	if err != nil {
		return e, err
	}
	if e.Name, err = r.ReadSharedString(); err != nil {
		return e, err
	}
	if e.Content, err = r.ReadToken(); err != nil {
		return e, err
	}
	if rev >= 2 {
		if e.RealizeOnLoad, err = r.ReadBool(); err != nil {
			return e, err
		}
	}
	return e, nil
}
