// Package writer captures collections out of their markup node lists into
// runtime data and packs the result into blobs.
package writer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

var (
	// ErrInvalidSetterProperty is reported for visual state setters using
	// Property instead of Target.
	ErrInvalidSetterProperty = errors.New("visual state setters cannot use Setter.Property")
	// ErrUnsupportedRoot is returned when no writer exists for the root
	// object of a node list.
	ErrUnsupportedRoot = errors.New("no runtime data writer for root object")
)

// CustomWriter captures one collection kind while its node list is walked.
// Tokens it hands out are logical and bound to node indexes.
type CustomWriter interface {
	Kind() typeindex.Kind
	WriteNode(i int, n markup.Node) error
	// Finish returns the runtime data laid out for revision ti.
	Finish(ti typeindex.TypeIndex) (runtimedata.RuntimeData, error)
	// Roots lists the node indexes tokens were bound to.
	Roots() []int
	Conditionals() []Conditional
}

// New returns the writer for objects of type root.
func New(root stream.TypeRef, tokens *stream.TokenTable, log *zap.Logger) (CustomWriter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch root {
	case markup.TypeVisualStateGroupCollection:
		return NewVisualStateGroupCollectionWriter(tokens, log), nil
	case markup.TypeStyle:
		return NewStyleWriter(tokens, log), nil
	case markup.TypeResourceDictionary:
		return NewResourceDictionaryWriter(tokens, log), nil
	case markup.TypeDeferredElement:
		return NewDeferredElementWriter(tokens, log), nil
	}
	return nil, fmt.Errorf("%s: %w", root, ErrUnsupportedRoot)
}

func kindOf(root stream.TypeRef) (typeindex.Kind, error) {
	switch root {
	case markup.TypeVisualStateGroupCollection:
		return typeindex.KindVisualStateGroupCollection, nil
	case markup.TypeStyle:
		return typeindex.KindStyle, nil
	case markup.TypeResourceDictionary:
		return typeindex.KindResourceDictionary, nil
	case markup.TypeDeferredElement:
		return typeindex.KindDeferredElement, nil
	}
	return 0, fmt.Errorf("%s: %w", root, ErrUnsupportedRoot)
}

func checkRevision(ti typeindex.TypeIndex, want typeindex.Kind) error {
	k, err := typeindex.KindOf(ti)
	if err != nil {
		return err
	}
	if k != want {
		return fmt.Errorf("%s cannot be written as %s: %w", want, ti, typeindex.ErrUnknownTypeIndex)
	}
	return nil
}
