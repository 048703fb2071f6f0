package essence

import (
	"fmt"

	"vsmrt/stream"
	"vsmrt/typeindex"
)

var tokenMap = stream.MapOf(stream.MustCodecFor[string](), stream.MustCodecFor[stream.StreamOffsetToken]())

// ResourceDictionaryEssence maps resource keys to the objects they name.
type ResourceDictionaryEssence struct {
	Keyed map[string]stream.StreamOffsetToken

	// revision 2: resources that only have x:Name
	Named map[string]stream.StreamOffsetToken

	// revision 3: theme name to nested dictionary
	Themes map[string]stream.StreamOffsetToken
}

func dictionaryRevision(ti typeindex.TypeIndex) (int, error) {
	k, err := typeindex.KindOf(ti)
	if err != nil {
		return 0, err
	}
	if k != typeindex.KindResourceDictionary {
		return 0, fmt.Errorf("%s is not a resource dictionary layout: %w", ti, typeindex.ErrUnknownTypeIndex)
	}
	return typeindex.Revision(ti), nil
}

func (e *ResourceDictionaryEssence) Serialize(w *stream.Writer, ti typeindex.TypeIndex) error {
	rev, err := dictionaryRevision(ti)
	if err != nil {
		return err
	}
	if err := tokenMap.Encode(w, e.Keyed); err != nil {
		return fmt.Errorf("keyed resources: %w", err)
	}
	if rev < 2 {
		return nil
	}
	if err := tokenMap.Encode(w, e.Named); err != nil {
		return fmt.Errorf("named resources: %w", err)
	}
	if rev < 3 {
		return nil
	}
	if err := tokenMap.Encode(w, e.Themes); err != nil {
		return fmt.Errorf("theme dictionaries: %w", err)
	}
	return nil
}

func DeserializeResourceDictionary(r *stream.Reader, ti typeindex.TypeIndex) (ResourceDictionaryEssence, error) {
	var e ResourceDictionaryEssence
	rev, err := dictionaryRevision(ti)
	if err != nil {
		return e, err
	}
	if e.Keyed, err = tokenMap.Decode(r); err != nil {
		return e, fmt.Errorf("keyed resources: %w", err)
	}
	if rev < 2 {
		return e, nil
	}
	if e.Named, err = tokenMap.Decode(r); err != nil {
		return e, fmt.Errorf("named resources: %w", err)
	}
	if rev < 3 {
		return e, nil
	}
	if e.Themes, err = tokenMap.Decode(r); err != nil {
		return e, fmt.Errorf("theme dictionaries: %w", err)
	}
	return e, nil
}

// Lookup finds key among keyed and then named resources.
func (e *ResourceDictionaryEssence) Lookup(key string) (stream.StreamOffsetToken, bool) {
	if tok, ok := e.Keyed[key]; ok {
		return tok, true
	}
	tok, ok := e.Named[key]
	return tok, ok
}
