// Package creator materializes objects out of a blob on demand.
package creator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vsmrt/blob"
	"vsmrt/markup"
	"vsmrt/predicate"
	"vsmrt/stream"
)

// ErrIgnored is returned for conditionally declared objects whose guard is
// false. It means the object does not exist, not that something failed.
var ErrIgnored = errors.New("creator: conditional object is ignored")

// ResourceResolver looks up resources by key. Resolved objects are shared
// with every other consumer of the same key.
type ResourceResolver interface {
	ResolveResource(key string, theme bool) (*markup.Object, error)
}

// NameScope receives x:Name registrations of created objects.
type NameScope interface {
	RegisterName(name string, obj *markup.Object)
}

// Creator faults objects of one blob in.
type Creator struct {
	blob      *blob.Blob
	reader    *markup.SubReader
	preds     *predicate.Registry
	platform  *predicate.Platform
	resources ResourceResolver
	names     NameScope
	ignored   map[stream.StreamOffsetToken]bool
	log       *zap.Logger
}

// Option configures a Creator.
type Option func(*Creator)

func WithResources(r ResourceResolver) Option {
	return func(c *Creator) { c.resources = r }
}

func WithNameScope(ns NameScope) Option {
	return func(c *Creator) { c.names = ns }
}

func New(b *blob.Blob, preds *predicate.Registry, platform *predicate.Platform, log *zap.Logger, opts ...Option) *Creator {
	if log == nil {
		log = zap.NewNop()
	}
	if preds == nil {
		preds = predicate.NewRegistry()
	}
	if platform == nil {
		platform = predicate.NewPlatform(uint32(b.OSVersion), nil, nil, nil)
	}
	c := &Creator{
		blob:     b,
		reader:   b.SubReader(),
		preds:    preds,
		platform: platform,
		ignored:  make(map[stream.StreamOffsetToken]bool),
		log:      log.Named("creator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Creator) Blob() *blob.Blob { return c.blob }

// IsTokenForIgnoredConditionalObject reports whether tok is guarded by a
// predicate that does not hold. Answers for guarded tokens are cached, the
// platform does not change for the lifetime of a Creator. Unguarded tokens
// are looked up every time since guards may still be appended to the blob.
func (c *Creator) IsTokenForIgnoredConditionalObject(tok stream.StreamOffsetToken) (bool, error) {
	if ignored, ok := c.ignored[tok]; ok {
		return ignored, nil
	}
	preds, ok := c.blob.Conditional(tok)
	if !ok {
		return false, nil
	}
	holds, err := c.preds.EvaluateAll(c.platform, preds)
	if err != nil {
		return false, fmt.Errorf("conditional object %v: %w", tok, err)
	}
	c.ignored[tok] = !holds
	if !holds {
		c.log.Debug("Conditional object ignored", zap.Stringer("token", tok), zap.Int("predicates", len(preds)))
	}
	return !holds, nil
}

// CreateInstance materializes the object at tok with everything nested in
// it. Nested objects whose own guards are false are dropped, nested resource
// references are resolved when a resolver is configured.
func (c *Creator) CreateInstance(tok stream.StreamOffsetToken) (*markup.Object, error) {
	if !tok.IsValid() {
		return nil, fmt.Errorf("create instance: no token")
	}
	ignored, err := c.IsTokenForIgnoredConditionalObject(tok)
	if err != nil {
		return nil, err
	}
	if ignored {
		return nil, ErrIgnored
	}
	obj, err := c.reader.ReadObjectAt(uint32(tok))
	if err != nil {
		return nil, fmt.Errorf("create instance at %v: %w", tok, err)
	}
	if err := c.finish(obj); err != nil {
		return nil, fmt.Errorf("create instance at %v: %w", tok, err)
	}
	return obj, nil
}

// CreateStaticResource resolves the resource reference at tok through the
// resource system instead of creating a new object.
func (c *Creator) CreateStaticResource(tok stream.StreamOffsetToken) (*markup.Object, error) {
	ref, err := c.CreateInstance(tok)
	if err != nil {
		return nil, err
	}
	if ref.Type != markup.TypeStaticResource && ref.Type != markup.TypeThemeResource {
		// an inline object in a place where resources are allowed
		return ref, nil
	}
	return c.resolve(ref)
}

// ApplyStreamToExistingInstance merges the members recorded at tok into obj,
// skipping the given node ranges.
func (c *Creator) ApplyStreamToExistingInstance(tok stream.StreamOffsetToken, obj *markup.Object, skip ...markup.SkipRange) error {
	ignored, err := c.IsTokenForIgnoredConditionalObject(tok)
	if err != nil {
		return err
	}
	if ignored {
		return ErrIgnored
	}
	if err := c.reader.ApplyToExisting(uint32(tok), obj, skip...); err != nil {
		return fmt.Errorf("apply stream at %v: %w", tok, err)
	}
	return c.finish(obj)
}

func (c *Creator) resolve(ref *markup.Object) (*markup.Object, error) {
	if c.resources == nil {
		return nil, fmt.Errorf("resource %q: no resource resolver", ref.String(markup.PropResourceKey))
	}
	theme := ref.Type == markup.TypeThemeResource
	key := ref.String(markup.PropResourceKey)
	if theme {
		key = ref.String(markup.PropThemeResourceKey)
	}
	res, err := c.resources.ResolveResource(key, theme)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", key, err)
	}
	return res, nil
}

// finish prunes guarded children, resolves resource references and
// registers names, depth first.
func (c *Creator) finish(obj *markup.Object) error {
	for _, m := range obj.Members {
		if len(m.Predicates) > 0 {
			holds, err := c.preds.EvaluateAll(c.platform, m.Predicates)
			if err != nil {
				return err
			}
			if !holds {
				m.Values, m.Objects = nil, nil
				continue
			}
		}
		kept := m.Objects[:0]
		for _, child := range m.Objects {
			if len(child.Predicates) > 0 {
				holds, err := c.preds.EvaluateAll(c.platform, child.Predicates)
				if err != nil {
					return err
				}
				if !holds {
					continue
				}
			}
			if c.resources != nil && (child.Type == markup.TypeStaticResource || child.Type == markup.TypeThemeResource) {
				res, err := c.resolve(child)
				if err != nil {
					// leave the reference for the consumer to report
					c.log.Warn("Unable to resolve resource", zap.Error(err))
				} else {
					child = res
				}
			} else if err := c.finish(child); err != nil {
				return err
			}
			kept = append(kept, child)
		}
		m.Objects = kept
	}
	// drop members whose guard removed everything
	members := obj.Members[:0]
	for _, m := range obj.Members {
		if len(m.Predicates) > 0 && len(m.Values) == 0 && len(m.Objects) == 0 {
			continue
		}
		members = append(members, m)
	}
	obj.Members = members
	if c.names != nil {
		if name := obj.Name(); name != "" {
			c.names.RegisterName(name, obj)
		}
	}
	return nil
}
