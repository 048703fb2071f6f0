package inspect

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"vsmrt/blob"
	"vsmrt/creator"
	"vsmrt/markup"
	"vsmrt/predicate"
	"vsmrt/runtimedata"
	"vsmrt/vsm"
)

var errNoSuchTarget = errors.New("no such target")

// host stands in for a control and the animation system. Setter targets are
// "Element.Property" paths, timelines run until settle completes them.
type host struct {
	width, height int32
	// elements limits resolvable targets, empty allows any
	elements map[string]bool
	props    map[string]any
	running  []*timeline
	trace    []string
	log      *zap.Logger
}

func newHost(width, height int32, elements []string, log *zap.Logger) *host {
	h := &host{width: width, height: height, props: make(map[string]any), log: log}
	if len(elements) > 0 {
		h.elements = make(map[string]bool, len(elements))
		for _, e := range elements {
			h.elements[e] = true
		}
	}
	return h
}

func (h *host) tracef(format string, args ...any) {
	event := fmt.Sprintf(format, args...)
	h.log.Debug("Host", zap.String("event", event))
	h.trace = append(h.trace, event)
}

// takeTrace returns events recorded since the previous call.
func (h *host) takeTrace() []string {
	t := h.trace
	h.trace = nil
	return t
}

type timeline struct {
	h         *host
	name      string
	completed func()
	playing   bool
	done      bool
}

func (t *timeline) Begin() error {
	t.playing, t.done = true, false
	t.h.running = append(t.h.running, t)
	t.h.tracef("begin %s", t.name)
	return nil
}

func (t *timeline) Stop() error {
	if t.playing {
		t.h.tracef("stop %s", t.name)
	}
	t.playing = false
	t.h.forget(t)
	return nil
}

func (t *timeline) SkipToFill() error {
	t.h.tracef("fill %s", t.name)
	t.done = true
	t.h.forget(t)
	return nil
}

func (t *timeline) Complete() error {
	if t.done {
		return nil
	}
	t.done = true
	t.h.forget(t)
	t.h.tracef("complete %s", t.name)
	if t.completed != nil {
		t.completed()
	}
	return nil
}

func (t *timeline) Stopped() bool { return !t.playing }

func (h *host) forget(t *timeline) {
	h.running = slices.DeleteFunc(h.running, func(r *timeline) bool { return r == t })
}

func (h *host) Instantiate(sb *markup.Object, completed func()) (vsm.Timeline, error) {
	name := sb.Name()
	if anims := sb.Children(markup.PropStoryboardChildren); name == "" && len(anims) > 0 {
		name = anims[0].Name()
	}
	if name == "" {
		name = "storyboard"
	}
	return &timeline{h: h, name: name, completed: completed}, nil
}

func (h *host) Dynamic(d time.Duration, _ []*markup.Object, _ *markup.Object, completed func()) (vsm.Timeline, error) {
	return &timeline{h: h, name: "dynamic " + d.String(), completed: completed}, nil
}

// settle completes everything that is running, timelines started by
// completions included, and reports how many completed.
func (h *host) settle(d *vsm.Dispatcher) int {
	n := 0
	for d.Drain(); len(h.running) > 0; d.Drain() {
		_ = h.running[0].Complete()
		n++
	}
	return n
}

func (h *host) ResolveTarget(path string) (any, string, error) {
	i := strings.LastIndexByte(path, '.')
	if i <= 0 || i == len(path)-1 {
		return nil, "", fmt.Errorf("target %q: %w", path, errNoSuchTarget)
	}
	element := path[:i]
	if h.elements != nil && !h.elements[element] {
		return nil, "", fmt.Errorf("target %q: %w", path, errNoSuchTarget)
	}
	return element, path[i+1:], nil
}

func (h *host) SetValue(target any, property string, value any) error {
	key := fmt.Sprintf("%v.%s", target, property)
	if o, ok := value.(*markup.Object); ok {
		value = "<" + o.Type.String() + ">"
	}
	h.props[key] = value
	h.tracef("set %s = %v", key, value)
	return nil
}

func (h *host) ClearValue(target any, property string) error {
	key := fmt.Sprintf("%v.%s", target, property)
	delete(h.props, key)
	h.tracef("clear %s", key)
	return nil
}

func (h *host) WindowSize() (int32, int32) { return h.width, h.height }

func (h *host) TriggerActive(trigger *markup.Object) bool {
	return vsm.StateTriggerActive(trigger)
}

// properties lists applied values in natural order.
func (h *host) properties() []string {
	keys := slices.Collect(maps.Keys(h.props))
	sort.Sort(natural.StringSlice(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s = %v", k, h.props[k]))
	}
	return out
}

// dictionary resolves resource references out of a compiled resource
// dictionary, values are created on first use.
type dictionary struct {
	rd      *runtimedata.ResourceDictionaryRuntimeData
	creator *creator.Creator
	cache   map[string]*markup.Object
}

func newDictionary(b *blob.Blob, preds *predicate.Registry, platform *predicate.Platform, log *zap.Logger) (*dictionary, error) {
	rd, err := runtimedata.FromBlob(b)
	if err != nil {
		return nil, err
	}
	d, ok := rd.(*runtimedata.ResourceDictionaryRuntimeData)
	if !ok {
		return nil, fmt.Errorf("resources blob holds %s", rd.Kind())
	}
	return &dictionary{
		rd:      d,
		creator: creator.New(b, preds, platform, log),
		cache:   make(map[string]*markup.Object),
	}, nil
}

// ResolveResource looks theme resources up the same way, themes nested in
// the dictionary are not selected between.
func (d *dictionary) ResolveResource(key string, _ bool) (*markup.Object, error) {
	if obj, ok := d.cache[key]; ok {
		return obj, nil
	}
	tok, ok := d.rd.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("resource %q not found", key)
	}
	obj, err := d.creator.CreateInstance(tok)
	if err != nil {
		return nil, err
	}
	d.cache[key] = obj
	return obj, nil
}
