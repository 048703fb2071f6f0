package writer

import (
	"fmt"

	"go.uber.org/zap"

	"vsmrt/blob"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// Options controls Compile.
type Options struct {
	// OS selects the newest layout readers on that OS understand.
	OS typeindex.OSVersion
	// TypeIndex forces a layout, zero means select by OS.
	TypeIndex typeindex.TypeIndex
	// Optimizer prunes the node list, nil keeps every node.
	Optimizer markup.NodeListOptimizer
	Logger    *zap.Logger
}

// Compile captures the collection rooted at nodes[0] and packs it with its
// node stream into a blob.
func Compile(nodes []markup.Node, opts Options) (*blob.Blob, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if len(nodes) == 0 || nodes[0].Kind != markup.NodeStartObject {
		return nil, fmt.Errorf("node list does not start with an object: %w", markup.ErrMalformedNodes)
	}
	kind, err := kindOf(nodes[0].Type)
	if err != nil {
		return nil, err
	}
	os := opts.OS
	if os == 0 {
		os = typeindex.OSVersionLatest
	}
	ti := opts.TypeIndex
	if ti == 0 {
		ti = typeindex.Select(kind, os)
	}

	strings, tokens := stream.NewStringTable(), stream.NewTokenTable()
	cw, err := New(nodes[0].Type, tokens, log)
	if err != nil {
		return nil, err
	}
	for i, n := range nodes {
		if err := cw.WriteNode(i, n); err != nil {
			return nil, fmt.Errorf("%s writer: %w", kind, err)
		}
	}
	rd, err := cw.Finish(ti)
	if err != nil {
		return nil, fmt.Errorf("%s writer: %w", kind, err)
	}

	optimizer := opts.Optimizer
	if optimizer == nil {
		optimizer = markup.NopOptimizer{}
	}
	pruned, remap, err := optimizer.Optimize(nodes, cw.Roots())
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	tokens.Remap(remap)

	nw := stream.NewWriter(strings, tokens, os)
	offsets, err := markup.NewNodeEncoder(nw).Encode(pruned)
	if err != nil {
		return nil, fmt.Errorf("encode nodes: %w", err)
	}
	tokens.Remap(func(idx uint32) (uint32, bool) {
		if int(idx) >= len(offsets) {
			return 0, false
		}
		return offsets[idx], true
	})

	data, err := runtimedata.Encode(rd, strings, tokens, os)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ti, err)
	}

	b, err := blob.New(ti, os)
	if err != nil {
		return nil, err
	}
	b.Nodes = nw.Bytes()
	b.Data = data
	b.Tokens = tokens.Physical()
	for _, cond := range cw.Conditionals() {
		off, err := tokens.Offset(cond.Token)
		if err != nil {
			return nil, fmt.Errorf("conditional object: %w", err)
		}
		b.AddConditional(stream.StreamOffsetToken(off), cond.Predicates)
	}
	b.Strings = strings.Strings()

	log.Debug("Compiled runtime data",
		zap.Stringer("type_index", ti),
		zap.Stringer("id", b.ID),
		zap.Int("nodes", len(pruned)),
		zap.Int("dropped", len(nodes)-len(pruned)),
		zap.Int("tokens", len(b.Tokens)),
		zap.Int("data", len(b.Data)))
	if vw, ok := cw.(*VisualStateGroupCollectionWriter); ok && len(vw.Unexpected()) > 0 {
		log.Info("Visual state group collection will be created in full", zap.Strings("reasons", vw.Unexpected()))
	}
	return b, nil
}
