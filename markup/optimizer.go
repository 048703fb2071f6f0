package markup

import (
	"fmt"
	"slices"
)

// NodeListOptimizer prunes a node list before it is encoded. roots are the
// node indexes tokens point at; everything a token can reach must survive.
// The returned remap maps old node indexes to new ones, false for dropped
// nodes.
type NodeListOptimizer interface {
	Optimize(nodes []Node, roots []int) ([]Node, func(old uint32) (uint32, bool), error)
}

// ScopePruner keeps only the subtrees rooted at token referenced nodes.
type ScopePruner struct{}

func (ScopePruner) Optimize(nodes []Node, roots []int) ([]Node, func(uint32) (uint32, bool), error) {
	keep := make([]bool, len(nodes))
	for _, r := range slices.Sorted(slices.Values(roots)) {
		if r < 0 || r >= len(nodes) {
			return nil, nil, fmt.Errorf("token root %d outside of %d nodes: %w", r, len(nodes), ErrMalformedNodes)
		}
		if keep[r] {
			continue
		}
		end := r
		switch nodes[r].Kind {
		case NodeStartObject:
			e, err := ObjectEnd(nodes, r)
			if err != nil {
				return nil, nil, err
			}
			end = e
		case NodeStartMember:
			e, err := MemberEnd(nodes, r)
			if err != nil {
				return nil, nil, err
			}
			end = e
		}
		for i := r; i <= end; i++ {
			keep[i] = true
		}
	}

	index := make([]int, len(nodes))
	out := make([]Node, 0, len(nodes))
	for i, n := range nodes {
		if !keep[i] {
			index[i] = -1
			continue
		}
		index[i] = len(out)
		out = append(out, n)
	}
	remap := func(old uint32) (uint32, bool) {
		if int(old) >= len(index) || index[old] < 0 {
			return 0, false
		}
		return uint32(index[old]), true
	}
	return out, remap, nil
}

// NopOptimizer keeps every node.
type NopOptimizer struct{}

func (NopOptimizer) Optimize(nodes []Node, _ []int) ([]Node, func(uint32) (uint32, bool), error) {
	return nodes, func(old uint32) (uint32, bool) { return old, int(old) < len(nodes) }, nil
}
