package cas

// Layout describes one node of a planned file tree: how many data bytes
// it carries directly versus how the remainder is split across children.
// The topology planner (ComputeLayout) produces a Layout tree from
// (totalSize, nodeLimit) alone; the controller walks it to assemble and
// hash the actual node images bottom-up.
type Layout struct {
	// DataSize is the number of source bytes this node carries inline.
	// Always 0 for an interior node; for a single-leaf root it equals
	// totalSize.
	DataSize uint64

	// Children is the planned layout of each child subtree, in order.
	// Nil for a leaf.
	Children []*Layout

	// Size is the total source bytes reachable under this node
	// (DataSize plus every descendant's DataSize). Equals totalSize at
	// the root, per spec.md invariant 8.
	Size uint64
}

// ComputeLayout plans a balanced tree topology for a file of totalSize
// bytes under the given nodeLimit, per spec.md §4.3 "Topology planning".
//
// The planner reasons about two distinct capacities (SPEC_FULL.md §9,
// Open Question 3): rootCap, which reserves room for the file root's
// content-type slot (only the root ever carries one), and childCap, which
// does not — every node below the root is a plain s-node. Using a single
// content-type-reserving capacity at every level breaks branching
// arithmetic at small node_limit values (a node_limit of 128 yields a
// branch factor of 1, which can never cover more than one node's worth of
// data no matter how deep the tree grows); splitting the two resolves it
// while leaving the root's own fan-out still bounded correctly.
//
// All interior nodes (root included, when the root has children) carry
// DataSize 0 — every byte of source data lives in a leaf, and all leaves
// sit at equal depth, satisfying spec.md's balance and equal-size
// invariants.
func ComputeLayout(totalSize uint64, nodeLimit uint32) (*Layout, error) {
	if int(nodeLimit) < MinNodeLimit {
		return nil, ErrNodeLimitTooSmall
	}

	rootCap := uint64(nodeLimit) - headerSize - maxContentTypeSlot
	childCap := uint64(nodeLimit) - headerSize

	rootB := rootCap / childHashSize
	childB := childCap / childHashSize

	if totalSize <= rootCap {
		return &Layout{DataSize: totalSize, Size: totalSize}, nil
	}

	// Find the minimal depth D (number of child levels below the root)
	// such that rootB direct children, each a depth-(D-1) subtree built
	// with childCap/childB, can collectively reach totalSize.
	depth := 1
	for saturatingMul(rootB, capacityAtDepth(depth-1, childCap, childB)) < totalSize {
		depth++
	}

	children := splitChildren(totalSize, int(rootB), depth-1, childCap, childB)

	return &Layout{Children: children, Size: totalSize}, nil
}

// capacityAtDepth returns the maximum source bytes a single subtree of
// the given depth (0 = leaf) can hold, saturating at a very large value
// instead of overflowing once depth grows large.
func capacityAtDepth(depth int, childCap, childB uint64) uint64 {
	capacity := childCap

	for i := 0; i < depth; i++ {
		capacity = saturatingMul(capacity, childB)
	}

	return capacity
}

// saturatingMul returns a*b, or math.MaxUint64 on overflow. Tree depth
// for any realistic totalSize/nodeLimit pair stays tiny, but the planner
// must not wrap around while searching for it.
func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}

	const maxUint64 = ^uint64(0)
	if a > maxUint64/b {
		return maxUint64
	}

	return a * b
}

// splitChildren divides totalSize across up to maxChildren subtrees, each
// of the given depth, as evenly as possible: every child gets the same
// share except possibly the last, which may be smaller (spec.md's balance
// invariant requires equal depth, not equal leaf size).
func splitChildren(totalSize uint64, maxChildren, depth int, childCap, childB uint64) []*Layout {
	perChildCap := capacityAtDepth(depth, childCap, childB)

	count := int(ceilDivU64(totalSize, perChildCap))
	if count > maxChildren {
		count = maxChildren
	}
	if count < 1 {
		count = 1
	}

	// Distribute as evenly as possible across `count` children: each child
	// takes ceil(totalSize/count) bytes, and the last takes what remains.
	share := ceilDivU64(totalSize, uint64(count))

	children := make([]*Layout, 0, count)

	remaining := totalSize
	for i := 0; i < count && remaining > 0; i++ {
		take := share
		if take > remaining {
			take = remaining
		}

		children = append(children, buildSubtree(take, depth, childCap, childB))
		remaining -= take
	}

	return children
}

// buildSubtree recursively plans a subtree of exactly the given depth
// (0 = leaf) holding size bytes.
func buildSubtree(size uint64, depth int, childCap, childB uint64) *Layout {
	if depth == 0 {
		return &Layout{DataSize: size, Size: size}
	}

	children := splitChildren(size, int(childB), depth-1, childCap, childB)

	return &Layout{Children: children, Size: size}
}

// ceilDivU64 returns ceil(a/b) for b > 0.
func ceilDivU64(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}

	return (a + b - 1) / b
}
