package cas

// Hardcoded implementation limits.
//
// These limits are intentionally generous; they exist primarily to:
//   - keep the topology planner's arithmetic safely away from overflow
//   - bound content-type length to what the header's slot classes allow
//   - give callers a concrete, named minimum instead of an implicit one
const (
	// headerSize is the fixed on-disk size of a node header, in bytes.
	headerSize = 32

	// childHashSize is the size of one raw child digest, in bytes.
	childHashSize = 32

	// maxContentTypeSlot is the largest content-type slot class (bytes).
	maxContentTypeSlot = 64

	// successorAlignment is the alignment boundary for s-node data,
	// measured from the end of the children section.
	successorAlignment = 16

	// MaxContentTypeLength is the longest content-type string the
	// f-node content-type slot can hold (class 64).
	MaxContentTypeLength = 64

	// DefaultNodeLimit is the default maximum encoded size of any single
	// node, in bytes.
	DefaultNodeLimit = 1 << 20 // 1 MiB

	// MinNodeLimit is the smallest node_limit the topology planner can
	// work with: header + the content-type slot reservation a file root
	// may need + room for at least one child hash. Below this, a root
	// that must delegate to children could never fit within node_limit.
	MinNodeLimit = headerSize + maxContentTypeSlot + childHashSize // 128

	// KeyPrefix is the literal prefix of every CAS key string.
	KeyPrefix = "sha256:"

	// DigestSize is the size of a SHA-256 digest, in bytes.
	DigestSize = 32

	// KeyLength is the total length of a well-formed key string.
	KeyLength = len(KeyPrefix) + 2*DigestSize
)
