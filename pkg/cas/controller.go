package cas

import (
	"context"
	"fmt"
	"log/slog"
)

// Controller is the high-level API spec.md §4.5 describes: it drives the
// topology planner and node codec against an injected [Storage] and
// [Hash], so callers never touch node images directly.
//
// A Controller holds no mutable state beyond its dependencies; every
// method is safe for concurrent use to the extent its Storage is, per
// spec.md §5 — content-idempotent Put calls mean two goroutines writing
// the same bytes race harmlessly to the same key.
type Controller struct {
	store     Storage
	hash      Hash
	nodeLimit uint32
	log       *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger attaches a structured logger. Nil (the default) disables
// logging entirely rather than falling back to slog.Default, so a
// Controller never emits output a caller didn't ask for.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController builds a Controller over store and hash, chunking files
// to at most nodeLimit bytes per node image.
func NewController(store Storage, hash Hash, nodeLimit uint32, opts ...Option) *Controller {
	c := &Controller{store: store, hash: hash, nodeLimit: nodeLimit}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.log != nil {
		c.log.Debug(msg, args...)
	}
}

// WriteResult is the outcome of a successful WriteFile.
type WriteResult struct {
	Key  Key
	Size uint64
}

// WriteFile plans a topology for data (via [ComputeLayout]) and writes
// every resulting node bottom-up, returning the file root's key.
func (c *Controller) WriteFile(ctx context.Context, data []byte, contentType string) (WriteResult, error) {
	layout, err := ComputeLayout(uint64(len(data)), c.nodeLimit)
	if err != nil {
		return WriteResult{}, err
	}

	offset := 0

	digest, size, err := c.writeLayout(ctx, layout, data, &offset, contentType, true)
	if err != nil {
		return WriteResult{}, err
	}

	key := KeyFromDigest(digest)
	c.logDebug("wrote file", "key", key, "size", size)

	return WriteResult{Key: key, Size: size}, nil
}

// writeLayout recursively assembles and stores the node for layout,
// advancing *offset through data as it consumes leaf bytes. isRoot
// selects f-node encoding (with contentType) versus s-node encoding for
// every node below the root.
func (c *Controller) writeLayout(ctx context.Context, layout *Layout, data []byte, offset *int, contentType string, isRoot bool) (Digest, uint64, error) {
	if len(layout.Children) == 0 {
		chunk := data[*offset : *offset+int(layout.DataSize)]
		*offset += int(layout.DataSize)

		return c.encodeAndStore(ctx, chunk, nil, layout.DataSize, contentType, isRoot)
	}

	children := make([]Digest, len(layout.Children))

	for i, child := range layout.Children {
		d, _, err := c.writeLayout(ctx, child, data, offset, "", false)
		if err != nil {
			return Digest{}, 0, err
		}

		children[i] = d
	}

	return c.encodeAndStore(ctx, nil, children, layout.Size, contentType, isRoot)
}

func (c *Controller) encodeAndStore(ctx context.Context, data []byte, children []Digest, size uint64, contentType string, isRoot bool) (Digest, uint64, error) {
	var (
		buf []byte
		key Key
		err error
	)

	if isRoot {
		buf, key, err = EncodeFile(data, contentType, children, size, c.hash)
	} else {
		buf, key, err = EncodeSuccessor(data, children, size, c.hash)
	}
	if err != nil {
		return Digest{}, 0, err
	}

	if err := c.store.Put(ctx, key, buf); err != nil {
		return Digest{}, 0, err
	}

	digest, err := DigestFromKey(key)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("cas: internal: %w", err)
	}

	return digest, size, nil
}

// PutFileNode stores data directly as a single, unsplit file-root node,
// bypassing the topology planner. Callers are responsible for data
// fitting within the configured node_limit. WriteFile does not call it;
// it is exposed for callers that have already chunked data themselves.
func (c *Controller) PutFileNode(ctx context.Context, data []byte, contentType string) (Key, error) {
	buf, key, err := EncodeFile(data, contentType, nil, uint64(len(data)), c.hash)
	if err != nil {
		return "", err
	}

	if err := c.store.Put(ctx, key, buf); err != nil {
		return "", err
	}

	return key, nil
}

// MakeDict builds a directory node from entries, looking up each entry's
// child to compute the size sum the d-node's header.size must equal.
// Entries may name file roots, successor nodes, or other dicts.
func (c *Controller) MakeDict(ctx context.Context, entries []Entry) (Key, error) {
	if len(entries) == 0 {
		key := EmptyDictKey()
		if err := c.store.Put(ctx, key, EmptyDictBytes()); err != nil {
			return "", err
		}

		return key, nil
	}

	names := make([]string, len(entries))
	children := make([]Digest, len(entries))
	sizes := make([]uint64, len(entries))

	for i, e := range entries {
		node, err := c.GetNode(ctx, e.Key)
		if err != nil {
			return "", fmt.Errorf("cas: make dict: entry %q: %w", e.Name, err)
		}

		digest, err := DigestFromKey(e.Key)
		if err != nil {
			return "", err
		}

		names[i] = e.Name
		children[i] = digest
		sizes[i] = node.Size
	}

	buf, key, err := EncodeDict(names, children, sizes, c.hash)
	if err != nil {
		return "", err
	}

	if err := c.store.Put(ctx, key, buf); err != nil {
		return "", err
	}

	return key, nil
}

// ReadFile reconstructs the full byte content of the file rooted at key,
// depth-first. If any descendant node is missing from storage, ReadFile
// returns the bytes successfully gathered before the gap along with
// complete=false, rather than failing outright (SPEC_FULL.md §9, Open
// Question 1) — callers that need an all-or-nothing read should treat
// complete=false as an error themselves.
func (c *Controller) ReadFile(ctx context.Context, key Key) ([]byte, bool, error) {
	node, err := c.GetNode(ctx, key)
	if err != nil {
		return nil, false, err
	}

	if node.Kind != KindFile {
		return nil, false, ErrWrongKind
	}

	var buf []byte

	complete, err := c.readInto(ctx, node, &buf)
	if err != nil {
		return nil, false, err
	}

	return buf, complete, nil
}

func (c *Controller) readInto(ctx context.Context, node Node, out *[]byte) (bool, error) {
	*out = append(*out, node.Data...)

	if len(node.Children) == 0 {
		return true, nil
	}

	for _, child := range node.Children {
		childKey := KeyFromDigest(child)

		childNode, err := c.GetNode(ctx, childKey)
		if err != nil {
			c.logDebug("read file: missing child", "key", childKey)
			return false, nil
		}

		complete, err := c.readInto(ctx, childNode, out)
		if err != nil {
			return false, err
		}
		if !complete {
			return false, nil
		}
	}

	return true, nil
}

// GetNode fetches and decodes the node stored at key.
func (c *Controller) GetNode(ctx context.Context, key Key) (Node, error) {
	buf, err := c.store.Get(ctx, key)
	if err != nil {
		return Node{}, err
	}

	return Decode(buf)
}

// GetTree performs a breadth-first traversal of the tree rooted at key,
// visiting each key at most once and stopping once limit nodes have
// been recorded (limit <= 0 means unbounded). The result maps every
// visited key to a lightweight summary of that node: its kind, size,
// on-wire length, and immediate children's keys.
func (c *Controller) GetTree(ctx context.Context, key Key, limit int) (map[Key]NodeInfo, error) {
	result := make(map[Key]NodeInfo)
	visited := map[Key]bool{key: true}
	queue := []Key{key}

	for len(queue) > 0 {
		if limit > 0 && len(result) >= limit {
			break
		}

		next := queue[0]
		queue = queue[1:]

		info, err := c.nodeInfo(ctx, next)
		if err != nil {
			return nil, err
		}

		result[next] = info

		for _, child := range info.Children {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}

	return result, nil
}

// nodeInfo fetches and summarizes a single node, without recursing into
// its children.
func (c *Controller) nodeInfo(ctx context.Context, key Key) (NodeInfo, error) {
	buf, err := c.store.Get(ctx, key)
	if err != nil {
		return NodeInfo{}, err
	}

	h, err := DecodeHeader(buf)
	if err != nil {
		return NodeInfo{}, err
	}

	node, err := Decode(buf)
	if err != nil {
		return NodeInfo{}, err
	}

	children := make([]Key, len(node.Children))
	for i, d := range node.Children {
		children[i] = KeyFromDigest(d)
	}

	return NodeInfo{
		Kind:     node.Kind,
		Size:     node.Size,
		Length:   h.Length,
		Children: children,
	}, nil
}

// GetChunk returns the raw inline data carried directly by the node at
// key — not the full reconstructed file, just this one node's own Data
// section. Useful for inspecting an individual leaf or streaming without
// buffering the whole file.
func (c *Controller) GetChunk(ctx context.Context, key Key) ([]byte, error) {
	node, err := c.GetNode(ctx, key)
	if err != nil {
		return nil, err
	}

	return node.Data, nil
}

// Has reports whether key is present in storage.
func (c *Controller) Has(ctx context.Context, key Key) (bool, error) {
	return c.store.Has(ctx, key)
}
