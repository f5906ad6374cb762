package cas

import (
	"context"
	"io"
)

// OpenFileStream returns a lazy, depth-first [io.ReadCloser] over the
// byte content of the file rooted at key: unlike ReadFile, it fetches
// and decodes one leaf at a time as the caller reads, so a large file
// never needs to be buffered in full.
//
// A missing descendant node ends the stream early: Read returns
// io.EOF once the gap is reached, matching ReadFile's short-read
// behavior (SPEC_FULL.md §9, Open Question 1) rather than surfacing an
// error from mid-stream.
func (c *Controller) OpenFileStream(ctx context.Context, key Key) (io.ReadCloser, error) {
	node, err := c.GetNode(ctx, key)
	if err != nil {
		return nil, err
	}

	if node.Kind != KindFile {
		return nil, ErrWrongKind
	}

	return &fileStream{ctx: ctx, ctl: c, stack: []frame{{node: node}}}, nil
}

// frame tracks iteration position within one node's children list.
type frame struct {
	node        Node
	next        int  // index of the next child to descend into
	dataEmitted bool // whether node.Data has already been handed to the reader
}

// fileStream walks the node tree depth-first, holding at most one
// pending leaf's bytes in memory at a time.
type fileStream struct {
	ctx     context.Context
	ctl     *Controller
	stack   []frame
	pending []byte // unread bytes of the current leaf
}

func (s *fileStream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		if err := s.advance(); err != nil {
			return 0, err
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	return n, nil
}

// advance moves the cursor to the next leaf's data, descending into
// children as needed and popping exhausted frames. A node's own inline
// data is emitted before its children, matching write order (§4.3/§4.4)
// and the fact that an f-node or s-node may carry both data and
// children. Returns io.EOF when the tree is fully consumed, or when a
// child is missing from storage.
func (s *fileStream) advance() error {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]

		if !top.dataEmitted {
			top.dataEmitted = true

			if len(top.node.Data) > 0 {
				s.pending = top.node.Data
				return nil
			}
		}

		if top.next >= len(top.node.Children) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		childDigest := top.node.Children[top.next]
		top.next++

		childKey := KeyFromDigest(childDigest)

		child, err := s.ctl.GetNode(s.ctx, childKey)
		if err != nil {
			return io.EOF
		}

		s.stack = append(s.stack, frame{node: child})
	}

	return io.EOF
}

func (s *fileStream) Close() error {
	s.stack = nil
	s.pending = nil

	return nil
}
