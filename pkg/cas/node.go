package cas

import (
	"fmt"
	"sort"
)

// EncodeFile assembles a file node (f-node) image.
//
// size is the node's semantic size (spec.md §3 "Size semantics"): for a
// leaf (no children) this must equal len(data); for a file root whose
// payload was split across children, the caller (the controller, driven
// by the topology planner) supplies the subtree's total size explicitly.
//
// The content-type slot class is chosen as the smallest of {0,16,32,64}
// that fits contentType, per spec.md §4.2/§9 "Content-type slot
// minimization" — this keeps semantically equal nodes hash-stable.
func EncodeFile(data []byte, contentType string, children []Digest, size uint64, hash Hash) ([]byte, Key, error) {
	slotSize, err := contentTypeSlotSize(len(contentType))
	if err != nil {
		return nil, "", err
	}

	ctSlot := make([]byte, slotSize)
	copy(ctSlot, contentType)

	body := make([]byte, 0, len(children)*childHashSize+slotSize+len(data))
	body = appendChildren(body, children)
	body = append(body, ctSlot...)
	body = append(body, data...)

	return finishEncode(Header{
		Flags: buildFlags(KindFile, ctSlotClassFor(slotSize)),
		Size:  size,
		Count: uint32(len(children)),
	}, body, hash)
}

// EncodeSuccessor assembles a successor node (s-node) image: an interior
// or leaf continuation chunk of a file. s-nodes never carry a
// content-type; the body inserts zero alignment padding between the
// children section and the data, rounding up to a 16-byte boundary
// measured from the end of the children (spec.md §3 body layout).
func EncodeSuccessor(data []byte, children []Digest, size uint64, hash Hash) ([]byte, Key, error) {
	body := make([]byte, 0, len(children)*childHashSize+successorAlignment+len(data))
	body = appendChildren(body, children)

	pad := alignPadding(len(body), successorAlignment)
	body = append(body, make([]byte, pad)...)
	body = append(body, data...)

	return finishEncode(Header{
		Flags: buildFlags(KindSuccessor, 0),
		Size:  size,
		Count: uint32(len(children)),
	}, body, hash)
}

// EncodeDict assembles a directory node (d-node) image from parallel
// names/children/sizes arrays.
//
// Entries are sorted by UTF-8 byte order of name before emission — this
// gives canonical hash stability regardless of caller-supplied order
// (spec.md §4.2, §9 "Sorting in the dict encoder"). Duplicate names fail
// with [ErrDuplicateName]; mismatched array lengths fail with
// [ErrCountMismatch]. The node's size is the sum of the supplied sizes.
func EncodeDict(names []string, children []Digest, sizes []uint64, hash Hash) ([]byte, Key, error) {
	if len(names) != len(children) || len(names) != len(sizes) {
		return nil, "", ErrCountMismatch
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		return names[order[a]] < names[order[b]]
	})

	for i := 1; i < len(order); i++ {
		if names[order[i]] == names[order[i-1]] {
			return nil, "", fmt.Errorf("%w: %q", ErrDuplicateName, names[order[i]])
		}
	}

	var totalSize uint64

	sortedChildren := make([]Digest, len(order))
	nameSection := make([]byte, 0, len(order)*8)

	for i, idx := range order {
		sortedChildren[i] = children[idx]
		totalSize += sizes[idx]
		nameSection = append(nameSection, encodePascalString(names[idx])...)
	}

	body := make([]byte, 0, len(sortedChildren)*childHashSize+len(nameSection))
	body = appendChildren(body, sortedChildren)
	body = append(body, nameSection...)

	return finishEncode(Header{
		Flags: buildFlags(KindDict, 0),
		Size:  totalSize,
		Count: uint32(len(sortedChildren)),
	}, body, hash)
}

// appendChildren appends the raw 32-byte digests of children, in order.
func appendChildren(body []byte, children []Digest) []byte {
	for _, c := range children {
		body = append(body, c[:]...)
	}

	return body
}

// finishEncode prepends the header (with length/count/size already set by
// the caller) to body, hashes the full image, and returns the bytes and key.
func finishEncode(h Header, body []byte, hash Hash) ([]byte, Key, error) {
	h.Magic = magic
	h.Length = uint32(headerSize + len(body))

	image := append(EncodeHeader(h), body...)

	digest, err := hash.SHA256(image)
	if err != nil {
		return nil, "", fmt.Errorf("cas: hash node: %w", err)
	}

	return image, KeyFromDigest(digest), nil
}

// Decode parses a node image into a structured [Node].
//
// Decode performs the structural parsing needed to extract fields
// (children, content-type, alignment-consumed data, names) but does not
// perform the validator's strict semantic checks (sorted/deduped names,
// zeroed padding, hash verification, and so on) — use [Validate] or
// [ValidateFull] for that. Decode does fail with [ErrShortBuffer],
// [ErrBadMagic], [ErrBadNodeType], and [ErrPascalOverflow] when the
// buffer cannot be structurally parsed at all.
func Decode(buf []byte) (Node, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Node{}, err
	}

	if int(h.Length) > len(buf) {
		return Node{}, ErrShortBuffer
	}

	buf = buf[:h.Length]

	kind := h.typeOf()
	if kind != KindFile && kind != KindSuccessor && kind != KindDict {
		return Node{}, ErrBadNodeType
	}

	childrenEnd := headerSize + int(h.Count)*childHashSize
	if childrenEnd > len(buf) {
		return Node{}, ErrShortBuffer
	}

	children := decodeChildren(buf[headerSize:childrenEnd], int(h.Count))

	node := Node{Kind: kind, Size: h.Size}
	if len(children) > 0 {
		node.Children = children
	}

	switch kind {
	case KindFile:
		slotSize := ctSlotSizeForClass(h.ctSlotClass())
		if slotSize < 0 {
			return Node{}, ErrCtSlotInvalid
		}

		if childrenEnd+slotSize > len(buf) {
			return Node{}, ErrShortBuffer
		}

		ctBytes := buf[childrenEnd : childrenEnd+slotSize]
		node.ContentType = trimContentType(ctBytes)
		node.Data = nonEmptyTail(buf[childrenEnd+slotSize:])

	case KindSuccessor:
		pad := alignPadding(childrenEnd, successorAlignment)
		dataStart := childrenEnd + pad

		if dataStart > len(buf) {
			return Node{}, ErrShortBuffer
		}

		node.Data = nonEmptyTail(buf[dataStart:])

	case KindDict:
		names, err := decodeDictNames(buf[childrenEnd:], int(h.Count))
		if err != nil {
			return Node{}, err
		}

		if len(names) > 0 {
			node.ChildNames = names
		}
	}

	return node, nil
}

func decodeChildren(buf []byte, count int) []Digest {
	if count == 0 {
		return nil
	}

	children := make([]Digest, count)
	for i := 0; i < count; i++ {
		copy(children[i][:], buf[i*childHashSize:(i+1)*childHashSize])
	}

	return children
}

func decodeDictNames(buf []byte, count int) ([]string, error) {
	names := make([]string, count)

	for i := 0; i < count; i++ {
		name, n, err := decodePascalString(buf)
		if err != nil {
			return nil, err
		}

		if !isValidUTF8Strict(name) {
			return nil, ErrInvalidUTF8Name
		}

		names[i] = name
		buf = buf[n:]
	}

	return names, nil
}

// trimContentType strips trailing zero padding from a content-type slot.
func trimContentType(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}

	return string(b[:n])
}

// nonEmptyTail returns nil instead of an empty non-nil slice, matching
// the "empty children are absent" convention for Data as well.
func nonEmptyTail(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	return b
}
