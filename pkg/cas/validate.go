package cas

import (
	"context"
	"fmt"
)

// Validate performs structural-only validation of a node image: every
// check that can be made from the bytes alone, with no storage access.
// This is checks 1-9 of spec.md §4.4's twelve ordered checks; it does not
// verify the declared hash or resolve children against a backend.
//
// Checks run in a fixed order and Validate returns on the first failure,
// so error precedence is deterministic across implementations.
func Validate(buf []byte) error {
	h, err := DecodeHeader(buf)
	if err != nil {
		return err
	}

	// check 1: length matches buffer.
	if int(h.Length) != len(buf) {
		return ErrLengthMismatch
	}

	// check 2: reserved bits/bytes are zero.
	if h.reservedFlagBits() != 0 || !allZero(h.Reserved[:]) {
		return ErrReservedNonZero
	}

	// check 3: node type is one of the three valid kinds.
	kind := h.typeOf()
	if kind != KindFile && kind != KindSuccessor && kind != KindDict {
		return ErrBadNodeType
	}

	childrenEnd := headerSize + int(h.Count)*childHashSize
	if childrenEnd > len(buf) {
		return ErrShortBuffer
	}

	switch kind {
	case KindFile:
		return validateFileBody(h, buf, childrenEnd)
	case KindSuccessor:
		return validateSuccessorBody(h, buf, childrenEnd)
	case KindDict:
		return validateDictBody(h, buf, childrenEnd)
	}

	return nil
}

func validateFileBody(h Header, buf []byte, childrenEnd int) error {
	// check 4: content-type slot class is structurally valid.
	slotSize := ctSlotSizeForClass(h.ctSlotClass())
	if slotSize < 0 {
		return ErrCtSlotInvalid
	}

	if childrenEnd+slotSize > len(buf) {
		return ErrShortBuffer
	}

	ctBytes := buf[childrenEnd : childrenEnd+slotSize]

	// The content-type ends at the first zero byte of the slot; every byte
	// after it is padding.
	ctLen := 0
	for ctLen < len(ctBytes) && ctBytes[ctLen] != 0 {
		ctLen++
	}

	// check 5: content-type slot is the minimal class for its length.
	wantSlot, err := contentTypeSlotSize(ctLen)
	if err != nil {
		return err
	}
	if wantSlot != slotSize {
		return ErrCtSlotInvalid
	}

	// check 6: content-type bytes (before the first zero byte) are printable ASCII.
	if !isPrintableASCII(ctBytes[:ctLen]) {
		return ErrCtCharInvalid
	}

	// check 6b: padding tail of the slot is zero.
	if !allZero(ctBytes[ctLen:]) {
		return ErrCtPaddingNonZero
	}

	data := buf[childrenEnd+slotSize:]

	// check 8: leaves (no children) must have size == len(data).
	if h.Count == 0 && h.Size != uint64(len(data)) {
		return ErrLeafSizeMismatch
	}

	return nil
}

func validateSuccessorBody(h Header, buf []byte, childrenEnd int) error {
	// s-nodes never carry a content-type slot: class must be 0.
	if h.ctSlotClass() != 0 {
		return ErrCtSlotInvalid
	}

	// check 7: alignment padding between children and data is all zero.
	pad := alignPadding(childrenEnd, successorAlignment)
	dataStart := childrenEnd + pad

	if dataStart > len(buf) {
		return ErrShortBuffer
	}

	if !allZero(buf[childrenEnd:dataStart]) {
		return ErrAlignmentNonZero
	}

	data := buf[dataStart:]

	// check 8: leaves (no children) must have size == len(data).
	if h.Count == 0 && h.Size != uint64(len(data)) {
		return ErrLeafSizeMismatch
	}

	return nil
}

func validateDictBody(h Header, buf []byte, childrenEnd int) error {
	if h.ctSlotClass() != 0 {
		return ErrCtSlotInvalid
	}

	names, err := decodeDictNames(buf[childrenEnd:], int(h.Count))
	if err != nil {
		return err
	}

	// check 9a: every name is valid UTF-8 (already enforced by decodeDictNames).
	for _, n := range names {
		if !isValidUTF8Strict(n) {
			return ErrInvalidUTF8Name
		}
	}

	// check 9b: names are strictly ascending (implies no duplicates).
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			return ErrDuplicateName
		}
		if names[i] < names[i-1] {
			return ErrNamesUnsorted
		}
	}

	return nil
}

// Backend bundles the storage and hash dependencies ValidateFull needs to
// resolve and reverify a node against its declared key.
type Backend interface {
	Storage
	Hash
}

// ValidateFull performs full validation of key's node against backend:
// structural validation (Validate), hash reverification against key, and
// (checks 10-12) resolution and size-consistency of declared children.
//
// For a d-node, check 12 verifies header.size equals the sum of the
// children's own declared sizes; for a missing child, ValidateFull
// returns a *MissingChildrenError listing every unresolved key (not just
// the first) so a caller can report the complete set of damage in one
// pass.
func ValidateFull(ctx context.Context, backend Backend, key Key) error {
	buf, err := backend.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := Validate(buf); err != nil {
		return err
	}

	// check 10: recomputed hash matches the declared key.
	digest, err := backend.SHA256(buf)
	if err != nil {
		return fmt.Errorf("cas: hash node: %w", err)
	}
	if KeyFromDigest(digest) != key {
		return ErrHashMismatch
	}

	node, err := Decode(buf)
	if err != nil {
		return err
	}
	if len(node.Children) == 0 {
		return nil
	}

	// check 11: every declared child key resolves.
	var missing []Key
	childSizes := make([]uint64, 0, len(node.Children))

	for _, c := range node.Children {
		childKey := KeyFromDigest(c)

		childBuf, err := backend.Get(ctx, childKey)
		if err != nil {
			missing = append(missing, childKey)
			continue
		}

		childNode, err := Decode(childBuf)
		if err != nil {
			missing = append(missing, childKey)
			continue
		}

		childSizes = append(childSizes, childNode.Size)
	}

	if len(missing) > 0 {
		return &MissingChildrenError{Keys: missing}
	}

	// check 12: dict size equals the sum of children's sizes.
	if node.Kind == KindDict {
		var sum uint64
		for _, s := range childSizes {
			sum += s
		}
		if sum != node.Size {
			return ErrDictSizeMismatch
		}
	}

	return nil
}
