package cas

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the header codec, node codec, validator,
// topology planner, and controller.
//
// Callers should use [errors.Is] to check error types; [MissingChildrenError]
// carries structured data and should be unwrapped with [errors.As].
var (
	// ErrShortBuffer means the input is shorter than 32 bytes, or shorter
	// than header.length.
	ErrShortBuffer = errors.New("cas: short buffer")

	// ErrBadMagic means the header magic does not match.
	ErrBadMagic = errors.New("cas: bad magic")

	// ErrBadNodeType means flags bits 0-1 decode to the invalid type 0b00.
	ErrBadNodeType = errors.New("cas: bad node type")

	// ErrReservedNonZero means reserved flag bits or reserved header
	// bytes are non-zero.
	ErrReservedNonZero = errors.New("cas: reserved bits or bytes non-zero")

	// ErrLengthMismatch means header.length does not equal the buffer length.
	ErrLengthMismatch = errors.New("cas: length mismatch")

	// ErrCtSlotInvalid means a d-node or s-node has a non-zero content-type
	// slot class, or an f-node's slot is not the minimal class for its
	// content-type length.
	ErrCtSlotInvalid = errors.New("cas: content-type slot invalid")

	// ErrCtCharInvalid means the content-type slot contains a byte outside
	// printable ASCII (0x20-0x7E).
	ErrCtCharInvalid = errors.New("cas: content-type contains non-printable byte")

	// ErrCtPaddingNonZero means unused tail bytes of the content-type slot
	// are non-zero.
	ErrCtPaddingNonZero = errors.New("cas: content-type padding non-zero")

	// ErrAlignmentNonZero means an s-node's alignment padding between
	// children and data is not all zero.
	ErrAlignmentNonZero = errors.New("cas: alignment padding non-zero")

	// ErrLeafSizeMismatch means a leaf's header.size does not equal its
	// data length.
	ErrLeafSizeMismatch = errors.New("cas: leaf size mismatch")

	// ErrInvalidUTF8Name means a d-node entry name does not decode as
	// valid UTF-8.
	ErrInvalidUTF8Name = errors.New("cas: invalid utf8 name")

	// ErrNamesUnsorted means d-node entry names are not strictly ascending
	// in UTF-8 byte order.
	ErrNamesUnsorted = errors.New("cas: names unsorted")

	// ErrDuplicateName means two d-node entries share the same name.
	ErrDuplicateName = errors.New("cas: duplicate name")

	// ErrPascalOverflow means a Pascal string claims more bytes than the
	// buffer holds.
	ErrPascalOverflow = errors.New("cas: pascal string overflow")

	// ErrHashMismatch means the recomputed digest does not equal the
	// declared key.
	ErrHashMismatch = errors.New("cas: hash mismatch")

	// ErrDictSizeMismatch means a d-node's header.size does not equal the
	// sum of its children's sizes.
	ErrDictSizeMismatch = errors.New("cas: dict size mismatch")

	// ErrCountMismatch means the encoder received parallel arrays of
	// mismatched length.
	ErrCountMismatch = errors.New("cas: count mismatch")

	// ErrNodeLimitTooSmall means the topology planner cannot satisfy the
	// minimum layout constraint for the given node_limit. See [MinNodeLimit].
	ErrNodeLimitTooSmall = errors.New("cas: node_limit too small")

	// ErrInvalidKeyFormat means a key string does not match
	// "sha256:" + 64 lowercase hex characters.
	ErrInvalidKeyFormat = errors.New("cas: invalid key format")

	// ErrContentTypeTooLong means a content-type string exceeds
	// [MaxContentTypeLength].
	ErrContentTypeTooLong = errors.New("cas: content-type too long")

	// ErrNodeNotFound means the requested key is absent from storage.
	ErrNodeNotFound = errors.New("cas: node not found")

	// ErrWrongKind means a node was found but was not the expected kind
	// for the requested operation (for example, a dict key passed to
	// ReadFile).
	ErrWrongKind = errors.New("cas: wrong node kind")
)

// MissingChildrenError reports that one or more child keys referenced by
// a node could not be resolved against a storage backend during full
// validation.
type MissingChildrenError struct {
	Keys []Key
}

func (e *MissingChildrenError) Error() string {
	names := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		names[i] = string(k)
	}

	return fmt.Sprintf("cas: missing children: %s", strings.Join(names, ", "))
}

// Is reports whether target is a *MissingChildrenError, so callers can
// write errors.Is(err, &cas.MissingChildrenError{}) without caring about
// the Keys payload.
func (e *MissingChildrenError) Is(target error) bool {
	_, ok := target.(*MissingChildrenError)
	return ok
}
