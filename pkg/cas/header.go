package cas

import "encoding/binary"

// magic is the fixed 4-byte value at the start of every node image:
// the ASCII bytes 'C', 'A', 'S', 0x01, read little-endian as a uint32.
const magic uint32 = 0x01534143

// Header is the fixed 32-byte little-endian node header described in
// spec.md §3. The header codec performs no semantic validation beyond
// magic and buffer length; reserved-bit coherence, slot-class rules, and
// length checks belong to the validator.
type Header struct {
	Magic  uint32
	Flags  uint32
	Size   uint64
	Count  uint32
	Length uint32
	// Reserved occupies header bytes 24-31 and must be zero on the wire.
	// EncodeHeader always writes zero here; DecodeHeader surfaces
	// non-zero values to the caller so the validator can reject them.
	Reserved [8]byte
}

// typeOf returns the node type encoded in flags bits 0-1.
func (h Header) typeOf() Kind {
	return Kind(h.Flags & 0x3)
}

// ctSlotClass returns the content-type slot class encoded in flags bits 2-3.
func (h Header) ctSlotClass() uint8 {
	return uint8((h.Flags >> 2) & 0x3)
}

// reservedFlagBits returns flags bits 4-31, which must always be zero.
func (h Header) reservedFlagBits() uint32 {
	return h.Flags &^ 0xF
}

// buildFlags packs a node kind and content-type slot class into a flags
// value. class is ignored (treated as 0) for non-file kinds by callers;
// buildFlags itself does not enforce that.
func buildFlags(kind Kind, ctClass uint8) uint32 {
	return uint32(kind) | uint32(ctClass)<<2
}

// EncodeHeader serializes h to a 32-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)

	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], h.Size)
	binary.LittleEndian.PutUint32(buf[16:20], h.Count)
	binary.LittleEndian.PutUint32(buf[20:24], h.Length)
	copy(buf[24:32], h.Reserved[:])

	return buf
}

// DecodeHeader parses the first 32 bytes of buf into a Header.
//
// Fails with [ErrShortBuffer] if buf is shorter than 32 bytes, or
// [ErrBadMagic] if the magic field does not match. No other validation is
// performed here; see Validate for the full invariant checks.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, ErrShortBuffer
	}

	h := Header{
		Magic:  binary.LittleEndian.Uint32(buf[0:4]),
		Flags:  binary.LittleEndian.Uint32(buf[4:8]),
		Size:   binary.LittleEndian.Uint64(buf[8:16]),
		Count:  binary.LittleEndian.Uint32(buf[16:20]),
		Length: binary.LittleEndian.Uint32(buf[20:24]),
	}
	copy(h.Reserved[:], buf[24:32])

	if h.Magic != magic {
		return Header{}, ErrBadMagic
	}

	return h, nil
}
