package cas

import (
	"context"
	"errors"
	"testing"
)

func Test_Validate_AcceptsFreshlyEncodedNodes_OfEveryKind(t *testing.T) {
	t.Parallel()

	fileBuf, _, err := EncodeFile([]byte("data"), "text/plain", nil, 4, SHA256{})
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	succBuf, _, err := EncodeSuccessor([]byte("data"), []Digest{{1}}, 4, SHA256{})
	if err != nil {
		t.Fatalf("EncodeSuccessor: %v", err)
	}

	dictBuf, _, err := EncodeDict([]string{"a"}, []Digest{{1}}, []uint64{4}, SHA256{})
	if err != nil {
		t.Fatalf("EncodeDict: %v", err)
	}

	for name, buf := range map[string][]byte{"file": fileBuf, "successor": succBuf, "dict": dictBuf} {
		if err := Validate(buf); err != nil {
			t.Errorf("Validate(%s): %v", name, err)
		}
	}
}

func Test_Validate_ReturnsErrLengthMismatch_When_HeaderLengthWrong(t *testing.T) {
	t.Parallel()

	buf, _, err := EncodeFile([]byte("data"), "", nil, 4, SHA256{})
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	corrupt := append(buf, 0xFF) // buffer now longer than header.length claims

	if err := Validate(corrupt); err != ErrLengthMismatch {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
}

func Test_Validate_ReturnsErrLeafSizeMismatch_When_SizeDoesNotMatchDataLength(t *testing.T) {
	t.Parallel()

	h := Header{Magic: magic, Flags: buildFlags(KindFile, 0), Size: 999, Count: 0}
	body := []byte("data")
	h.Length = uint32(headerSize + len(body))
	buf := append(EncodeHeader(h), body...)

	if err := Validate(buf); err != ErrLeafSizeMismatch {
		t.Fatalf("got %v, want ErrLeafSizeMismatch", err)
	}
}

func Test_Validate_ReturnsErrCtPaddingNonZero_When_SlotTailIsDirty(t *testing.T) {
	t.Parallel()

	buf, _, err := EncodeFile([]byte("data"), "text/plain", nil, 4, SHA256{})
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	// Dirty the last byte of the 16-byte content-type slot, which should
	// still be zero padding for a 10-char content type.
	buf[headerSize+15] = 'x'

	if err := Validate(buf); err != ErrCtPaddingNonZero {
		t.Fatalf("got %v, want ErrCtPaddingNonZero", err)
	}
}

func Test_Validate_ReturnsErrNamesUnsorted_When_DictNamesOutOfOrder(t *testing.T) {
	t.Parallel()

	h := Header{Magic: magic, Flags: buildFlags(KindDict, 0), Count: 2}
	body := append([]byte{}, make([]byte, childHashSize*2)...)
	body = append(body, encodePascalString("zeta")...)
	body = append(body, encodePascalString("alpha")...)
	h.Length = uint32(headerSize + len(body))

	buf := append(EncodeHeader(h), body...)

	if err := Validate(buf); err != ErrNamesUnsorted {
		t.Fatalf("got %v, want ErrNamesUnsorted", err)
	}
}

func Test_ValidateFull_ReturnsMissingChildrenError_When_ChildAbsentFromStorage(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	hash := SHA256{}
	ctx := context.Background()

	missingDigest := Digest{0xAB}
	buf, key, err := EncodeSuccessor(nil, []Digest{missingDigest}, 10, hash)
	if err != nil {
		t.Fatalf("EncodeSuccessor: %v", err)
	}

	if err := store.Put(ctx, key, buf); err != nil {
		t.Fatalf("Put: %v", err)
	}

	err = ValidateFull(ctx, backendOf(store, hash), key)

	var missing *MissingChildrenError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want *MissingChildrenError", err)
	}
	if len(missing.Keys) != 1 || missing.Keys[0] != KeyFromDigest(missingDigest) {
		t.Errorf("unexpected missing keys: %v", missing.Keys)
	}
}

func Test_ValidateFull_ReturnsErrHashMismatch_When_StoredBytesDoNotMatchKey(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	hash := SHA256{}
	ctx := context.Background()

	buf, key, err := EncodeFile([]byte("data"), "", nil, 4, hash)
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	tampered := append([]byte{}, buf...)
	tampered[headerSize] ^= 0xFF // flip a data byte, keeping length/structure valid

	if err := store.Put(ctx, key, tampered); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := ValidateFull(ctx, backendOf(store, hash), key); err != ErrHashMismatch {
		t.Fatalf("got %v, want ErrHashMismatch", err)
	}
}

// backendOf adapts a Storage+Hash pair to the Backend interface for tests.
func backendOf(s Storage, h Hash) Backend {
	return struct {
		Storage
		Hash
	}{s, h}
}
