package cas

import "crypto/sha256"

// SHA256 is the stdlib-backed [Hash] implementation every key in this
// package is defined against (spec.md §3's key format is literally
// "sha256:" plus a SHA-256 hex digest, so there is no ecosystem library
// choice to make here — crypto/sha256 IS the algorithm, not a
// replaceable implementation of it).
type SHA256 struct{}

func (SHA256) SHA256(data []byte) (Digest, error) {
	return sha256.Sum256(data), nil
}
