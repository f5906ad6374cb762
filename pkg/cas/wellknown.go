package cas

import "sync"

var (
	emptyDictOnce  sync.Once
	emptyDictBytes []byte
	emptyDictKey   Key
)

// EmptyDictKey returns the key of the canonical empty directory node:
// zero entries, zero size. Because node identity is pure content,
// every empty directory anywhere in the system collapses to this one
// key — computed once and cached, not recomputed per call.
func EmptyDictKey() Key {
	initEmptyDict()
	return emptyDictKey
}

// EmptyDictBytes returns the encoded image of the canonical empty
// directory node. The returned slice must not be mutated by callers.
func EmptyDictBytes() []byte {
	initEmptyDict()
	return emptyDictBytes
}

func initEmptyDict() {
	emptyDictOnce.Do(func() {
		buf, key, err := EncodeDict(nil, nil, nil, SHA256{})
		if err != nil {
			panic("cas: failed to encode well-known empty dict: " + err.Error())
		}

		emptyDictBytes = buf
		emptyDictKey = key
	})
}
