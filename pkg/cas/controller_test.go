package cas

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(nodeLimit uint32) (*Controller, *MemStore) {
	store := NewMemStore()
	return NewController(store, SHA256{}, nodeLimit), store
}

func Test_WriteFile_ReadFile_RoundTrips_When_DataFitsInSingleLeaf(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	data := []byte("hello")

	res, err := ctl.WriteFile(ctx, data, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len(), "single-leaf file should store exactly one node")

	got, complete, err := ctl.ReadFile(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, data, got)
}

func Test_WriteFile_ReadFile_RoundTrips_When_DataIsEmpty(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	res, err := ctl.WriteFile(ctx, nil, "")
	require.NoError(t, err)

	got, complete, err := ctl.ReadFile(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Empty(t, got)
}

func Test_WriteFile_ReadFile_RoundTrips_When_DataRequiresSplitting(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(1024)
	ctx := context.Background()

	data := make([]byte, 2048)
	for i := range data {
		data[i] = byte(i)
	}

	res, err := ctl.WriteFile(ctx, data, "application/octet-stream")
	require.NoError(t, err)
	assert.EqualValues(t, len(data), res.Size)
	assert.Greaterf(t, store.Len(), 1, "expected multiple stored nodes for a split file, got %d", store.Len())

	got, complete, err := ctl.ReadFile(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, data, got)
}

func Test_WriteFile_ReadFile_RoundTrips_When_NodeLimitIsMinimumAndDataIsTripleCapacity(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(MinNodeLimit)
	ctx := context.Background()

	rootCap := uint64(MinNodeLimit) - headerSize - maxContentTypeSlot
	data := make([]byte, 3*rootCap)
	for i := range data {
		data[i] = byte(i % 251)
	}

	res, err := ctl.WriteFile(ctx, data, "")
	require.NoError(t, err)

	got, complete, err := ctl.ReadFile(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, data, got)
}

func Test_WriteFile_IsDeterministic_When_CalledTwiceWithSameInput(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(256)
	ctx := context.Background()

	data := bytes.Repeat([]byte("payload"), 100)

	r1, err := ctl.WriteFile(ctx, data, "text/x-test")
	require.NoError(t, err)

	r2, err := ctl.WriteFile(ctx, data, "text/x-test")
	require.NoError(t, err)

	assert.Equal(t, r1.Key, r2.Key, "same content should produce the same key")
}

func Test_ReadFile_ReturnsIncomplete_When_DescendantNodeIsMissing(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(256)
	ctx := context.Background()

	data := bytes.Repeat([]byte("x"), 1000)

	res, err := ctl.WriteFile(ctx, data, "")
	require.NoError(t, err)

	nodes, err := ctl.GetTree(ctx, res.Key, 0)
	require.NoError(t, err)
	info := nodes[res.Key]
	require.NotEmpty(t, info.Children, "expected a split file with children")

	// Simulate corruption/GC by deleting the store's underlying entry for
	// one child so it resolves to ErrNodeNotFound.
	store.mu.Lock()
	delete(store.nodes, info.Children[len(info.Children)-1])
	store.mu.Unlock()

	got, complete, err := ctl.ReadFile(ctx, res.Key)
	require.NoError(t, err)
	assert.False(t, complete, "expected incomplete read after removing a descendant")
	assert.NotEmpty(t, got)
	assert.Less(t, len(got), len(data))
}

func Test_ReadFile_ReturnsErrWrongKind_When_KeyIsADict(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	_, _, err := ctl.ReadFile(ctx, EmptyDictKey())
	require.ErrorIs(t, err, ErrWrongKind)
}

func Test_MakeDict_EmptyEntries_ReturnsWellKnownKey(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(DefaultNodeLimit)

	key, err := ctl.MakeDict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, EmptyDictKey(), key)

	has, err := store.Has(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, has, "empty dict must be resolvable like any other node")
}

func Test_MakeDict_SumsChildSizes_When_GivenMultipleFiles(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	a, err := ctl.WriteFile(ctx, []byte("aaaa"), "")
	require.NoError(t, err)

	b, err := ctl.WriteFile(ctx, []byte("bbbbbbbb"), "")
	require.NoError(t, err)

	dictKey, err := ctl.MakeDict(ctx, []Entry{{Name: "a.txt", Key: a.Key}, {Name: "b.txt", Key: b.Key}})
	require.NoError(t, err)

	nodes, err := ctl.GetTree(ctx, dictKey, 0)
	require.NoError(t, err)
	info := nodes[dictKey]
	assert.Equal(t, a.Size+b.Size, info.Size)
	assert.Len(t, info.Children, 2)
}

func Test_GetTree_VisitsBreadthFirst_And_StopsAtLimit(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(256)
	ctx := context.Background()

	data := bytes.Repeat([]byte("y"), 2000)

	res, err := ctl.WriteFile(ctx, data, "")
	require.NoError(t, err)

	full, err := ctl.GetTree(ctx, res.Key, 0)
	require.NoError(t, err)
	require.Greater(t, len(full), 2, "expected a multi-level tree for this size/node_limit")

	limited, err := ctl.GetTree(ctx, res.Key, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2, "expected the traversal to stop once limit nodes were recorded")

	rootInfo, ok := limited[res.Key]
	require.True(t, ok, "root must always be the first node recorded")
	assert.NotEmpty(t, rootInfo.Children)
}

func Test_GetTree_VisitsEachKeyOnce_When_SameChildAppearsTwice(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	leaf, err := ctl.WriteFile(ctx, []byte("shared"), "")
	require.NoError(t, err)

	leafDigest, err := DigestFromKey(leaf.Key)
	require.NoError(t, err)

	buf, key, err := EncodeDict(
		[]string{"a.txt", "b.txt"},
		[]Digest{leafDigest, leafDigest},
		[]uint64{leaf.Size, leaf.Size},
		SHA256{},
	)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, key, buf))

	nodes, err := ctl.GetTree(ctx, key, 0)
	require.NoError(t, err)
	assert.Len(t, nodes, 2, "shared child must appear once despite being referenced twice")
}

func Test_ReadFile_EmitsInteriorNodeData_BeforeDescendingIntoChildren(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	leafData := []byte("-leaf")
	leafBuf, leafKey, err := EncodeSuccessor(leafData, nil, uint64(len(leafData)), SHA256{})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, leafKey, leafBuf))

	leafDigest, err := DigestFromKey(leafKey)
	require.NoError(t, err)

	interiorData := []byte("root-")
	rootBuf, rootKey, err := EncodeFile(
		interiorData, "", []Digest{leafDigest}, uint64(len(interiorData)+len(leafData)), SHA256{},
	)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, rootKey, rootBuf))

	got, complete, err := ctl.ReadFile(ctx, rootKey)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, "root--leaf", string(got), "interior node's own data must be emitted before its children")
}

func Test_OpenFileStream_EmitsInteriorNodeData_BeforeDescendingIntoChildren(t *testing.T) {
	t.Parallel()

	ctl, store := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	leafData := []byte("-leaf")
	leafBuf, leafKey, err := EncodeSuccessor(leafData, nil, uint64(len(leafData)), SHA256{})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, leafKey, leafBuf))

	leafDigest, err := DigestFromKey(leafKey)
	require.NoError(t, err)

	interiorData := []byte("root-")
	rootBuf, rootKey, err := EncodeFile(
		interiorData, "", []Digest{leafDigest}, uint64(len(interiorData)+len(leafData)), SHA256{},
	)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, rootKey, rootBuf))

	stream, err := ctl.OpenFileStream(ctx, rootKey)
	require.NoError(t, err)
	defer stream.Close()

	streamed, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "root--leaf", string(streamed))
}

func Test_OpenFileStream_YieldsSameBytesAsReadFile_When_DataIsSplit(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(512)
	ctx := context.Background()

	data := bytes.Repeat([]byte("stream-me"), 500)

	res, err := ctl.WriteFile(ctx, data, "")
	require.NoError(t, err)

	stream, err := ctl.OpenFileStream(ctx, res.Key)
	require.NoError(t, err)
	defer stream.Close()

	streamed, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, data, streamed)
}

func Test_Has_ReflectsStorageState(t *testing.T) {
	t.Parallel()

	ctl, _ := newTestController(DefaultNodeLimit)
	ctx := context.Background()

	res, err := ctl.WriteFile(ctx, []byte("present"), "")
	require.NoError(t, err)

	has, err := ctl.Has(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = ctl.Has(ctx, EmptyDictKey())
	require.NoError(t, err)
	assert.False(t, has, "expected Has to report false for a key never written to this store")
}
