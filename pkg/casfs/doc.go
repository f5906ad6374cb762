// Package casfs implements a durable, directory-backed [cas.Storage] for
// package cas: every node is written to its own file, atomically, under
// a two-level hex-sharded directory tree keyed by the node's own digest.
//
// Sharding keeps any single directory from accumulating millions of
// entries as a store grows; durability comes from
// [github.com/natefinch/atomic], the same temp-file-then-rename approach
// the in-memory store's production sibling in the reference material
// uses for its own on-disk writes.
package casfs
