package casfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/casnode/cas/pkg/cas"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755

	// shardWidth is the number of leading hex characters of a digest used
	// for each of the two directory levels, so the root and each
	// first-level directory hold at most 16^shardWidth subdirectories. The
	// second-level directories hold the node files themselves, with no
	// fixed bound.
	shardWidth = 2
)

// DirStore is a durable [cas.Storage] rooted at a directory on disk.
// Node images are stored one-per-file under a two-level hex-sharded
// path derived from the key's digest, e.g. for key
// "sha256:ab12...":
//
//	<root>/ab/12/sha256-ab12....node
//
// Writes go through [atomic.WriteFile], so a crash mid-write never
// leaves a partially-written node visible to readers — the temp file is
// either renamed into place whole or not at all.
type DirStore struct {
	root string
}

// NewDirStore returns a DirStore rooted at dir, creating it if absent.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("casfs: create root dir: %w", err)
	}

	return &DirStore{root: dir}, nil
}

func (d *DirStore) pathFor(key cas.Key) (string, error) {
	digest, err := cas.DigestFromKey(key)
	if err != nil {
		return "", err
	}

	hexDigest := fmt.Sprintf("%x", digest[:])
	shard1, shard2 := hexDigest[:shardWidth], hexDigest[shardWidth:2*shardWidth]
	filename := strings.ReplaceAll(string(key), ":", "-") + ".node"

	return filepath.Join(d.root, shard1, shard2, filename), nil
}

func (d *DirStore) Get(_ context.Context, key cas.Key) ([]byte, error) {
	path, err := d.pathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cas.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("casfs: read %s: %w", path, err)
	}

	return data, nil
}

func (d *DirStore) Put(_ context.Context, key cas.Key, data []byte) error {
	path, err := d.pathFor(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil // content-idempotent: already present.
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("casfs: create shard dir: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("casfs: atomic write %s: %w", path, err)
	}

	if err := os.Chmod(path, filePerm); err != nil {
		return fmt.Errorf("casfs: chmod %s: %w", path, err)
	}

	return nil
}

func (d *DirStore) Has(_ context.Context, key cas.Key) (bool, error) {
	path, err := d.pathFor(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("casfs: stat %s: %w", path, err)
	}

	return true, nil
}
