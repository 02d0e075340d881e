// Package file implements bag snapshot persistence on the local filesystem,
// one JSON file per session key. It is intended for development and
// single-node deployments without a database.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/vetrina/storefront/internal/bag"
)

var _ bag.Snapshots = (*BagSnapshotStore)(nil)

// BagSnapshotStore stores one JSON file per session key under a directory.
type BagSnapshotStore struct {
	dir string
}

// NewBagSnapshotStore creates the directory if needed and returns the store.
func NewBagSnapshotStore(dir string) (*BagSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}
	return &BagSnapshotStore{dir: dir}, nil
}

// path maps a session key to its snapshot file. Keys double as file names,
// so a key whose joined path would land outside the snapshot directory is
// refused here regardless of what the caller validated.
func (s *BagSnapshotStore) path(key string) (string, error) {
	p := filepath.Join(s.dir, key+".json")
	if filepath.Dir(p) != filepath.Clean(s.dir) {
		return "", errors.Errorf("session key %q escapes snapshot dir", key)
	}
	return p, nil
}

// Load reads the persisted lines for a session key.
func (s *BagSnapshotStore) Load(_ context.Context, key string) ([]bag.Line, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bag.ErrNoSnapshot
		}
		return nil, errors.Wrapf(err, "read snapshot %q", key)
	}

	var lines []bag.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %q", key)
	}
	return lines, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *BagSnapshotStore) Save(_ context.Context, key string, lines []bag.Line) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %q", key)
	}

	p, err := s.path(key)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot %q", key)
	}
	if err := os.Rename(tmp, p); err != nil {
		return errors.Wrapf(err, "rename snapshot %q", key)
	}
	return nil
}

// Delete removes the snapshot file. A missing file is not an error.
func (s *BagSnapshotStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete snapshot %q", key)
	}
	return nil
}
