package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// HostDirStore maps the mount directly onto a host directory. Writes pass
// straight through, so it is ready as soon as it is attached.
type HostDirStore struct {
	dir      string
	attached atomic.Bool
}

// NewHostDirStore returns a store over dir. Nothing is created until Attach.
func NewHostDirStore(dir string) *HostDirStore {
	return &HostDirStore{dir: dir}
}

func (s *HostDirStore) Kind() StoreKind { return HostDirectory }

// Attach creates the directory and any missing parents.
func (s *HostDirStore) Attach(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	s.attached.Store(true)
	return nil
}

// The host directory is the durable copy: it is ready once attached and a
// flush has nothing to do.
func (s *HostDirStore) Ready() bool                     { return s.attached.Load() }
func (s *HostDirStore) Flush(ctx context.Context) error { return nil }
func (s *HostDirStore) Root() string                    { return s.dir }
func (s *HostDirStore) Close() error                    { return nil }

// DefaultDataDirName derives the data directory name from the module file:
// "engine.wasm" becomes "engine-data".
func DefaultDataDirName(location string) string {
	base := filepath.Base(location)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-data"
}

// DataDir returns the data directory next to the module at location.
func DataDir(location string) string {
	return filepath.Join(filepath.Dir(location), DefaultDataDirName(location))
}
