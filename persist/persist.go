// Package persist mounts a single persistent directory into a hosted
// module's filesystem.
//
// Under a process-based host the mount maps straight onto a host directory
// next to the module file, so every write is durable as soon as the host
// filesystem says so. Under a browser host the mount is backed by a
// [LocalStore]: a working tree that is loaded from a durable origin-keyed
// store before the module starts, persisted automatically after changes, and
// flushed once more, best-effort, when the host unloads.
//
// Either way the module sees the same path, [MountPath].
package persist

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MountPath is the guest path of the persistent mount.
const MountPath = "/persist"

// StoreKind identifies a backing store.
type StoreKind int

const (
	// HostDirectory maps the mount onto a directory next to the module.
	HostDirectory StoreKind = iota
	// BrowserLocalStore keeps a working tree mirrored to an origin-keyed
	// durable store.
	BrowserLocalStore
)

func (k StoreKind) String() string {
	switch k {
	case HostDirectory:
		return "host"
	case BrowserLocalStore:
		return "local"
	default:
		return "unknown"
	}
}

// ParseStoreKind parses "host" or "local".
func ParseStoreKind(s string) (StoreKind, error) {
	switch strings.ToLower(s) {
	case "host", "hostdir", "nodefs":
		return HostDirectory, nil
	case "local", "browser", "idbfs":
		return BrowserLocalStore, nil
	default:
		return 0, fmt.Errorf("unknown store kind %q (expected host or local)", s)
	}
}

// State is the readiness of a mount.
type State int

const (
	// Initializing means the initial load from the durable store is still
	// running. Only a BrowserLocalStore is ever in this state.
	Initializing State = iota
	// Ready means the mount holds its initial contents.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "initializing"
}

// Store is a backing store for the persistent mount.
type Store interface {
	Kind() StoreKind
	// Attach prepares the store for mounting.
	Attach(ctx context.Context) error
	// Ready reports whether the store holds its initial contents.
	Ready() bool
	// Flush makes the current contents durable.
	Flush(ctx context.Context) error
	// Root is the host directory the guest path maps onto.
	Root() string
	Close() error
}

// MountPoint is the single persistent mount.
type MountPoint struct {
	Path  string
	Store Store
}

// State reports the readiness of the mount.
func (m *MountPoint) State() State {
	if m.Store.Ready() {
		return Ready
	}
	return Initializing
}

var (
	ErrNotAbsolute = errors.New("path must be absolute")
	ErrNoDirectory = errors.New("no such directory")
	ErrMountBusy   = errors.New("mount point already in use")
)

// FS is the part of the module's virtual filesystem the mount manager uses.
type FS interface {
	Mkdir(path string) error
	Mount(path string, store Store) error
}

// Mount describes one guest path mapped onto a host directory.
type Mount struct {
	GuestPath string
	HostDir   string
}

// MountTable is an FS that records directories and mounts for the executor
// to translate into its runtime's filesystem configuration.
type MountTable struct {
	mu     sync.Mutex
	dirs   map[string]bool
	mounts map[string]Store
}

func NewMountTable() *MountTable {
	return &MountTable{
		dirs:   map[string]bool{"/": true},
		mounts: make(map[string]Store),
	}
}

func cleanGuestPath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%q: %w", p, ErrNotAbsolute)
	}
	return path.Clean(p), nil
}

// Mkdir creates a directory entry. Creating an existing directory succeeds.
func (t *MountTable) Mkdir(p string) error {
	p, err := cleanGuestPath(p)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirs[path.Dir(p)] {
		return fmt.Errorf("mkdir %s: %w", path.Dir(p), ErrNoDirectory)
	}
	t.dirs[p] = true
	return nil
}

// Mount attaches store at p. Mounting the same store, or another store of
// the same kind over the same root, again is a no-op.
func (t *MountTable) Mount(p string, store Store) error {
	p, err := cleanGuestPath(p)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirs[p] {
		return fmt.Errorf("mount %s: %w", p, ErrNoDirectory)
	}
	if existing, ok := t.mounts[p]; ok {
		if existing == store || (existing.Kind() == store.Kind() && existing.Root() == store.Root()) {
			return nil
		}
		return fmt.Errorf("mount %s: %w", p, ErrMountBusy)
	}
	t.mounts[p] = store
	return nil
}

// Mounts returns the current mounts sorted by guest path.
func (t *MountTable) Mounts() []Mount {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Mount, 0, len(t.mounts))
	for p, s := range t.mounts {
		out = append(out, Mount{GuestPath: p, HostDir: s.Root()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuestPath < out[j].GuestPath })
	return out
}
