package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/modconf"
	"github.com/rs/zerolog"
)

// SyncDependency is the run dependency held while a local store loads.
const SyncDependency = "persist-sync"

// ErrNoLocation is returned when no data directory is configured and the
// module's location is unknown.
var ErrNoLocation = errors.New("module location unknown, cannot derive data directory")

type options struct {
	kind        *StoreKind
	dataDir     string
	durable     Durable
	stagingDir  string
	autoPersist bool
	debounce    time.Duration
}

// Option configures a Manager.
type Option func(*options)

// WithStoreKind forces a backing store instead of selecting one from the
// environment.
func WithStoreKind(kind StoreKind) Option {
	return func(o *options) { o.kind = &kind }
}

// WithDataDir overrides the host data directory.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

// WithDurable sets the durable backend of a local store.
func WithDurable(d Durable) Option {
	return func(o *options) { o.durable = d }
}

// WithStagingDir sets the working tree of a local store.
func WithStagingDir(dir string) Option {
	return func(o *options) { o.stagingDir = dir }
}

// WithLocalAutoPersist toggles auto-persist for a local store.
func WithLocalAutoPersist(enabled bool) Option {
	return func(o *options) { o.autoPersist = enabled }
}

// WithLocalDebounce sets the auto-persist debounce of a local store.
func WithLocalDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// Manager creates and owns the persistent mount.
type Manager struct {
	env    *hostenv.Environment
	cfg    *modconf.Config
	fs     FS
	opts   options
	logger zerolog.Logger

	mu         sync.Mutex
	mount      atomic.Pointer[MountPoint]
	ownStaging string
}

func NewManager(env *hostenv.Environment, cfg *modconf.Config, fsys FS, opts ...Option) *Manager {
	o := options{autoPersist: true, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		env:    env,
		cfg:    cfg,
		fs:     fsys,
		opts:   o,
		logger: env.Logger().With().Str("component", "persist").Logger(),
	}
}

// Kind returns the backing store the manager will use.
func (m *Manager) Kind() StoreKind {
	if m.opts.kind != nil {
		return *m.opts.kind
	}
	if m.env.IsBrowserLike() {
		return BrowserLocalStore
	}
	return HostDirectory
}

func (m *Manager) dataDir() (string, error) {
	if m.opts.dataDir != "" {
		return m.opts.dataDir, nil
	}
	if m.env.Location() == "" {
		return "", ErrNoLocation
	}
	return DataDir(m.env.Location()), nil
}

// Hook returns the pre-run hook that mounts the persistent storage.
func (m *Manager) Hook() modconf.Hook {
	return modconf.Hook{
		Name:  "persist-mount",
		Order: modconf.OrderDefault,
		Run: func(ctx context.Context) error {
			_, err := m.Mount(ctx)
			return err
		},
	}
}

// Mount creates the mount point and attaches the backing store. Calling it
// again returns the existing mount. Under a process-based host a failure to
// create the data directory is returned and should abort start-up. Under a
// browser host the mount stays initializing until the durable store has
// loaded; start-up is held back by [SyncDependency] until then.
func (m *Manager) Mount(ctx context.Context) (*MountPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mp := m.mount.Load(); mp != nil {
		return mp, nil
	}

	if err := m.fs.Mkdir(MountPath); err != nil {
		return nil, fmt.Errorf("create mount point: %w", err)
	}

	var (
		mp  *MountPoint
		err error
	)
	switch m.Kind() {
	case HostDirectory:
		mp, err = m.mountHostDir(ctx)
	case BrowserLocalStore:
		mp, err = m.mountLocal(ctx)
	default:
		err = fmt.Errorf("unknown store kind %v", m.Kind())
	}
	if err != nil {
		return nil, err
	}

	m.mount.Store(mp)
	return mp, nil
}

func (m *Manager) mountHostDir(ctx context.Context) (*MountPoint, error) {
	dir, err := m.dataDir()
	if err != nil {
		return nil, err
	}

	store := NewHostDirStore(dir)
	if err := store.Attach(ctx); err != nil {
		return nil, err
	}
	if err := m.fs.Mount(MountPath, store); err != nil {
		return nil, err
	}

	m.logger.Debug().Str("dir", dir).Msg("mounted host directory")
	return &MountPoint{Path: MountPath, Store: store}, nil
}

func (m *Manager) mountLocal(ctx context.Context) (*MountPoint, error) {
	durable := m.opts.durable
	if durable == nil {
		dataDir, err := m.dataDir()
		if err != nil {
			return nil, err
		}
		durable, err = openDefaultDurable(m.origin(), dataDir)
		if err != nil {
			return nil, fmt.Errorf("open durable store: %w", err)
		}
	}

	staging := m.opts.stagingDir
	if staging == "" {
		dir, err := os.MkdirTemp("", "persist-*")
		if err != nil {
			durable.Close()
			return nil, fmt.Errorf("create working tree: %w", err)
		}
		staging = dir
		m.ownStaging = dir
	}

	store := NewLocalStore(durable, staging,
		WithAutoPersist(m.opts.autoPersist),
		WithDebounce(m.opts.debounce),
		WithLocalLogger(m.logger),
	)

	abort := func(err error) (*MountPoint, error) {
		m.cfg.RemoveRunDependency(SyncDependency)
		store.Close()
		if m.ownStaging != "" {
			os.RemoveAll(m.ownStaging)
			m.ownStaging = ""
		}
		return nil, err
	}

	m.cfg.AddRunDependency(SyncDependency)
	if err := store.Attach(ctx); err != nil {
		return abort(err)
	}
	if err := m.fs.Mount(MountPath, store); err != nil {
		return abort(err)
	}

	store.Sync(ctx, func(err error) {
		if err != nil {
			m.logger.Error().Err(err).Msg("initial sync failed")
		}
		m.cfg.RemoveRunDependency(SyncDependency)
	})

	m.env.OnUnload(func() {
		if err := m.Flush(context.Background()); err != nil {
			m.logger.Error().Err(err).Msg("unload flush failed")
		}
	})

	m.logger.Debug().Str("staging", staging).Msg("mounted local store")
	return &MountPoint{Path: MountPath, Store: store}, nil
}

func (m *Manager) origin() string {
	if loc := m.env.Location(); loc != "" {
		return loc
	}
	return "default"
}

// MountPoint returns the mount, or nil before Mount succeeds.
func (m *Manager) MountPoint() *MountPoint {
	return m.mount.Load()
}

// WaitReady blocks until the mount holds its initial contents.
func (m *Manager) WaitReady(ctx context.Context) error {
	mp := m.MountPoint()
	if mp == nil {
		return nil
	}
	if ls, ok := mp.Store.(*LocalStore); ok {
		return ls.WaitReady(ctx)
	}
	return nil
}

// Flush makes the mount's contents durable now.
func (m *Manager) Flush(ctx context.Context) error {
	mp := m.MountPoint()
	if mp == nil {
		return nil
	}
	return mp.Store.Flush(ctx)
}

// Close flushes and closes the backing store, then removes a working tree
// the manager created. An initial sync still running is cancelled first and
// nothing is flushed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	mp := m.mount.Swap(nil)
	staging := m.ownStaging
	m.ownStaging = ""
	m.mu.Unlock()

	if mp == nil {
		return nil
	}

	var errs []error
	if err := mp.Store.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := mp.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	if staging != "" {
		if err := os.RemoveAll(staging); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register exposes "persist_flush" and "persist_status" to the guest.
func (m *Manager) Register(registry *hostfunc.Registry) {
	registry.Register("persist_flush", func(ctx context.Context, args map[string]any) (any, error) {
		if err := m.Flush(ctx); err != nil {
			return nil, err
		}
		return "ok", nil
	})
	registry.Register("persist_status", func(ctx context.Context, args map[string]any) (any, error) {
		mp := m.MountPoint()
		if mp == nil {
			return map[string]any{"mounted": false}, nil
		}
		return map[string]any{
			"mounted": true,
			"path":    mp.Path,
			"store":   mp.Store.Kind().String(),
			"state":   mp.State().String(),
		}, nil
	})
}
