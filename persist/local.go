package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot maps slash-separated paths relative to the store root to file
// contents. Directory entries end in "/" and carry no data.
type Snapshot map[string][]byte

// Durable is an origin-keyed store that outlives the host.
type Durable interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// DefaultDebounce is how long auto-persist waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// ErrStoreClosed is returned when waiting on a store closed before it
// became ready.
var ErrStoreClosed = errors.New("store closed")

// LocalStore keeps a working tree on the host and mirrors it to a Durable
// store. It becomes ready after the initial load from the durable store
// completes, whether or not that load succeeded.
type LocalStore struct {
	durable     Durable
	root        string
	autoPersist bool
	debounce    time.Duration
	logger      zerolog.Logger

	flushMu sync.Mutex
	ready   atomic.Bool
	readyCh chan struct{}
	syncing atomic.Bool

	mu         sync.Mutex
	closed     bool
	closedCh   chan struct{}
	cancelSync context.CancelFunc
	syncDone   chan struct{}

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithAutoPersist enables flushing after changes to the working tree.
func WithAutoPersist(enabled bool) LocalOption {
	return func(s *LocalStore) { s.autoPersist = enabled }
}

// WithDebounce sets the auto-persist debounce interval.
func WithDebounce(d time.Duration) LocalOption {
	return func(s *LocalStore) { s.debounce = d }
}

// WithLocalLogger sets the store's logger.
func WithLocalLogger(logger zerolog.Logger) LocalOption {
	return func(s *LocalStore) { s.logger = logger }
}

// NewLocalStore returns a store with its working tree at root.
func NewLocalStore(durable Durable, root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{
		durable:     durable,
		root:        root,
		autoPersist: true,
		debounce:    DefaultDebounce,
		logger:      zerolog.Nop(),
		readyCh:     make(chan struct{}),
		closedCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) Kind() StoreKind { return BrowserLocalStore }
func (s *LocalStore) Root() string    { return s.root }
func (s *LocalStore) Ready() bool     { return s.ready.Load() }

// Attach creates the working tree and starts auto-persist if enabled.
func (s *LocalStore) Attach(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create working tree: %w", err)
	}
	if s.autoPersist && s.stopWatch == nil {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopWatch = cancel
		s.watchDone = make(chan struct{})
		w := &changeWatcher{
			root:     s.root,
			debounce: s.debounce,
			logger:   s.logger,
			onChange: s.autoFlush,
		}
		go func() {
			defer close(s.watchDone)
			w.run(watchCtx)
		}()
	}
	return nil
}

// Sync loads the durable contents into the working tree in the background,
// replacing whatever the tree held. done is called with the load result
// before the store reports ready. Only the first call starts a load. A load
// still running when the store is closed is cancelled; done is then never
// called and the store never becomes ready.
func (s *LocalStore) Sync(ctx context.Context, done func(error)) {
	if !s.syncing.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	syncCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	syncDone := make(chan struct{})
	s.cancelSync = cancel
	s.syncDone = syncDone

	go func() {
		defer close(syncDone)
		defer cancel()

		err := s.restore(syncCtx)
		if syncCtx.Err() != nil {
			s.logger.Debug().Msg("initial sync cancelled")
			return
		}
		if done != nil {
			done(err)
		}
		s.ready.Store(true)
		close(s.readyCh)
	}()
}

// WaitReady blocks until the initial load has completed.
func (s *LocalStore) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-s.closedCh:
		if s.Ready() {
			return nil
		}
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LocalStore) restore(ctx context.Context) error {
	snap, err := s.durable.Load(ctx)
	if err != nil {
		return fmt.Errorf("load durable store: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error
	if err := s.prune(snap); err != nil {
		errs = append(errs, fmt.Errorf("prune working tree: %w", err))
	}
	for name, data := range snap {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		dir := strings.HasSuffix(name, "/")
		rel := filepath.FromSlash(strings.TrimSuffix(name, "/"))
		if !filepath.IsLocal(rel) {
			errs = append(errs, fmt.Errorf("skip %q: not a local path", name))
			continue
		}
		target := filepath.Join(s.root, rel)

		if dir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// prune removes working-tree entries that snap does not hold.
func (s *LocalStore) prune(snap Snapshot) error {
	files := make(map[string]bool, len(snap))
	dirs := make(map[string]bool)
	for name := range snap {
		isDir := strings.HasSuffix(name, "/")
		name = path.Clean(strings.TrimSuffix(name, "/"))
		if isDir {
			dirs[name] = true
		} else {
			files[name] = true
		}
		for d := path.Dir(name); d != "." && d != "/"; d = path.Dir(d) {
			dirs[d] = true
		}
	}

	var stale []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			if dirs[name] {
				return nil
			}
			stale = append(stale, p)
			return fs.SkipDir
		}
		if !files[name] {
			stale = append(stale, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range stale {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush writes the working tree to the durable store. Before the initial
// load completes it does nothing, so a partial tree never replaces the
// durable contents.
func (s *LocalStore) Flush(ctx context.Context) error {
	if !s.Ready() {
		s.logger.Debug().Msg("flush skipped, initial sync pending")
		return nil
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	snap, err := snapshotTree(s.root)
	if err != nil {
		return fmt.Errorf("snapshot working tree: %w", err)
	}
	if err := s.durable.Save(ctx, snap); err != nil {
		return fmt.Errorf("save durable store: %w", err)
	}
	s.logger.Debug().Int("entries", len(snap)).Msg("flushed to durable store")
	return nil
}

func (s *LocalStore) autoFlush() {
	if err := s.Flush(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("auto-persist failed")
	}
}

// Close cancels an initial load still in progress and waits for it, stops
// auto-persist and closes the durable store. It does not flush. Once Close
// returns nothing writes to the working tree.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closedCh)
	cancel, syncDone := s.cancelSync, s.syncDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-syncDone
	}
	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
		s.stopWatch = nil
	}
	return s.durable.Close()
}

func snapshotTree(root string) (Snapshot, error) {
	snap := make(Snapshot)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			snap[name+"/"] = nil
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		snap[name] = data
		return nil
	})
	return snap, err
}
