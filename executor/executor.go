package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

var ErrClosed = errors.New("executor closed")

// Result holds the output and metadata from a module run.
type Result struct {
	Output   string
	Duration time.Duration
	ExitCode uint32
	Error    error
}

// Executor manages WASM runtimes and compiled module caching.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor with the given host function registry.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
	}

	for _, mod := range cfg.precompile {
		if _, err := e.getCompiled(ctx, mod); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", mod.Name(), err)
		}
	}

	return e, nil
}

// Run boots mod as a command module in env and waits for it to exit.
func (e *Executor) Run(ctx context.Context, env *hostenv.Environment, mod Module, opts ...Option) Result {
	start := time.Now()
	s, err := e.Start(ctx, env, mod, opts...)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}
	return s.Wait()
}

// Instantiate starts a reactor module, one that exports functions instead
// of running to completion. Its "_initialize" export, if any, runs first.
// The caller closes the returned module.
func (e *Executor) Instantiate(ctx context.Context, mod Module) (api.Module, error) {
	compiled, err := e.getCompiled(ctx, mod)
	if err != nil {
		return nil, err
	}

	moduleConfig := wazero.NewModuleConfig().
		WithStartFunctions("_initialize").
		WithName("")

	m, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", mod.Name(), err)
	}
	return m, nil
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, mod Module) (wazero.CompiledModule, error) {
	name := mod.Name()

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, mod.Binary())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	e.compiled[name] = compiled
	return compiled, nil
}

// runError maps an instantiation error to a Result error and exit code.
func runError(ctx context.Context, err error, timeout time.Duration) (uint32, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() == context.DeadlineExceeded && timeout > 0 {
		return 0, fmt.Errorf("timeout after %v", timeout)
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return 0, nil
		}
		return exitErr.ExitCode(), fmt.Errorf("exited with code %d", exitErr.ExitCode())
	}
	return 0, fmt.Errorf("execution failed: %w", err)
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "headless")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "headless")
	}
	return filepath.Join(os.TempDir(), "headless-cache")
}
