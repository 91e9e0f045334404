package executor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/headless/executor"
	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/internal/wasmtest"
	"github.com/caffeineduck/headless/persist"
)

var sharedExec *executor.Executor

func TestMain(m *testing.M) {
	var err error
	sharedExec, err = executor.New(hostfunc.NewRegistry())
	if err != nil {
		panic("failed to create shared executor: " + err.Error())
	}

	code := m.Run()

	sharedExec.Close()
	os.Exit(code)
}

// headlessEnv returns a process-like environment whose module lives in a
// temporary directory.
func headlessEnv(t *testing.T, opts ...hostenv.Option) (*hostenv.Environment, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]hostenv.Option{
		hostenv.WithLocation(filepath.Join(dir, "engine.wasm")),
		hostenv.WithStdin(strings.NewReader("")),
	}, opts...)
	return hostenv.New(hostenv.MapScope{hostenv.ProcessGlobal: true}, opts...), dir
}

func browserEnv(opts ...hostenv.Option) *hostenv.Environment {
	return hostenv.New(hostenv.MapScope{hostenv.WindowGlobal: true}, opts...)
}

type memDurable struct {
	mu    sync.Mutex
	snap  persist.Snapshot
	gate  chan struct{}
	saves int
}

func (d *memDurable) Load(ctx context.Context) (persist.Snapshot, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return persist.Snapshot{}, nil
}

func (d *memDurable) Save(ctx context.Context, snap persist.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = snap
	d.saves++
	return nil
}

func (d *memDurable) Close() error { return nil }

func (d *memDurable) saveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}

func localStore(t *testing.T, d *memDurable) executor.Option {
	return executor.WithPersist(
		persist.WithStoreKind(persist.BrowserLocalStore),
		persist.WithDurable(d),
		persist.WithStagingDir(t.TempDir()),
		persist.WithLocalAutoPersist(false),
	)
}

func TestRunEmptyModule(t *testing.T) {
	env, dir := headlessEnv(t)
	mod := executor.NewModule("engine", wasmtest.EmptyStart)

	s, err := sharedExec.Start(context.Background(), env, mod)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	result := s.Wait()
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Duration <= 0 {
		t.Error("expected positive duration")
	}

	dataDir := filepath.Join(dir, "engine-data")
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Fatalf("expected data directory %s: %v", dataDir, err)
	}

	mounts := s.Mounts()
	if len(mounts) != 1 || mounts[0].GuestPath != persist.MountPath || mounts[0].HostDir != dataDir {
		t.Errorf("unexpected mounts: %+v", mounts)
	}
}

func TestRunStdout(t *testing.T) {
	env, _ := headlessEnv(t)
	result := sharedExec.Run(context.Background(), env, executor.NewModule("hello", wasmtest.StdoutHello))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Output != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", result.Output)
	}
}

func TestRunStreamsStdout(t *testing.T) {
	env, _ := headlessEnv(t)
	var out strings.Builder
	result := sharedExec.Run(context.Background(), env, executor.NewModule("hello", wasmtest.StdoutHello),
		executor.WithStdout(&out))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if out.String() != "hello\n" {
		t.Errorf("expected streamed 'hello\\n', got %q", out.String())
	}
	if result.Output != "" {
		t.Errorf("expected empty collected output, got %q", result.Output)
	}
}

func TestRunTrap(t *testing.T) {
	env, _ := headlessEnv(t)
	result := sharedExec.Run(context.Background(), env, executor.NewModule("trap", wasmtest.TrapStart))
	if result.Error == nil {
		t.Fatal("expected error from trapping module")
	}
	if !strings.Contains(result.Error.Error(), "execution failed") {
		t.Errorf("expected execution failure, got %v", result.Error)
	}
}

func TestRunStderrAndFlushRequest(t *testing.T) {
	env, _ := headlessEnv(t)
	durable := &memDurable{}
	var stderr strings.Builder

	result := sharedExec.Run(context.Background(), env, executor.NewModule("mixed", wasmtest.StderrMixed),
		localStore(t, durable), executor.WithStderr(&stderr))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if stderr.String() != "warn\n" {
		t.Errorf("expected stderr 'warn\\n', got %q", stderr.String())
	}
	// the final flush on exit always reaches the durable store
	if durable.saveCount() == 0 {
		t.Error("expected storage to be flushed")
	}
}

func TestRunHostCall(t *testing.T) {
	env, _ := headlessEnv(t)
	result := sharedExec.Run(context.Background(), env, executor.NewModule("caller", wasmtest.CallWindowInfo))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	for _, want := range []string{`"innerWidth":1280`, `"innerHeight":720`, `"devicePixelRatio":1`} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("expected output to contain %s, got %q", want, result.Output)
		}
	}
}

func TestRunHostCallBrowserLike(t *testing.T) {
	env := browserEnv()
	result := sharedExec.Run(context.Background(), env, executor.NewModule("caller", wasmtest.CallWindowInfo),
		localStore(t, &memDurable{}))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !strings.Contains(result.Output, "unknown function: window_info") {
		t.Errorf("expected no stand-ins under a browser host, got %q", result.Output)
	}
}

func TestRunCustomHostFunction(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("window_info", func(ctx context.Context, args map[string]any) (any, error) {
		return "shadowed", nil
	})

	exec, err := executor.New(registry)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	defer exec.Close()

	// the registry is copied per run, so the synthesized surface wins
	env, _ := headlessEnv(t)
	result := exec.Run(context.Background(), env, executor.NewModule("caller", wasmtest.CallWindowInfo))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !strings.Contains(result.Output, `"innerWidth":1280`) {
		t.Errorf("expected surface reply, got %q", result.Output)
	}
	if _, ok := registry.Get("stdin_poll"); ok {
		t.Error("per-run functions leaked into the executor registry")
	}
}

func TestRunArgsHeadlessIgnoresSearch(t *testing.T) {
	env, _ := headlessEnv(t, hostenv.WithArgs("-sound", "off"), hostenv.WithSearch("?x&y"))

	s, err := sharedExec.Start(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Wait()

	got := strings.Join(s.Args(), " ")
	if got != "engine -sound off" {
		t.Errorf("expected 'engine -sound off', got %q", got)
	}
}

func TestRunArgsBrowserUsesSearch(t *testing.T) {
	env := browserEnv(hostenv.WithArgs("ignored"), hostenv.WithSearch("?x&y%20z"))

	s, err := sharedExec.Start(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart),
		localStore(t, &memDurable{}))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Wait()

	got := s.Args()
	want := []string{"engine", "x", "y z"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRunMountFailureAbortsStartup(t *testing.T) {
	env, dir := headlessEnv(t)
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	result := sharedExec.Run(context.Background(), env, executor.NewModule("hello", wasmtest.StdoutHello),
		executor.WithPersist(persist.WithDataDir(filepath.Join(blocker, "data"))))
	if result.Error == nil {
		t.Fatal("expected start-up error")
	}
	if !strings.Contains(result.Error.Error(), "persist-mount") {
		t.Errorf("expected mount hook error, got %v", result.Error)
	}
	if result.Output != "" {
		t.Errorf("module should not have run, got output %q", result.Output)
	}
}

func TestRunWaitsForStorageSync(t *testing.T) {
	env, _ := headlessEnv(t)
	durable := &memDurable{gate: make(chan struct{})}
	t.Cleanup(func() { close(durable.gate) })

	result := sharedExec.Run(context.Background(), env, executor.NewModule("hello", wasmtest.StdoutHello),
		localStore(t, durable), executor.WithTimeout(100*time.Millisecond))
	if result.Error == nil {
		t.Fatal("expected start-up to time out while storage loads")
	}
	if !strings.Contains(result.Error.Error(), persist.SyncDependency) {
		t.Errorf("expected pending sync dependency in error, got %v", result.Error)
	}
	if result.Output != "" {
		t.Errorf("module should not have run, got output %q", result.Output)
	}
}

func TestRunStdinBridged(t *testing.T) {
	env, _ := headlessEnv(t, hostenv.WithStdin(strings.NewReader("first\nsecond")))

	s, err := sharedExec.Start(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Wait()

	bridge := s.Stdin()
	if bridge == nil {
		t.Fatal("expected stdin bridge")
	}
	<-bridge.Done()

	var lines []string
	for {
		line, status := bridge.Buffer().TryDequeue()
		if status.String() != "line" {
			break
		}
		lines = append(lines, line)
	}
	if strings.Join(lines, ",") != "first,second" {
		t.Errorf("expected first,second, got %q", lines)
	}
}

func TestRunGuestPollsStdin(t *testing.T) {
	env, _ := headlessEnv(t, hostenv.WithStdin(strings.NewReader("first\nsecond\n")))

	result := sharedExec.Run(context.Background(), env, executor.NewModule("engine", wasmtest.PollStdin),
		executor.WithTimeout(10*time.Second))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	want := `{"data":{"line":"first","status":"line"}}` + "\n"
	if result.Output != want {
		t.Errorf("expected %q, got %q", want, result.Output)
	}
}

func TestExecutorDurationTracked(t *testing.T) {
	env, _ := headlessEnv(t)
	result := sharedExec.Run(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart))
	if result.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestExecutorPrecompileInvalidModule(t *testing.T) {
	_, err := executor.New(hostfunc.NewRegistry(),
		executor.WithPrecompile(executor.NewModule("broken", []byte("not wasm"))))
	if err == nil {
		t.Fatal("expected precompile error")
	}
	if !strings.Contains(err.Error(), "precompile broken") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecutorDiskCache(t *testing.T) {
	cacheDir := t.TempDir()
	exec, err := executor.New(hostfunc.NewRegistry(),
		executor.WithDiskCache(cacheDir),
		executor.WithPrecompile(executor.NewModule("engine", wasmtest.EmptyStart)),
		executor.WithMemoryLimit(executor.MemoryLimit16MB))
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	defer exec.Close()

	env, _ := headlessEnv(t)
	result := exec.Run(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
}

func TestExecutorClosed(t *testing.T) {
	exec, err := executor.New(nil)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if err := exec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := exec.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	env, _ := headlessEnv(t)
	result := exec.Run(context.Background(), env, executor.NewModule("engine", wasmtest.EmptyStart))
	if !errors.Is(result.Error, executor.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", result.Error)
	}
}

func TestInstantiateReactor(t *testing.T) {
	ctx := context.Background()
	m, err := sharedExec.Instantiate(ctx, executor.NewModule("calculator", wasmtest.Calculator))
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	defer m.Close(ctx)

	res, err := m.ExportedFunction("algorithm_version").Call(ctx)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if len(res) != 1 || uint32(res[0]) != wasmtest.CalculatorVersion {
		t.Errorf("expected version %d, got %v", wasmtest.CalculatorVersion, res)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.wasm")
	if err := os.WriteFile(path, wasmtest.EmptyStart, 0o644); err != nil {
		t.Fatal(err)
	}

	mod, err := executor.LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if mod.Name() != "engine" {
		t.Errorf("expected name 'engine', got %q", mod.Name())
	}
	if mod.Path() != path {
		t.Errorf("expected path %q, got %q", path, mod.Path())
	}
	if len(mod.Binary()) != len(wasmtest.EmptyStart) {
		t.Error("binary not loaded")
	}

	if _, err := executor.LoadFile(filepath.Join(t.TempDir(), "missing.wasm")); err == nil {
		t.Error("expected error for missing file")
	}
}
