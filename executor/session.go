package executor

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/persist"
	"github.com/caffeineduck/headless/stdinbridge"
	"github.com/tetratelabs/wazero"
)

// Session is a command module running in the background.
type Session struct {
	launch *launch
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result Result
}

// Start boots mod and runs its entry point in the background. Start-up
// errors, including a failure to mount persistent storage, are returned
// before the module runs.
func (e *Executor) Start(ctx context.Context, env *hostenv.Environment, mod Module, opts ...Option) (*Session, error) {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	compiled, err := e.getCompiled(ctx, mod)
	if err != nil {
		cancel()
		return nil, err
	}

	l, err := e.boot(ctx, env, mod, cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	var stdout bytes.Buffer
	var out io.Writer = &stdout
	if cfg.stdout != nil {
		out = cfg.stdout
	}

	stdinReader, stdinWriter := io.Pipe()
	protocol := newProtocolHandler(ctx, l.registry, stdinWriter)
	protocol.passthrough = cfg.stderr
	protocol.onFlush = l.flush

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(out).
		WithStderr(protocol).
		WithStdin(stdinReader).
		WithArgs(l.args...).
		WithFSConfig(l.fsConfig()).
		WithSysWalltime().
		WithSysNanotime().
		WithName("")

	for k, v := range cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	s := &Session{
		launch: l,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()

		_, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		stdinWriter.Close()
		protocol.finish()

		code, runErr := runError(ctx, err, cfg.timeout)
		if closeErr := l.close(context.WithoutCancel(ctx)); closeErr != nil {
			l.logger.Error().Err(closeErr).Msg("shutdown failed")
		}

		result := Result{
			Output:   stdout.String() + protocol.Stderr(),
			Duration: time.Since(start),
			ExitCode: code,
			Error:    runErr,
		}
		s.mu.Lock()
		s.result = result
		s.mu.Unlock()
	}()

	return s, nil
}

// Done is closed once the module has exited and storage is flushed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the module exits and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stop cancels the module and waits for it to exit.
func (s *Session) Stop() Result {
	s.cancel()
	return s.Wait()
}

// Args are the arguments the module was started with, its name first.
func (s *Session) Args() []string {
	return append([]string(nil), s.launch.args...)
}

// Stdin is the bridge feeding the module's input queue, or nil when the
// environment has no input stream.
func (s *Session) Stdin() *stdinbridge.Bridge { return s.launch.bridge }

// Persist is the manager owning the module's persistent mount.
func (s *Session) Persist() *persist.Manager { return s.launch.persist }

// Mounts lists the module's filesystem mounts.
func (s *Session) Mounts() []persist.Mount { return s.launch.mounts.Mounts() }
