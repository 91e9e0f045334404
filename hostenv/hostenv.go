// Package hostenv decides once whether a browser-like global scope is present
// and carries the resulting environment capabilities to every component that
// needs them.
//
// The detected [Kind] is fixed when the [Environment] is constructed. Callers
// must gate on [Environment.Kind] instead of re-testing the scope, because the
// global surface synthesized for headless hosts may itself look like a window.
package hostenv

import (
	"io"
	"os"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Kind is the host environment classification.
type Kind int

const (
	// Headless is a process-based host with no browser globals.
	Headless Kind = iota
	// BrowserLike is a host exposing a windowing global.
	BrowserLike
)

func (k Kind) String() string {
	switch k {
	case Headless:
		return "headless"
	case BrowserLike:
		return "browser"
	default:
		return "unknown"
	}
}

// Names of the globals used for detection.
const (
	WindowGlobal  = "window"
	ProcessGlobal = "process"
)

// Scope is a read-only view of an ambient global scope.
type Scope interface {
	Has(name string) bool
}

// MapScope is an in-memory Scope listing the globals that exist.
type MapScope map[string]bool

// Has reports whether name is present.
func (s MapScope) Has(name string) bool {
	return s[name]
}

// IsBrowserLike reports whether scope exposes a windowing global.
func IsBrowserLike(scope Scope) bool {
	return scope != nil && scope.Has(WindowGlobal)
}

// Environment is the capability object built once at start-up.
type Environment struct {
	kind     Kind
	args     []string
	stdin    io.Reader
	location string
	search   string
	logger   zerolog.Logger

	mu       sync.Mutex
	unload   []func()
	unloaded bool
}

// Option configures an Environment.
type Option func(*Environment)

// WithArgs sets the positional arguments forwarded to the module.
func WithArgs(args ...string) Option {
	return func(e *Environment) {
		e.args = slices.Clone(args)
	}
}

// WithStdin sets the host character input stream. A nil reader disables
// the stdin bridge.
func WithStdin(r io.Reader) Option {
	return func(e *Environment) {
		e.stdin = r
	}
}

// WithLocation sets the deployed location of the module file.
func WithLocation(path string) Option {
	return func(e *Environment) {
		e.location = path
	}
}

// WithSearch sets the page search string (e.g. "?a&b") seen by browser hosts.
func WithSearch(search string) Option {
	return func(e *Environment) {
		e.search = search
	}
}

// WithLogger sets the logger handed to components.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithKind forces the environment kind instead of detecting it.
func WithKind(kind Kind) Option {
	return func(e *Environment) {
		e.kind = kind
	}
}

// New detects the environment kind from scope and applies opts.
func New(scope Scope, opts ...Option) *Environment {
	e := &Environment{
		kind:   Headless,
		logger: zerolog.Nop(),
	}
	if IsBrowserLike(scope) {
		e.kind = BrowserLike
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process returns an Environment for the current process, detected from
// [DefaultScope] and reading the process's standard input.
func Process(opts ...Option) *Environment {
	return New(DefaultScope(), append([]Option{WithStdin(os.Stdin)}, opts...)...)
}

// Kind returns the environment kind detected at construction.
func (e *Environment) Kind() Kind { return e.kind }

// IsBrowserLike reports whether the environment was detected as browser-like.
func (e *Environment) IsBrowserLike() bool { return e.kind == BrowserLike }

// Args returns a copy of the positional arguments.
func (e *Environment) Args() []string { return slices.Clone(e.args) }

// Stdin returns the host input stream, or nil.
func (e *Environment) Stdin() io.Reader { return e.stdin }

// Location returns the deployed location of the module.
func (e *Environment) Location() string { return e.location }

// Search returns the page search string.
func (e *Environment) Search() string { return e.search }

// Logger returns the environment logger.
func (e *Environment) Logger() *zerolog.Logger { return &e.logger }

// OnUnload registers fn to run when the host is about to go away.
// Callbacks registered after [Environment.Unload] run immediately.
func (e *Environment) OnUnload(fn func()) {
	e.mu.Lock()
	if e.unloaded {
		e.mu.Unlock()
		fn()
		return
	}
	e.unload = append(e.unload, fn)
	e.mu.Unlock()
}

// Unload runs the registered unload callbacks once, in registration order.
func (e *Environment) Unload() {
	e.mu.Lock()
	if e.unloaded {
		e.mu.Unlock()
		return
	}
	e.unloaded = true
	fns := e.unload
	e.unload = nil
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// BindUnloadSignal wires the host's own unload signal to [Environment.Unload].
// The returned function detaches it.
func (e *Environment) BindUnloadSignal() (stop func()) {
	return bindUnloadSignal(e)
}
