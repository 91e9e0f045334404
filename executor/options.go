package executor

import (
	"io"
	"time"

	"github.com/caffeineduck/headless/persist"
)

// Option configures execution behavior.
type Option func(*runConfig)

type runConfig struct {
	timeout      time.Duration
	allowedHosts []string
	stdout       io.Writer
	stderr       io.Writer
	env          map[string]string
	persistOpts  []persist.Option
	// Security limits
	httpMaxURLLength int
	httpMaxBodySize  int64
	httpTimeout      time.Duration
}

func defaultRunConfig() runConfig {
	return runConfig{
		env: make(map[string]string),
	}
}

// WithTimeout sets the maximum execution time, start-up included. Zero
// means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithAllowedHosts sets the list of hosts that HTTP requests can access.
func WithAllowedHosts(hosts []string) Option {
	return func(c *runConfig) {
		c.allowedHosts = hosts
	}
}

// WithStdout streams guest stdout to w instead of collecting it in
// [Result.Output].
func WithStdout(w io.Writer) Option {
	return func(c *runConfig) {
		c.stdout = w
	}
}

// WithStderr streams guest stderr, host calls removed, to w instead of
// collecting it in [Result.Output].
func WithStderr(w io.Writer) Option {
	return func(c *runConfig) {
		c.stderr = w
	}
}

// WithEnv sets a guest environment variable.
func WithEnv(key, value string) Option {
	return func(c *runConfig) {
		c.env[key] = value
	}
}

// WithPersist configures the persistent mount.
//
// Examples:
//
//	executor.WithPersist(persist.WithDataDir("./data"))
//	executor.WithPersist(persist.WithStoreKind(persist.BrowserLocalStore))
func WithPersist(opts ...persist.Option) Option {
	return func(c *runConfig) {
		c.persistOpts = append(c.persistOpts, opts...)
	}
}

// Security limit options

// WithHTTPMaxURLLength sets the maximum URL length for HTTP requests.
func WithHTTPMaxURLLength(size int) Option {
	return func(c *runConfig) {
		c.httpMaxURLLength = size
	}
}

// WithHTTPMaxBodySize sets the maximum response body size for HTTP requests.
func WithHTTPMaxBodySize(size int64) Option {
	return func(c *runConfig) {
		c.httpMaxBodySize = size
	}
}

// WithHTTPTimeout sets the timeout of a single HTTP request.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.httpTimeout = d
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Module // Modules to precompile at startup
	memoryLimitPages uint32   // Max memory pages (each page = 64KB), 0 = default (4GB)
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		diskCache:        false,
		memoryLimitPages: 0, // 0 means use wazero default (65536 pages = 4GB)
	}
}

// WithDiskCache enables persistent compilation cache for faster CLI startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/headless or
// XDG_CACHE_HOME/headless.
//
// Examples:
//
//	executor.New(registry, executor.WithDiskCache())            // default dir
//	executor.New(registry, executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the specified modules at Executor creation time.
// This moves the compilation cost to startup rather than first execution.
func WithPrecompile(mods ...Module) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = mods
	}
}

// WithMemoryLimit sets the maximum memory available to WASM modules.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(1024) = 64MB max
//   - WithMemoryLimit(4096) = 256MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)
