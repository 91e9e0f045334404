package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Module is a compiled-from-source WebAssembly program.
type Module interface {
	// Name identifies the module. It is the cache key for compiled code and
	// the first guest argument.
	Name() string

	// Binary returns the WebAssembly binary.
	Binary() []byte
}

// FileModule is a module loaded from disk.
type FileModule struct {
	name   string
	path   string
	binary []byte
}

// LoadFile reads a module binary. The module is named after the file.
func LoadFile(path string) (*FileModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	base := filepath.Base(path)
	return &FileModule{
		name:   strings.TrimSuffix(base, filepath.Ext(base)),
		path:   abs,
		binary: data,
	}, nil
}

// NewModule wraps an in-memory binary.
func NewModule(name string, binary []byte) *FileModule {
	return &FileModule{name: name, binary: binary}
}

func (m *FileModule) Name() string   { return m.name }
func (m *FileModule) Binary() []byte { return m.binary }

// Path is the absolute path the module was loaded from, if any.
func (m *FileModule) Path() string { return m.path }
