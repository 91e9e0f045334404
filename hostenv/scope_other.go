//go:build !(js && wasm)

package hostenv

import (
	"os"
	"os/signal"
	"syscall"
)

type processScope struct{}

func (processScope) Has(name string) bool {
	return name == ProcessGlobal
}

// DefaultScope returns the ambient scope of a native process: a process
// indicator and no window.
func DefaultScope() Scope {
	return processScope{}
}

func bindUnloadSignal(e *Environment) func() {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			e.Unload()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
