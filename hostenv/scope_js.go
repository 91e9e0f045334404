//go:build js && wasm

package hostenv

import "syscall/js"

type jsScope struct{}

func (jsScope) Has(name string) bool {
	v := js.Global().Get(name)
	return !v.IsUndefined() && !v.IsNull()
}

// DefaultScope returns the JavaScript global scope.
func DefaultScope() Scope {
	return jsScope{}
}

func bindUnloadSignal(e *Environment) func() {
	window := js.Global().Get(WindowGlobal)
	if window.IsUndefined() || window.IsNull() {
		return func() {}
	}

	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		e.Unload()
		return nil
	})
	window.Call("addEventListener", "beforeunload", fn)

	return func() {
		window.Call("removeEventListener", "beforeunload", fn)
		fn.Release()
	}
}
