// Package headless hosts WebAssembly modules that were built for a browser
// inside a plain process.
//
// # Overview
//
// A browser-targeted module expects window, document and screen globals, a
// browser-side way to receive input, and browser-local storage. headless
// composes three host-side pieces before the module's entry point runs:
//
//   - [github.com/caffeineduck/headless/globals] installs inert stand-ins for
//     the browser surfaces and pins the module's arguments to the host's.
//   - [github.com/caffeineduck/headless/stdinbridge] turns standard input
//     into a queue of lines the module polls without blocking.
//   - [github.com/caffeineduck/headless/persist] mounts one persistent
//     directory at /persist, backed by a host directory or by a durable
//     local store.
//
// # Basic Usage
//
//	exec, _ := executor.New(hostfunc.NewRegistry())
//	defer exec.Close()
//
//	mod, _ := executor.LoadFile("bin/engine.wasm")
//	env := hostenv.Process(hostenv.WithLocation(mod.Path()))
//	result := exec.Run(ctx, env, mod, executor.WithStdout(os.Stdout))
//
// # Reactors
//
//	instance, _ := exec.Instantiate(ctx, executor.NewModule("calc", binary))
//	target, _ := smoke.NewWasmTarget(instance)
//	version, _ := target.Version(ctx)
package headless
