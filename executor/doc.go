// Package executor hosts a compiled WebAssembly module with wazero.
//
// # Overview
//
// The executor manages module compilation, caching, and start-up. Before a
// command module's entry point runs, [Executor.Run] composes the host-side
// start-up sequence in order:
//
//  1. synthesize the window, document and screen stand-ins and install the
//     argument override (headless environments only)
//  2. bridge the host's standard input into a line buffer
//  3. mount persistent storage at /persist
//  4. run the pre-run hooks and wait for run dependencies
//  5. instantiate the module with its arguments and the mount
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.NewRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	mod, err := executor.LoadFile("bin/engine.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env := hostenv.Process(hostenv.WithLocation("bin/engine.wasm"))
//	result := exec.Run(ctx, env, mod)
//
// # Host Calls
//
// A guest calls host functions by writing \x00HEADLESS:{"fn":...,"args":...}\x00
// to stderr and reading one JSON line from stdin. Writing
// \x00HEADLESS_FLUSH:tag\x00 asks the host to flush persistent storage
// without waiting for a reply.
//
// # Reactors
//
// Modules that export functions instead of an entry point are started with
// [Executor.Instantiate] and called through the returned [api.Module].
package executor
