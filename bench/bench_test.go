// Package bench measures start-up and bridging costs.
//
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/headless/executor"
	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/internal/wasmtest"
	"github.com/caffeineduck/headless/persist"
	"github.com/caffeineduck/headless/stdinbridge"
)

func benchEnv(b *testing.B) *hostenv.Environment {
	return hostenv.New(hostenv.MapScope{hostenv.ProcessGlobal: true},
		hostenv.WithLocation(filepath.Join(b.TempDir(), "engine.wasm")),
		hostenv.WithStdin(strings.NewReader("")),
	)
}

// --- Start-up: Cold Start (new executor each time) ---

func BenchmarkColdStart(b *testing.B) {
	env := benchEnv(b)
	mod := executor.NewModule("engine", wasmtest.EmptyStart)
	for i := 0; i < b.N; i++ {
		exec, _ := executor.New(hostfunc.NewRegistry())
		exec.Run(context.Background(), env, mod)
		exec.Close()
	}
}

// --- Start-up: Warm Start (reuse executor) ---

func BenchmarkWarmStart(b *testing.B) {
	exec, _ := executor.New(hostfunc.NewRegistry())
	defer exec.Close()
	env := benchEnv(b)
	mod := executor.NewModule("engine", wasmtest.EmptyStart)

	// First run to compile
	exec.Run(context.Background(), env, mod)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Run(context.Background(), env, mod)
	}
}

func BenchmarkWarmStart_HostCall(b *testing.B) {
	exec, _ := executor.New(hostfunc.NewRegistry())
	defer exec.Close()
	env := benchEnv(b)
	mod := executor.NewModule("caller", wasmtest.CallWindowInfo)

	exec.Run(context.Background(), env, mod)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Run(context.Background(), env, mod)
	}
}

// --- Stdin bridge ---

func BenchmarkLineBuffer(b *testing.B) {
	for _, size := range []int{16, 4096} {
		b.Run(fmt.Sprintf("chunk=%d", size), func(b *testing.B) {
			input := bytes.Repeat([]byte("line of input\n"), 1024)
			b.SetBytes(int64(len(input)))
			for i := 0; i < b.N; i++ {
				buf := stdinbridge.NewLineBuffer()
				for off := 0; off < len(input); off += size {
					buf.Feed(input[off:min(off+size, len(input))])
				}
				buf.Close()
				for {
					if _, status := buf.TryDequeue(); status != stdinbridge.LineReady {
						break
					}
				}
			}
		})
	}
}

// --- Persistent storage ---

func BenchmarkLocalStoreFlush(b *testing.B) {
	ctx := context.Background()
	durable, err := persist.OpenSQLite(filepath.Join(b.TempDir(), "persist.db"), "bench")
	if err != nil {
		b.Fatal(err)
	}
	store := persist.NewLocalStore(durable, b.TempDir(), persist.WithAutoPersist(false))
	defer store.Close()
	if err := store.Attach(ctx); err != nil {
		b.Fatal(err)
	}
	store.Sync(ctx, nil)
	if err := store.WaitReady(ctx); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
