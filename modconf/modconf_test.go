package modconf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreRunOrder(t *testing.T) {
	cfg := New()
	var order []string
	add := func(name string, o int) {
		cfg.AddPreRun(Hook{Name: name, Order: o, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}})
	}

	add("override", OrderArgsOverride)
	add("mount", OrderDefault)
	add("search", OrderSearchArgs)
	add("mount-2", OrderDefault)

	require.NoError(t, cfg.RunPreRun(context.Background()))
	assert.Equal(t, []string{"mount", "mount-2", "search", "override"}, order)
}

func TestPreRunStopsOnError(t *testing.T) {
	cfg := New()
	boom := errors.New("boom")
	ran := false

	cfg.AddPreRun(Hook{Name: "fails", Run: func(context.Context) error { return boom }})
	cfg.AddPreRun(Hook{Name: "after", Order: 1, Run: func(context.Context) error {
		ran = true
		return nil
	}})

	err := cfg.RunPreRun(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"fails"`)
	assert.False(t, ran)
}

func TestRunDependencies(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.WaitRunDependencies(context.Background()))

	cfg.AddRunDependency("persist-sync")
	cfg.AddRunDependency("persist-sync")
	cfg.AddRunDependency("other")
	assert.Equal(t, []string{"other", "persist-sync"}, cfg.PendingRunDependencies())

	done := make(chan error, 1)
	go func() { done <- cfg.WaitRunDependencies(context.Background()) }()

	cfg.RemoveRunDependency("persist-sync")
	select {
	case <-done:
		t.Fatal("wait returned while a dependency is pending")
	case <-time.After(20 * time.Millisecond):
	}

	cfg.RemoveRunDependency("other")
	cfg.RemoveRunDependency("unknown")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after dependencies cleared")
	}
}

func TestWaitRunDependenciesContext(t *testing.T) {
	cfg := New()
	cfg.AddRunDependency("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := cfg.WaitRunDependencies(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "stuck")
}

func TestArgsPropertyPlain(t *testing.T) {
	cfg := New("a")
	assert.Equal(t, []string{"a"}, cfg.Args().Get())

	cfg.Args().Set([]string{"b", "c"})
	assert.Equal(t, []string{"b", "c"}, cfg.Args().Get())
}

func TestArgsPropertyAccessor(t *testing.T) {
	cfg := New("ignored")
	require.NoError(t, cfg.Args().Define("owner", Accessor{
		Get: func() []string { return []string{"x"} },
		Set: func([]string) {},
	}))

	cfg.Args().Set([]string{"y"})
	assert.Equal(t, []string{"x"}, cfg.Args().Get())
	assert.Equal(t, "owner", cfg.Args().Owner())

	// owner may redefine
	require.NoError(t, cfg.Args().Define("owner", Accessor{
		Get: func() []string { return []string{"z"} },
	}))
	assert.Equal(t, []string{"z"}, cfg.Args().Get())

	// others may not
	err := cfg.Args().Define("intruder", Accessor{Get: func() []string { return nil }})
	require.ErrorIs(t, err, ErrPropertyOwned)
	assert.Equal(t, []string{"z"}, cfg.Args().Get())
}
