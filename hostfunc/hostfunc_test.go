package hostfunc

import (
	"context"
	"strings"
	"testing"
)

func TestRegistryCall(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
		return args["v"], nil
	})

	got, err := r.Call(context.Background(), "echo", map[string]any{"v": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi" {
		t.Errorf("expected hi, got %v", got)
	}

	if _, err := r.Call(context.Background(), "missing", nil); err == nil || err.Error() != "unknown function: missing" {
		t.Errorf("expected unknown function error, got %v", err)
	}
}

func TestRegistryCallNilArgs(t *testing.T) {
	r := NewRegistry()
	r.Register("count", func(ctx context.Context, args map[string]any) (any, error) {
		return len(args), nil
	})
	got, err := r.Call(context.Background(), "count", nil)
	if err != nil || got != 0 {
		t.Errorf("expected 0 args, got %v (%v)", got, err)
	}
}

func TestRegistryListAndClone(t *testing.T) {
	r := NewRegistry()
	noop := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }
	r.Register("b", noop)
	r.Register("a", noop)

	c := r.Clone()
	c.Register("c", noop)

	if strings.Join(r.List(), ",") != "a,b" {
		t.Errorf("unexpected list %v", r.List())
	}
	if strings.Join(c.List(), ",") != "a,b,c" {
		t.Errorf("unexpected clone list %v", c.List())
	}
}
