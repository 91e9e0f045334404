package globals

import (
	"context"

	"github.com/caffeineduck/headless/hostfunc"
)

// Register exposes s to the guest. It does nothing when s is nil.
func Register(registry *hostfunc.Registry, s *Surface) {
	if s == nil {
		return
	}

	registry.Register("window_info", func(ctx context.Context, args map[string]any) (any, error) {
		return s.Window, nil
	})
	registry.Register("screen_info", func(ctx context.Context, args map[string]any) (any, error) {
		return s.Screen, nil
	})
	registry.Register("document_get_element_by_id", func(ctx context.Context, args map[string]any) (any, error) {
		id, _ := args["id"].(string)
		return s.Document.GetElementByID(id), nil
	})
	registry.Register("document_query_selector", func(ctx context.Context, args map[string]any) (any, error) {
		sel, _ := args["selector"].(string)
		return s.Document.QuerySelector(sel), nil
	})
	registry.Register("document_create_element", func(ctx context.Context, args map[string]any) (any, error) {
		tag, _ := args["tag"].(string)
		return s.Document.CreateElement(tag), nil
	})
}
