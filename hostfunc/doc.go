// Package hostfunc provides the host functions a hosted WASM module can call.
//
// Host functions are Go functions invoked by the guest through the executor's
// call protocol. Each one receives decoded JSON arguments and returns a value
// that is encoded back to the guest.
//
// # Registry
//
// The [Registry] holds the available functions by name:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "result", nil
//	})
//
// Components such as the stdin bridge, the synthesized global surface and the
// persistent mount manager register their own functions when the executor
// boots a module.
//
// # HTTP
//
// [HTTP] is an allow-listed HTTP client. It backs the guest-facing
// "http_request" function and the smoke test's resource fetch:
//
//	h := hostfunc.NewHTTP(hostfunc.HTTPConfig{
//	    AllowedHosts: []string{"example.com"},
//	})
//	body, err := h.Fetch(ctx, "https://example.com/resource")
//
// Requests to hosts outside the allow list fail before any network access.
package hostfunc
