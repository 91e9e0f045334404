package hostfunc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxURLLength   = 8192
	DefaultMaxBodySize    = 64 << 20 // 64MB
	DefaultRequestTimeout = 30 * time.Second
)

var (
	ErrHTTPDisabled  = errors.New("http not enabled")
	ErrURLRequired   = errors.New("url required")
	ErrURLTooLong    = errors.New("url exceeds max length")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidScheme = errors.New("scheme must be http or https")
)

type HTTPConfig struct {
	AllowedHosts   []string
	MaxBodySize    int64
	MaxURLLength   int
	RequestTimeout time.Duration
}

type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &HTTP{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// checkURL validates rawURL against the configured limits and allow list.
func (h *HTTP) checkURL(rawURL string) error {
	if rawURL == "" {
		return ErrURLRequired
	}
	if len(rawURL) > h.cfg.MaxURLLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}
	if len(h.cfg.AllowedHosts) == 0 {
		return ErrHTTPDisabled
	}

	host := parsed.Hostname()
	if !h.isHostAllowed(host) {
		return fmt.Errorf("host not allowed: %s", host)
	}
	return nil
}

// Fetch performs a GET and returns the response body. Non-2xx responses are
// errors.
func (h *HTTP) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := h.checkURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err := readLimited(resp.Body, h.cfg.MaxBodySize)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Request is the guest-facing "http_request" function.
func (h *HTTP) Request(ctx context.Context, args map[string]any) (any, error) {
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)

	switch method {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS":
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}

	rawURL, _ := args["url"].(string)
	if err := h.checkURL(rawURL); err != nil {
		return nil, err
	}

	var body io.Reader
	if bodyStr, ok := args["body"].(string); ok && bodyStr != "" {
		if int64(len(bodyStr)) > h.cfg.MaxBodySize {
			return nil, fmt.Errorf("request body exceeds max size")
		}
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			if vs, ok := v.(string); ok {
				req.Header.Set(k, vs)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readLimited(resp.Body, h.cfg.MaxBodySize)
	if err != nil {
		return nil, err
	}

	respHeaders := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"body":    string(respBody),
		"headers": respHeaders,
	}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds max size")
	}
	return data, nil
}

// isHostAllowed matches exact hosts and subdomains of allowed domains.
// IP addresses only match equal IP addresses.
func (h *HTTP) isHostAllowed(host string) bool {
	hostIP := net.ParseIP(host)
	for _, allowed := range h.cfg.AllowedHosts {
		if allowedIP := net.ParseIP(allowed); allowedIP != nil || hostIP != nil {
			if allowedIP != nil && hostIP != nil && allowedIP.Equal(hostIP) {
				return true
			}
			continue
		}
		if strings.EqualFold(host, allowed) || strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}
