// internal/request/request.go
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/resolver"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 10 * time.Second
)

// ErrBackendUnreachable is matched by every *UnreachableError.
var ErrBackendUnreachable = errors.New("backend unreachable")

// UnreachableError is the single failure callers see once every attempt
// failed at the transport or resolution level.
type UnreachableError struct {
	Attempts int
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrBackendUnreachable, e.Attempts, e.Err)
}

func (e *UnreachableError) Is(target error) bool { return target == ErrBackendUnreachable }

func (e *UnreachableError) Unwrap() error { return e.Err }

// Resolver is the part of *resolver.Resolver the client needs.
type Resolver interface {
	Resolve(ctx context.Context, force bool) (*domain.ResolvedEndpoint, error)
	Invalidate()
}

type Options struct {
	Method string // default GET
	Header http.Header
	Body   []byte
}

// Client performs API calls against the resolved backend, re-resolving on
// transport failure.
type Client struct {
	HTTP       *http.Client
	Resolver   Resolver
	MaxRetries int
	RetryDelay time.Duration
	Log        *zap.Logger
	Metrics    *metrics.Metrics
}

func New(res Resolver, log *zap.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	// timeout bounds connecting and waiting for response headers; the caller
	// may take as long as it needs to read the body
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = timeout
	tr.ResponseHeaderTimeout = timeout
	return &Client{
		HTTP:       &http.Client{Transport: tr},
		Resolver:   res,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Log:        log,
	}
}

// Do sends one logical request to base URL + path. Any HTTP response, whatever
// its status, is returned as is; the caller owns the body. Transport and
// resolution failures invalidate the endpoint, force a new resolution, wait
// RetryDelay and try again, up to MaxRetries more times.
func (c *Client) Do(ctx context.Context, path string, opts Options) (*http.Response, error) {
	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	ep, resolveErr := c.endpoint(ctx, false)
	attempts := 0

	resp, err := retry.DoWithData(
		func() (*http.Response, error) {
			attempts++
			if ep == nil {
				return nil, resolveErr
			}
			resp, err := c.send(ctx, ep.BaseURL, path, opts)
			c.Metrics.ObserveAttempt(err == nil)
			return resp, err
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries+1)),
		retry.Delay(c.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return ctx.Err() == nil && retry.IsRecoverable(err) }),
		retry.OnRetry(func(n uint, err error) {
			if int(n) >= maxRetries {
				return
			}
			fields := []zap.Field{zap.Uint("attempt", n+1), zap.String("path", path), zap.Error(err)}
			if ep != nil {
				fields = append(fields, zap.String("base_url", ep.BaseURL))
			}
			log.Warn("request_attempt_failed", fields...)
			c.Resolver.Invalidate()
			ep, resolveErr = c.endpoint(ctx, true)
		}),
	)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	log.Error("backend_unreachable", zap.String("path", path), zap.Int("attempts", attempts), zap.Error(err))
	return nil, &UnreachableError{Attempts: attempts, Err: err}
}

// endpoint resolves the base URL, falling back to the degraded endpoint an
// exhausted resolution carries.
func (c *Client) endpoint(ctx context.Context, force bool) (*domain.ResolvedEndpoint, error) {
	ep, err := c.Resolver.Resolve(ctx, force)
	if err == nil {
		return ep, nil
	}
	var ex *resolver.ExhaustedError
	if errors.As(err, &ex) && ex.Degraded != nil {
		if c.Log != nil {
			c.Log.Warn("using_degraded_endpoint", zap.String("base_url", ex.Degraded.BaseURL))
		}
		return ex.Degraded, nil
	}
	return nil, err
}

func (c *Client) send(ctx context.Context, base, path string, opts Options) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, JoinURL(base, path), body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return hc.Do(req)
}

// JoinURL joins a base URL and a request path with exactly one slash.
func JoinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
