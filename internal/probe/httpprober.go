package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

const (
	DefaultTimeout    = 3 * time.Second
	DefaultHealthPath = "/api/health/"
)

// HTTPProber issues GET {candidate}{HealthPath}. 200 and 401 both count as a
// live backend: 401 means a real server is enforcing auth.
type HTTPProber struct {
	Client     *http.Client
	Timeout    time.Duration
	HealthPath string
}

func NewHTTPProber(timeout time.Duration, healthPath string) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if healthPath == "" {
		healthPath = DefaultHealthPath
	}
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	return &HTTPProber{
		Client: &http.Client{
			// The deadline comes from the per-probe context; keep-alives off so
			// an abandoned probe leaves no idle socket behind.
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		},
		Timeout:    timeout,
		HealthPath: healthPath,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, c domain.Candidate) (out domain.ProbeResult) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	out.Candidate = c
	start := time.Now()
	defer func() {
		out.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0
		out.CheckedAt = time.Now().UTC()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.URL, "/")+h.HealthPath, nil)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := h.Client.Do(req)
	if err != nil {
		out.Error = Classify(err)
		return out
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	status := resp.StatusCode
	out.HTTPStatus = &status
	out.Reachable = status == http.StatusOK || status == http.StatusUnauthorized
	if !out.Reachable {
		out.Error = fmt.Sprintf("status %d", status)
	}
	return out
}
