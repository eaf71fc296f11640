package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/endpointresolver/internal/httpapi/middleware"
	"github.com/hamed0406/endpointresolver/internal/request"
)

const (
	resolvedBackendHeader = "X-Resolved-Backend"
	maxProxyBody          = 10 << 20
)

// Hop-by-hop headers, plus our own API key header, never cross the proxy.
// A bearer key is dropped per request once auth has accepted it.
var skipHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"X-Api-Key":           true,
}

// handleProxy forwards /proxy/<path> to the resolved backend through the
// resilient client, so callers get endpoint failover for free.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	path := proxyPath(chi.URLParam(r, "*"), r.URL.RawQuery)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "body too large"})
		return
	}
	hdr := copyHeaders(r.Header)
	if h := apimw.AuthHeader(r.Context()); h != "" {
		hdr.Del(h)
	}
	opts := request.Options{Method: r.Method, Header: hdr}
	if len(body) > 0 {
		opts.Body = body
	}

	resp, err := s.Client.Do(r.Context(), path, opts)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrBackendUnreachable):
			s.Logger.Warn("proxy_backend_unreachable", zap.String("path", path), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "backend unreachable"})
		case r.Context().Err() != nil:
			// client went away
		default:
			s.Logger.Warn("proxy_error", zap.String("path", path), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "proxy error"})
		}
		return
	}
	defer resp.Body.Close()

	for k, vs := range copyHeaders(resp.Header) {
		w.Header()[k] = vs
	}
	if resp.Request != nil && resp.Request.URL != nil {
		w.Header().Set(resolvedBackendHeader, resp.Request.URL.Scheme+"://"+resp.Request.URL.Host)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.Logger.Debug("proxy_copy_interrupted", zap.String("path", path), zap.Error(err))
	}
}

func proxyPath(rest, rawQuery string) string {
	p := "/" + strings.TrimLeft(rest, "/")
	if rawQuery != "" {
		p += "?" + rawQuery
	}
	return p
}

func copyHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if skipHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}
