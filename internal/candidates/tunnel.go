package candidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Hosts containing one of these are treated as developer tunnels.
var tunnelMarkers = []string{"ngrok.io", "ngrok-free.app", "ngrok.app", "exp.direct", "tunnel"}

// TunnelURL derives an https base URL from a tunnel host such as
// "abc.ngrok-free.app:443". Hosts that don't look like a tunnel yield "".
func TunnelURL(hostURI string) string {
	h := strings.TrimSpace(hostURI)
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	h = strings.SplitN(h, "/", 2)[0]
	h = strings.ToLower(strings.SplitN(h, ":", 2)[0])
	if h == "" {
		return ""
	}
	for _, m := range tunnelMarkers {
		if strings.Contains(h, m) {
			return "https://" + h
		}
	}
	return ""
}

type ngrokTunnels struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// DetectNgrokHost asks a local ngrok agent (e.g. http://127.0.0.1:4040) for its
// public tunnel and returns the host part, preferring https tunnels.
func DetectNgrokHost(ctx context.Context, client *http.Client, apiBase string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiBase, "/")+"/api/tunnels", nil)
	if err != nil {
		return "", fmt.Errorf("ngrok request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ngrok api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ngrok api: status %d", resp.StatusCode)
	}

	var body ngrokTunnels
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode ngrok tunnels: %w", err)
	}
	if len(body.Tunnels) == 0 {
		return "", errors.New("ngrok: no tunnels")
	}

	public := body.Tunnels[0].PublicURL
	for _, t := range body.Tunnels {
		if t.Proto == "https" {
			public = t.PublicURL
			break
		}
	}
	u, err := url.Parse(public)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("ngrok: bad public url %q", public)
	}
	return u.Host, nil
}
