// Package candidates produces the ordered list of backend base URLs the
// resolver should try.
package candidates

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// MaxScanCandidates bounds the LAN-scan tier so a scan round stays short.
const MaxScanCandidates = 100

type Fallback struct {
	URL   string
	Label string
}

type ScanRange struct {
	Base string // e.g. "192.168.1."
	Name string
}

var (
	DefaultScanRanges = []ScanRange{
		{Base: "192.168.1.", Name: "Home Network Range"},
		{Base: "192.168.0.", Name: "Alt Home Range"},
		{Base: "10.0.0.", Name: "Corporate Range"},
		{Base: "172.20.10.", Name: "Hotspot Range"},
	}
	DefaultCommonPorts = []int{8000, 8080, 8081, 3000, 5000}
	DefaultFallbacks   = []Fallback{
		{URL: "http://localhost:8000", Label: "Localhost"},
		{URL: "http://127.0.0.1:8000", Label: "Loopback"},
	}
)

// Env is everything known about the environment at resolution time.
// Empty fields simply skip their tier.
type Env struct {
	Explicit   string // runtime config override
	TunnelHost string // dev tunnel host, e.g. "abc.ngrok-free.app:443"
	EnvURL     string // BACKEND_URL
	LANIP      string // detected local IPv4

	LANScan     bool
	ScanRanges  []ScanRange
	CommonPorts []int
	HostStart   int
	HostEnd     int
	ScanLimit   int
	Fallbacks   []Fallback
}

// Build returns the candidates for env, highest priority first. It is a pure
// function of env and always includes the static fallback tier.
func Build(env Env) []domain.Candidate {
	b := &builder{seen: make(map[string]bool)}

	b.add(NormalizeURL(env.Explicit), "Explicit config", domain.SourceExplicit)
	if u := TunnelURL(env.TunnelHost); u != "" {
		b.add(u, "Tunnel ("+strings.TrimPrefix(u, "https://")+")", domain.SourceTunnel)
	}
	b.add(NormalizeURL(env.EnvURL), "BACKEND_URL", domain.SourceEnv)

	if env.LANScan {
		for _, c := range lanTargets(env) {
			b.add(c.url, c.label, domain.SourceLANScan)
		}
	}

	fallbacks := env.Fallbacks
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbacks
	}
	for _, fb := range fallbacks {
		u := NormalizeURL(fb.URL)
		label := fb.Label
		if label == "" {
			label = u
		}
		b.add(u, label, domain.SourceStaticFallback)
	}
	return b.out
}

type builder struct {
	seen map[string]bool
	out  []domain.Candidate
}

func (b *builder) add(u, label string, src domain.Source) {
	if u == "" || b.seen[u] {
		return
	}
	b.seen[u] = true
	b.out = append(b.out, domain.Candidate{
		URL:      u,
		Label:    label,
		Priority: src.Priority(),
		Source:   src,
	})
}

// NormalizeURL trims whitespace and trailing slashes and defaults the scheme
// to http. It returns "" for values that do not parse to a URL with a host.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	s = strings.TrimRight(s, "/")
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

type lanTarget struct {
	url   string
	label string
}

func lanTargets(env Env) []lanTarget {
	limit := env.ScanLimit
	if limit <= 0 || limit > MaxScanCandidates {
		limit = MaxScanCandidates
	}
	ports := env.CommonPorts
	if len(ports) == 0 {
		ports = DefaultCommonPorts
	}
	start, end := env.HostStart, env.HostEnd
	if start < 1 || end > 254 || end < start {
		start, end = 1, 20
	}
	ranges := env.ScanRanges
	if len(ranges) == 0 {
		ranges = DefaultScanRanges
	}

	seen := make(map[string]bool)
	out := make([]lanTarget, 0, limit)
	add := func(host, label string) bool {
		for _, port := range ports {
			if len(out) >= limit {
				return false
			}
			u := fmt.Sprintf("http://%s:%d", host, port)
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, lanTarget{url: u, label: label})
		}
		return true
	}

	if ip := net.ParseIP(strings.TrimSpace(env.LANIP)).To4(); ip != nil {
		if !add(ip.String(), "Detected LAN IP") {
			return out
		}
		prefix := fmt.Sprintf("%d.%d.%d.", ip[0], ip[1], ip[2])
		ranges = append([]ScanRange{{Base: prefix, Name: "Detected Subnet"}}, ranges...)
	}

	for _, r := range ranges {
		for i := start; i <= end; i++ {
			if !add(fmt.Sprintf("%s%d", r.Base, i), "Auto-detected ("+r.Name+")") {
				return out
			}
		}
	}
	return out
}
