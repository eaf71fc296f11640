package domain

import "time"

// Source names the tier a candidate was drawn from.
type Source string

const (
	SourceExplicit       Source = "explicit"
	SourceTunnel         Source = "tunnel"
	SourceEnv            Source = "env"
	SourceLANScan        Source = "lan-scan"
	SourceStaticFallback Source = "static-fallback"
)

// Priority returns the try-order of the tier (lower is tried first).
func (s Source) Priority() int {
	switch s {
	case SourceExplicit:
		return 0
	case SourceTunnel:
		return 1
	case SourceEnv:
		return 2
	case SourceLANScan:
		return 3
	default:
		return 4
	}
}

type Candidate struct {
	URL      string `json:"url"`
	Label    string `json:"label"`
	Priority int    `json:"priority"`
	Source   Source `json:"source"`
}

type ProbeResult struct {
	Candidate  Candidate `json:"candidate"`
	Reachable  bool      `json:"reachable"`
	HTTPStatus *int      `json:"http_status"` // nil when no response was received
	ElapsedMS  float64   `json:"elapsed_ms"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ResolvedEndpoint is the confirmed backend base URL. Values are never
// mutated after construction; replacing the current one swaps the pointer.
type ResolvedEndpoint struct {
	BaseURL    string    `json:"base_url"`
	Label      string    `json:"label"`
	ResolvedAt time.Time `json:"resolved_at"`
	Source     Source    `json:"source"`
}
