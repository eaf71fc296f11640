package domain

import "time"

type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeAbandoned Outcome = "abandoned"
)

// Resolution records one resolution cycle for the history log.
type Resolution struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Forced     bool      `json:"forced"`
	Outcome    Outcome   `json:"outcome"`
	BaseURL    string    `json:"base_url,omitempty"`
	Label      string    `json:"label,omitempty"`
	Source     Source    `json:"source,omitempty"`
	Probed     int       `json:"probed"`
	Error      string    `json:"error,omitempty"`
}

// Status is a point-in-time view of the resolver.
type Status struct {
	Current    *ResolvedEndpoint `json:"current"`
	Resolving  bool              `json:"resolving"`
	Candidates []Candidate       `json:"candidates"`
}
