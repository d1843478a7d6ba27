package model

import "time"

// ApplyResult is the per-artifact entry of an ApplyReport.
type ApplyResult struct {
	Path    string       `json:"path"`
	Outcome ApplyOutcome `json:"outcome"`
	Hash    HashValue    `json:"hash,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ApplyReport summarizes one apply run over a session. It is returned even
// when some artifacts failed; the caller decides whether partial success is
// acceptable.
type ApplyReport struct {
	SessionID SessionID      `json:"session_id"`
	StartedAt time.Time      `json:"started_at"`
	Results   []*ApplyResult `json:"results"`
	Applied   int            `json:"applied"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
}

// Add appends a result and updates the counters.
func (r *ApplyReport) Add(res *ApplyResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeApplied:
		r.Applied++
	case OutcomeFailedIO:
		r.Failed++
	default:
		r.Skipped++
	}
}
