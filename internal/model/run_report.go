package model

import (
	"sort"
	"time"
)

// RunReport aggregates the results of one validation run.
type RunReport struct {
	// Endpoint is the URL every key was checked against.
	Endpoint string `json:"endpoint"`

	// AuthMode is the credential placement used ("query", "bearer",
	// or "header").
	AuthMode string `json:"auth_mode"`

	// KeyFile is the path the keys were loaded from.
	KeyFile string `json:"key_file"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration_ms"`

	// Results holds one entry per input key. After Sort, active keys
	// come first; within each group the original input order holds.
	Results []KeyResult `json:"results"`

	// ErrorMessage is set when the run itself failed (as opposed to
	// individual keys failing).
	ErrorMessage string `json:"error,omitempty"`
}

// Sort orders Results active-first. The sort is stable, so keys keep
// their original input order within the active and non-active groups.
func (r *RunReport) Sort() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		return r.Results[i].OK && !r.Results[j].OK
	})
}

// ActiveKeys returns the raw keys that were classified active, in
// their current Results order.
func (r *RunReport) ActiveKeys() []string {
	keys := make([]string, 0, r.ActiveCount())
	for _, res := range r.Results {
		if res.OK {
			keys = append(keys, res.Key)
		}
	}
	return keys
}

// TotalCount returns the number of keys checked.
func (r *RunReport) TotalCount() int { return len(r.Results) }

// ActiveCount returns the number of keys the endpoint accepted.
func (r *RunReport) ActiveCount() int { return r.countStatus(StatusActive) }

// InvalidCount returns the number of keys the endpoint rejected.
func (r *RunReport) InvalidCount() int { return r.countStatus(StatusInvalid) }

// ErrorCount returns the number of keys whose requests failed without
// an HTTP response.
func (r *RunReport) ErrorCount() int { return r.countStatus(StatusError) }

func (r *RunReport) countStatus(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
