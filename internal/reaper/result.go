// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import "time"

// Termination says why a sweep stopped paging.
type Termination string

const (
	// TerminationEarlyExit: the first record not older than maxAge was reached.
	TerminationEarlyExit Termination = "early_exit"
	// TerminationEmptyPage: ListPage returned nothing.
	TerminationEmptyPage Termination = "empty_page"
	// TerminationCountReached: the offset reached the count taken at start.
	TerminationCountReached Termination = "count_reached"
	TerminationQueryFailed  Termination = "query_failed"
	TerminationCanceled     Termination = "canceled"
	// TerminationPanicked: a collaborator panicked mid-sweep.
	TerminationPanicked Termination = "panicked"
)

// Result summarises one sweep.
type Result struct {
	SweepID        string        `json:"sweep_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	CountAtStart   int           `json:"count_at_start"`
	PagesFetched   int           `json:"pages_fetched"`
	Scanned        int           `json:"scanned"`
	Expired        int           `json:"expired"`
	StopFailures   int           `json:"stop_failures"`
	DeleteFailures int           `json:"delete_failures"`
	Termination    Termination   `json:"termination"`
	Policy         PolicySummary `json:"policy"`
}

// PolicySummary is the policy a sweep ran with, in log/JSON friendly form.
type PolicySummary struct {
	MaxAge   string `json:"max_age"`
	PageSize int    `json:"page_size"`
}

// Duration is the wall time the sweep took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
