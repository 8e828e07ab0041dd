// Package status serves a read-only view of a running agent over HTTP.
package status

import "time"

// Snapshot is the agent state exposed on /status.
type Snapshot struct {
	Agent       string    `json:"agent"`
	PageURL     string    `json:"page_url,omitempty"`
	Observer    string    `json:"observer"`
	LastScan    int       `json:"last_scan"`
	Scans       int       `json:"scans"`
	Injections  int       `json:"injections"`
	LastRun     string    `json:"last_run,omitempty"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Provider returns the current Snapshot.
type Provider interface {
	Snapshot() Snapshot
}
