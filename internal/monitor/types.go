package monitor

import "time"

// AppInfo is one app's catalog metadata as fetched this cycle.
// Version is an opaque token: it is compared only by exact equality,
// never parsed or ordered (catalog version strings are not guaranteed
// to be semver-shaped or monotonic).
type AppInfo struct {
	AppID     string
	Name      string
	Developer string
	Version   string
	// Updated is the release time of the current version as reported by
	// the catalog. Zero when absent or unparseable.
	Updated      time.Time
	URL          string
	ReleaseNotes string
}

// ChangeKind classifies a detected version change.
type ChangeKind int

const (
	// FirstObservation: no prior version was stored for this app.
	FirstObservation ChangeKind = iota
	// NewRelease: a prior version was stored and differs from current.
	NewRelease
)

func (k ChangeKind) String() string {
	switch k {
	case FirstObservation:
		return "first_observation"
	case NewRelease:
		return "new_release"
	default:
		return "unknown"
	}
}

// Change is one detected version change, scoped to a single cycle.
type Change struct {
	AppInfo
	Kind ChangeKind
	// Previous is the stored version token, empty for FirstObservation.
	Previous string
}

// CycleState is the terminal state of one polling cycle.
type CycleState int

const (
	// CycleComplete: committed, or nothing to commit.
	CycleComplete CycleState = iota
	// CycleDegraded: one or more fetches failed but delivery/commit
	// succeeded for the rest.
	CycleDegraded
	// CycleFailed: store load, delivery, or commit failed; the store is
	// unchanged so the same changes are retried next cycle.
	CycleFailed
)

func (s CycleState) String() string {
	switch s {
	case CycleComplete:
		return "complete"
	case CycleDegraded:
		return "degraded"
	case CycleFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report summarizes one polling cycle. RunCycle always returns a
// Report; no error escapes it.
type Report struct {
	State       CycleState
	Started     time.Time
	Duration    time.Duration
	Changes     []Change
	FetchErrors map[string]error
	Delivered   bool
	Committed   bool
	// Err carries the failure that ended the cycle when State is
	// CycleFailed. Per-id fetch errors are in FetchErrors instead.
	Err error
}
