package session

import (
	"errors"
	"time"
)

// ID uniquely identifies a transcoding session. IDs are opaque tokens
// generated at creation and never reused.
type ID string

// State describes where a session is in its lifecycle.
type State int

const (
	// Starting means the session exists but its transcoder has not been
	// confirmed running yet.
	Starting State = iota
	// Active means the transcoder process is running and producing output.
	Active
	// Terminated means teardown has completed. A terminated session is
	// never resurrected; its ID resolves to not-found from then on.
	Terminated
)

// Credentials are optional upstream credentials supplied at session creation.
// They are injected into the upstream URL handed to the transcoder and are
// never logged.
type Credentials struct {
	Username string
	Password string
}

// Session is one viewer's on-demand transcoding instance: an upstream URL, a
// working directory holding the manifest and rolling segments, and at most
// one transcoder process.
type Session struct {
	ID         ID
	Upstream   string // upstream URL without credentials, safe to log
	Store      *SegmentStore
	CreatedAt  time.Time
	LastAccess time.Time

	state  State
	worker Worker // nil once terminated
}

// State returns the session's lifecycle state. Transitions happen under the
// registry's lock.
func (s *Session) State() State {
	return s.state
}

var (
	// ErrInvalidUpstreamURL is returned when the upstream URL is malformed
	// or uses a non-HTTP scheme. Rejected before any resource allocation.
	ErrInvalidUpstreamURL = errors.New("invalid upstream url")

	// ErrTranscoderUnavailable is returned when the transcoder binary
	// cannot be invoked.
	ErrTranscoderUnavailable = errors.New("transcoder unavailable")

	// ErrCapacityExceeded is returned when the registry is at its session
	// ceiling.
	ErrCapacityExceeded = errors.New("session capacity exceeded")

	// ErrNotFound is returned for an unknown or already-evicted session ID.
	ErrNotFound = errors.New("session not found")

	// ErrManifestNotReady is returned when the transcoder has not produced
	// a manifest yet. Retryable; clients should poll again.
	ErrManifestNotReady = errors.New("manifest not ready")

	// ErrSegmentNotFound is returned when a segment has been pruned by the
	// rolling window or was never produced.
	ErrSegmentNotFound = errors.New("segment not found")
)
