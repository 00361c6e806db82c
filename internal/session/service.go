package session

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Defaults for the bounded manifest-readiness poll: a fixed retry count with
// a fixed delay, never an unbounded wait.
const (
	DefaultManifestRetries = 10
	DefaultManifestDelay   = 500 * time.Millisecond
)

// Service serves manifests and segments for live sessions. Manifest reads
// wait a bounded time for the transcoder's first output; segment reads are
// immediate. Both refresh the session's last-access timestamp.
type Service struct {
	reg     *Registry
	retries int
	delay   time.Duration
}

// NewService returns a Service over reg. retries and delay bound the
// manifest-readiness poll; non-positive values fall back to the defaults.
func NewService(reg *Registry, retries int, delay time.Duration) *Service {
	if retries <= 0 {
		retries = DefaultManifestRetries
	}
	if delay <= 0 {
		delay = DefaultManifestDelay
	}
	return &Service{reg: reg, retries: retries, delay: delay}
}

// Manifest touches the session, waits for the manifest file to appear (up to
// the configured retry budget), and returns it with every segment reference
// rewritten to this service's segment route. Returns ErrNotFound for an
// unknown session and ErrManifestNotReady if the transcoder has produced no
// manifest within the poll budget.
func (s *Service) Manifest(ctx context.Context, id ID) ([]byte, error) {
	if err := s.reg.Touch(id); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		// Re-resolve each attempt: the session can be torn down while we
		// wait, and a stale ID must resolve to not-found.
		sess, err := s.reg.Get(id)
		if err != nil {
			return nil, err
		}
		raw, err := sess.Store.ReadManifest()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		return RewriteManifest(raw, id), nil
	}

	return nil, ErrManifestNotReady
}

// Segment touches the session and returns the raw bytes of the named
// segment. Returns ErrNotFound for an unknown session and ErrSegmentNotFound
// if the segment has been pruned by the rolling window or never existed.
func (s *Service) Segment(id ID, name string) ([]byte, error) {
	if err := s.reg.Touch(id); err != nil {
		return nil, err
	}
	sess, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Store.ReadSegment(name)
}
