package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultIdleTimeout is how long a session may go without a manifest or
// segment fetch before the janitor evicts it.
const DefaultIdleTimeout = 10 * time.Minute

// Janitor periodically evicts idle sessions. It runs on a fixed interval
// independent of client activity and reuses the registry's teardown path, so
// eviction racing a concurrent segment fetch resolves as a harmless 404.
// It is also the structural backstop against leaked directories and
// processes from bugs elsewhere.
type Janitor struct {
	reg         *Registry
	interval    time.Duration
	idleTimeout time.Duration
	log         *slog.Logger
	onEvict     func(n int)
}

// NewJanitor returns a Janitor sweeping reg every interval, evicting
// sessions idle longer than idleTimeout. onEvict, if non-nil, is called
// after each sweep that evicted at least one session (e.g. to bump a
// metric).
func NewJanitor(reg *Registry, interval, idleTimeout time.Duration, log *slog.Logger, onEvict func(n int)) *Janitor {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Janitor{
		reg:         reg,
		interval:    interval,
		idleTimeout: idleTimeout,
		log:         log,
		onEvict:     onEvict,
	}
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep evicts every session idle past the timeout and returns how many
// were evicted.
func (j *Janitor) Sweep() int {
	cutoff := time.Now().UTC().Add(-j.idleTimeout)

	evicted := 0
	for _, id := range j.reg.ExpiredIDs(cutoff) {
		if err := j.reg.Remove(id); err != nil {
			// Already gone; another teardown trigger won the race.
			continue
		}
		j.log.Info("idle session evicted", slog.String("session_id", string(id)))
		evicted++
	}

	if evicted > 0 && j.onEvict != nil {
		j.onEvict(evicted)
	}
	return evicted
}
