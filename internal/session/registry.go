package session

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the single shared mutable structure of the service: the table
// of live sessions. Every mutation (create, touch, remove) happens under one
// mutex so concurrent access from request handlers, the janitor, and worker
// exit supervision cannot corrupt the table.
type Registry struct {
	mu       sync.Mutex
	sessions map[ID]*Session

	root     string
	capacity int
	factory  Factory
	log      *slog.Logger
}

// NewRegistry constructs a registry that allocates working directories under
// root, holds at most capacity concurrent sessions, and starts transcoders
// through factory.
func NewRegistry(root string, capacity int, factory Factory, log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[ID]*Session),
		root:     root,
		capacity: capacity,
		factory:  factory,
		log:      log,
	}
}

// Create allocates a new session for the given upstream URL: it validates
// the URL, checks capacity and transcoder availability before allocating
// anything, creates a fresh working directory, and starts a transcoder bound
// to it. Optional credentials are injected into the URL handed to the
// transcoder and never logged.
func (r *Registry) Create(upstream string, creds *Credentials) (*Session, error) {
	u, err := url.Parse(upstream)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidUpstreamURL
	}
	if err := r.factory.Available(); err != nil {
		return nil, err
	}

	input := *u
	if creds != nil {
		input.User = url.UserPassword(creds.Username, creds.Password)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return nil, ErrCapacityExceeded
	}

	id := ID(uuid.NewString())
	dir := filepath.Join(r.root, string(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	now := time.Now().UTC()
	s := &Session{
		ID:         id,
		Upstream:   u.String(),
		Store:      NewSegmentStore(dir),
		CreatedAt:  now,
		LastAccess: now,
		state:      Starting,
	}

	w, err := r.factory.Start(s, input.String())
	if err != nil {
		_ = s.Store.Remove()
		return nil, fmt.Errorf("%w: %v", ErrTranscoderUnavailable, err)
	}
	s.worker = w
	s.state = Active
	r.sessions[id] = s

	go r.supervise(id, w)

	r.log.Info("session created",
		slog.String("session_id", string(id)),
		slog.String("upstream", s.Upstream),
	)
	return s, nil
}

// Get returns the session with the given ID, or ErrNotFound.
func (r *Registry) Get(id ID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Touch refreshes the session's last-access timestamp. Returns ErrNotFound
// for an unknown ID and has no other effect in that case.
func (r *Registry) Touch(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.LastAccess = time.Now().UTC()
	return nil
}

// Remove tears the session down: kills the transcoder, deletes the working
// directory, and drops the table entry. It is idempotent; a second call for
// the same ID returns ErrNotFound and does nothing. The same path serves
// explicit deletion, janitor eviction, and worker-exit cleanup.
func (r *Registry) Remove(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)

	if s.worker != nil {
		s.worker.Kill()
		s.worker = nil
	}
	if err := s.Store.Remove(); err != nil {
		r.log.Warn("session dir cleanup failed",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
	s.state = Terminated

	r.log.Info("session removed", slog.String("session_id", string(id)))
	return nil
}

// ExpiredIDs returns the IDs of sessions last accessed before cutoff.
func (r *Registry) ExpiredIDs(cutoff time.Time) []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []ID
	for id, s := range r.sessions {
		if s.LastAccess.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown tears down every live session. Called at process exit so no
// transcoder or working directory outlives the service.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]ID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Remove(id)
	}
}

// supervise waits for the transcoder to exit. A failed exit while the
// session is still registered is fatal for that session and triggers the
// shared teardown path; there is no automatic restart. An exit caused by
// teardown itself finds the session already gone and does nothing.
func (r *Registry) supervise(id ID, w Worker) {
	err := w.Wait()
	if err == nil {
		return
	}
	if _, getErr := r.Get(id); getErr != nil {
		return
	}
	r.log.Warn("transcoder exited, tearing session down",
		slog.String("session_id", string(id)),
		slog.String("error", err.Error()),
	)
	_ = r.Remove(id)
}
