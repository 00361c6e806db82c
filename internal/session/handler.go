package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"iptv-relay/internal/platform/metrics"
	"iptv-relay/internal/streamauth"

	"github.com/go-chi/chi/v5"
)

const (
	manifestContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"
)

// createRequest is the body of POST /sessions.
type createRequest struct {
	URL string `json:"url"`
}

// createResponse is the body of a successful POST /sessions.
type createResponse struct {
	SessionID   string `json:"sessionId"`
	ManifestURL string `json:"manifestUrl"`
}

// Handler exposes the session HTTP endpoints using go-chi.
type Handler struct {
	reg     *Registry
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over the given Registry, Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g. in
// tests).
func NewHandler(reg *Registry, svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{reg: reg, svc: svc, log: log, metrics: m}
}

// Routes mounts the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/manifest", h.GetManifest)
		r.Get("/segments/{name}", h.GetSegment)
		r.Delete("/", h.DeleteSession)
	})
}

// CreateSession handles POST /sessions. Body: { "url": "http://..." }.
// Optional X-Stream-Auth header carries base64 user:pass credentials for the
// upstream.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var creds *Credentials
	user, pass, ok, err := streamauth.Decode(r.Header.Get(streamauth.Header))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if ok {
		creds = &Credentials{Username: user, Password: pass}
	}

	s, err := h.reg.Create(req.URL, creds)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUpstreamURL):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, ErrCapacityExceeded):
			h.log.Warn("session rejected at capacity")
			w.WriteHeader(http.StatusTooManyRequests)
		case errors.Is(err, ErrTranscoderUnavailable):
			h.log.Error("transcoder unavailable", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			h.log.Error("create session failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncSessionsCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createResponse{
		SessionID:   string(s.ID),
		ManifestURL: ManifestRoute(s.ID),
	})
}

// GetManifest handles GET /sessions/{session_id}/manifest. Returns 503 while
// the transcoder has not produced a manifest yet (clients should retry) and
// 404 for an unknown or expired session.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m, err := h.svc.Manifest(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, ErrManifestNotReady):
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			h.log.Error("get manifest failed",
				slog.String("session_id", string(id)),
				slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", manifestContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(m)
}

// GetSegment handles GET /sessions/{session_id}/segments/{name}.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	name := chi.URLParam(r, "name")
	if id == "" || name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b, err := h.svc.Segment(id, name)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrSegmentNotFound):
			w.WriteHeader(http.StatusNotFound)
		default:
			h.log.Error("get segment failed",
				slog.String("session_id", string(id)),
				slog.String("segment", name),
				slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", segmentContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteSession handles DELETE /sessions/{session_id}. Teardown is
// idempotent; deleting an already-removed session yields 404 without side
// effects.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.reg.Remove(id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
