// Package relay implements the stateless passthrough proxy for upstream
// streams that need no transcoding. It forwards range and conditional
// headers, mirrors the upstream status, and streams the body without
// buffering it, so arbitrarily large or infinite live streams run in
// bounded memory.
package relay

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"iptv-relay/internal/platform/metrics"
	"iptv-relay/internal/streamauth"
)

// Request headers forwarded verbatim to the upstream.
var forwardRequestHeaders = []string{
	"Range",
	"If-Modified-Since",
	"If-None-Match",
}

// Response headers copied verbatim from the upstream when present.
var forwardResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Last-Modified",
	"ETag",
}

// Relay proxies upstream byte streams straight through to the client.
type Relay struct {
	client  *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Relay. The HTTP client has connection-level timeouts but no
// overall deadline, since live streams have no natural end. Metrics may be
// nil.
func New(log *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		log:     log,
		metrics: m,
	}
}

// NewWithClient returns a Relay using the given client. Useful for tests.
func NewWithClient(client *http.Client, log *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{client: client, log: log, metrics: m}
}

// Stream handles GET /relay?url=... . It forwards Range and conditional
// cache headers upstream, accepts upstream 200, 206, or 304 and mirrors
// that exact status, and copies the body chunk-by-chunk. Credentials arrive
// in the X-Stream-Auth header and become standard basic authorization on
// the upstream request; they are never read from query parameters.
func (rl *Relay) Stream(w http.ResponseWriter, r *http.Request) {
	if rl.metrics != nil {
		rl.metrics.IncRelayRequests()
	}

	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, hdr := range forwardRequestHeaders {
		if v := r.Header.Get(hdr); v != "" {
			req.Header.Set(hdr, v)
		}
	}

	user, pass, ok, err := streamauth.Decode(r.Header.Get(streamauth.Header))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if ok {
		req.SetBasicAuth(user, pass)
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		rl.log.Warn("upstream fetch failed",
			slog.String("host", u.Host),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent, http.StatusNotModified:
	default:
		rl.log.Warn("upstream returned hard error",
			slog.String("host", u.Host),
			slog.Int("status", resp.StatusCode))
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	for _, hdr := range forwardResponseHeaders {
		if v := resp.Header.Get(hdr); v != "" {
			w.Header().Set(hdr, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Client hung up or upstream dropped mid-stream; nothing to send.
		rl.log.Debug("relay copy ended",
			slog.String("host", u.Host),
			slog.String("error", err.Error()))
	}
}
