package session

import (
	"strings"
)

// RewriteManifest relocates every segment reference in a raw HLS manifest to
// this service's own segment route for the given session. Comment and tag
// lines (and blank lines) pass through unchanged; the manifest structure is
// otherwise untouched.
func RewriteManifest(raw []byte, id ID) []byte {
	var b strings.Builder
	b.Grow(len(raw) + 256)

	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			b.WriteString(line)
			b.WriteString("\n")
			continue
		}
		// Segment references are plain file names relative to the session
		// directory; strip any path prefix the muxer may have written.
		name := trimmed
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		b.WriteString(SegmentRoute(id, name))
		b.WriteString("\n")
	}

	out := b.String()
	// Split/rejoin adds one trailing newline; drop it if the input had none.
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		out = strings.TrimSuffix(out, "\n")
	}
	return []byte(out)
}

// ManifestRoute returns the service-relative manifest URL for a session.
func ManifestRoute(id ID) string {
	return "/sessions/" + string(id) + "/manifest"
}

// SegmentRoute returns the service-relative URL for one segment of a session.
func SegmentRoute(id ID, name string) string {
	return "/sessions/" + string(id) + "/segments/" + name
}
