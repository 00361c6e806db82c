package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *Registry) {
	t.Helper()
	reg, _ := newTestRegistry(t, 4)
	svc := NewService(reg, 3, 5*time.Millisecond)
	return svc, reg
}

func TestService_Manifest_unknown_session(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Manifest(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Manifest_not_ready(t *testing.T) {
	svc, reg := newTestService(t)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Manifest(context.Background(), s.ID)
	if !errors.Is(err, ErrManifestNotReady) {
		t.Errorf("expected ErrManifestNotReady before worker output, got %v", err)
	}
}

func TestService_Manifest_rewritten(t *testing.T) {
	svc, reg := newTestService(t)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw := "#EXTM3U\n#EXTINF:2.0,\nseg_00001.ts\n"
	if err := os.WriteFile(s.Store.ManifestPath(), []byte(raw), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := svc.Manifest(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	want := SegmentRoute(s.ID, "seg_00001.ts")
	if !strings.Contains(string(m), want) {
		t.Errorf("manifest should reference %s: %s", want, m)
	}
}

func TestService_Manifest_becomes_ready_during_poll(t *testing.T) {
	reg, _ := newTestRegistry(t, 4)
	svc := NewService(reg, 20, 5*time.Millisecond)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(s.Store.ManifestPath(), []byte("#EXTM3U\nseg_00001.ts\n"), 0o644)
	}()

	m, err := svc.Manifest(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Manifest should succeed once the file appears: %v", err)
	}
	if !strings.Contains(string(m), "seg_00001.ts") {
		t.Errorf("unexpected manifest: %s", m)
	}
}

func TestService_Manifest_touches_session(t *testing.T) {
	svc, reg := newTestService(t)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(s.Store.ManifestPath(), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	before := s.LastAccess
	time.Sleep(5 * time.Millisecond)
	if _, err := svc.Manifest(context.Background(), s.ID); err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if !s.LastAccess.After(before) {
		t.Error("manifest fetch should refresh last-access")
	}
}

func TestService_Manifest_cancelled_context(t *testing.T) {
	reg, _ := newTestRegistry(t, 4)
	svc := NewService(reg, 50, 50*time.Millisecond)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.Manifest(ctx, s.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestService_Segment(t *testing.T) {
	svc, reg := newTestService(t)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.Store.Dir(), "seg_00001.ts"), []byte("tsbytes"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}

	b, err := svc.Segment(s.ID, "seg_00001.ts")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if string(b) != "tsbytes" {
		t.Errorf("segment bytes mismatch: %q", b)
	}
}

func TestService_Segment_not_found(t *testing.T) {
	svc, reg := newTestService(t)

	s, err := reg.Create("http://example.com/live.m3u8", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Segment(s.ID, "seg_00042.ts"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
	if _, err := svc.Segment("missing", "seg_00001.ts"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}
}
