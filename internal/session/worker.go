package session

import (
	"bufio"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// Worker is a handle to one running transcoder process.
type Worker interface {
	// Kill terminates the process immediately. Output correctness after
	// teardown is irrelevant, so no graceful stop is attempted. Safe to
	// call more than once.
	Kill()
	// Wait blocks until the process exits and returns its exit error.
	// Must be called exactly once.
	Wait() error
}

// Factory starts transcoder processes. The registry uses it so tests can
// substitute a stub, the same way the repository accepts a pluggable Store.
type Factory interface {
	// Available reports whether the transcoder can be invoked at all.
	// Checked before any resource is allocated for a new session.
	Available() error
	// Start launches a transcoder writing into the session's store,
	// consuming the given input URL (which may carry credentials and must
	// not be logged).
	Start(s *Session, inputURL string) (Worker, error)
}

// FFmpegFactory launches ffmpeg processes that copy the video track, remux
// audio to stereo AAC, and emit a rolling HLS output into the session
// directory.
type FFmpegFactory struct {
	Path           string // ffmpeg binary, e.g. "ffmpeg"
	SegmentSeconds int    // target segment duration
	WindowSize     int    // playlist window; older segments are deleted
	Log            *slog.Logger
}

// Available implements Factory.Available via exec.LookPath.
func (f *FFmpegFactory) Available() error {
	if _, err := exec.LookPath(f.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrTranscoderUnavailable, err)
	}
	return nil
}

// Start implements Factory.Start.
func (f *FFmpegFactory) Start(s *Session, inputURL string) (Worker, error) {
	args := f.buildArgs(s, inputURL)

	cmd := exec.Command(f.Path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transcoder: %w", err)
	}

	// Diagnostic output is captured for observability only, never parsed
	// for control decisions.
	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			f.Log.Debug("transcoder",
				slog.String("session_id", string(s.ID)),
				slog.String("line", sc.Text()),
			)
		}
	}()

	return &ffmpegWorker{cmd: cmd}, nil
}

// buildArgs assembles the ffmpeg invocation: video copied unmodified to
// avoid re-encoding cost, audio remuxed to stereo AAC, short rolling HLS
// segments with old ones deleted as new ones are appended.
func (f *FFmpegFactory) buildArgs(s *Session, inputURL string) []string {
	dir := s.Store.Dir()
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-i", inputURL,
		"-c:v", "copy",
		"-c:a", "aac",
		"-ac", "2",
		"-f", "hls",
		"-hls_time", strconv.Itoa(f.SegmentSeconds),
		"-hls_list_size", strconv.Itoa(f.WindowSize),
		"-hls_flags", "delete_segments",
		"-hls_segment_filename", filepath.Join(dir, "seg_%05d.ts"),
		filepath.Join(dir, ManifestName),
	}
}

type ffmpegWorker struct {
	cmd      *exec.Cmd
	killOnce sync.Once
}

func (w *ffmpegWorker) Kill() {
	w.killOnce.Do(func() {
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
	})
}

func (w *ffmpegWorker) Wait() error {
	return w.cmd.Wait()
}
