package session

import (
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the manifest file the transcoder writes into each
// session's working directory.
const ManifestName = "index.m3u8"

// SegmentStore is the ephemeral on-disk state of one session: a working
// directory holding the manifest and the rolling segment files. The
// transcoder is the only writer; readers tolerate files disappearing at any
// time (the worker prunes old segments as new ones are appended).
type SegmentStore struct {
	dir string
}

// NewSegmentStore returns a store rooted at dir. The directory must already
// exist; the registry creates it as part of session creation.
func NewSegmentStore(dir string) *SegmentStore {
	return &SegmentStore{dir: dir}
}

// Dir returns the store's working directory.
func (s *SegmentStore) Dir() string {
	return s.dir
}

// ManifestPath returns the absolute path of the session's manifest file.
func (s *SegmentStore) ManifestPath() string {
	return filepath.Join(s.dir, ManifestName)
}

// ReadManifest returns the raw manifest bytes, or an error satisfying
// os.IsNotExist if the transcoder has not written one yet.
func (s *SegmentStore) ReadManifest() ([]byte, error) {
	return os.ReadFile(s.ManifestPath())
}

// ReadSegment returns the raw bytes of the named segment file. The name is
// resolved strictly within the working directory: anything containing a path
// separator or not equal to its own base name is rejected as not found, so a
// crafted name can never escape the session's directory.
func (s *SegmentStore) ReadSegment(name string) ([]byte, error) {
	if !validSegmentName(name) {
		return nil, ErrSegmentNotFound
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSegmentNotFound
		}
		return nil, err
	}
	return b, nil
}

// Remove deletes the working directory and everything in it.
func (s *SegmentStore) Remove() error {
	return os.RemoveAll(s.dir)
}

// validSegmentName reports whether name is a plain file name that stays
// inside the session directory.
func validSegmentName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
