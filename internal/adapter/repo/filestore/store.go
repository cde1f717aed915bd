// Package filestore keeps one JSON snapshot file per session on local disk.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// Store implements domain.SessionRepository under a directory.
type Store struct {
	dir string
}

// New creates dir if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("op=filestore.New: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) (string, error) {
	if !domain.ValidSessionID(id) {
		return "", fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidArgument, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Get loads a snapshot by id.
func (s *Store) Get(_ domain.Context, id string) (domain.Session, error) {
	p, err := s.path(id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=filestore.Get: %w", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Session{}, fmt.Errorf("op=filestore.Get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=filestore.Get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=filestore.Get: decode: %w", err)
	}
	return sess, nil
}

// Save writes the snapshot to a temp file and renames it into place, so a
// reader never sees a partial snapshot.
func (s *Store) Save(_ domain.Context, sess domain.Session) error {
	p, err := s.path(sess.ID)
	if err != nil {
		return fmt.Errorf("op=filestore.Save: %w", err)
	}
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("op=filestore.Save: encode: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, sess.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("op=filestore.Save: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("op=filestore.Save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("op=filestore.Save: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("op=filestore.Save: %w", err)
	}
	return nil
}

// Delete removes a snapshot; unknown ids report ErrNotFound.
func (s *Store) Delete(_ domain.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return fmt.Errorf("op=filestore.Delete: %w", err)
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("op=filestore.Delete: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("op=filestore.Delete: %w", err)
	}
	return nil
}

// Ping reports whether the directory is still usable.
func (s *Store) Ping(_ domain.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("op=filestore.Ping: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("op=filestore.Ping: %s is not a directory", s.dir)
	}
	return nil
}
