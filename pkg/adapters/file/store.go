package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/voyage/pkg/domain"
)

const (
	ext        = ".json"
	tempPrefix = "tmp-"
)

// ErrInvalidSessionID is returned for ids that cannot be used as a file name.
var ErrInvalidSessionID = domain.ErrInvalidSessionID

// Store keeps one indented JSON document per session under BasePath.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath, or ".voyage/sessions" when empty.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".voyage", "sessions")
	}
	return &Store{BasePath: basePath}
}

// path maps a session id to its file, refusing ids that would leave BasePath.
func (s *Store) path(sessionID string) (string, error) {
	switch {
	case sessionID == "", sessionID == ".", sessionID == "..",
		sessionID != filepath.Base(sessionID), strings.HasPrefix(sessionID, tempPrefix):
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+ext), nil
}

// Save writes the conversation atomically: a synced temp file in the same
// directory is renamed over the previous checkpoint.
func (s *Store) Save(_ context.Context, sessionID string, state *domain.State) error {
	dest, err := s.path(sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}
	return writeAtomic(dest, tempPrefix+sessionID+"-*"+ext, data)
}

func writeAtomic(dest, pattern string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync session file: %w", err)
	}
	// Windows refuses to rename an open file or to rename over an existing one.
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err = os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move session file into place: %w", err)
	}
	return nil
}

func (s *Store) Load(_ context.Context, sessionID string) (*domain.State, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	state := new(domain.State)
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", p, err)
	}
	return state, nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the ids of the checkpoints on disk, sorted. Temp files left by
// an interrupted Save are skipped.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := []string{}
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ext)
		if e.IsDir() || !ok || strings.HasPrefix(id, tempPrefix) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
