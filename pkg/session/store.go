package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no session has the requested ID.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID is returned for IDs that cannot name a session file.
	ErrInvalidID = errors.New("invalid session id")
)

// Store persists session records.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	// List returns every stored session, newest first.
	List(ctx context.Context) ([]*Session, error)
}

// JSONStore keeps one <id>.json document per session in a directory.
type JSONStore struct {
	dir string
	mu  sync.RWMutex
}

// NewJSONStore creates a store rooted at dir. The directory is created on
// first save.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

// Dir returns the store directory.
func (s *JSONStore) Dir() string {
	return s.dir
}

func (s *JSONStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save writes the session atomically.
func (s *JSONStore) Save(ctx context.Context, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads one session. Returns ErrNotFound if it does not exist.
func (s *JSONStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return load(path, id)
}

func load(path, id string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns every stored session, newest first. Unreadable documents are
// skipped.
func (s *JSONStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Session
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		sess, err := load(filepath.Join(s.dir, name), strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// Resolve finds a session by full ID or unique ID prefix.
func Resolve(ctx context.Context, store Store, ref string) (*Session, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	sess, err := store.Load(ctx, ref)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidID) {
		return nil, err
	}

	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var match *Session
	for _, sess := range all {
		if strings.HasPrefix(sess.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("session prefix %q is ambiguous", ref)
			}
			match = sess
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return match, nil
}
