// Package session owns the client-held session: the bearer credential plus
// the serialized identity, persisted under the user's home directory. It is
// a state container with a persistence side effect; no network calls
// originate here.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/arjunmehta/captchapay/pkg/domain"
)

// Dir returns the client state directory, ~/.captchapay.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".captchapay"), nil
}

// persisted is the on-disk shape of a session.
type persisted struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Store holds the current session and persists mutations to a JSON file.
// Views read through User/Token; only Login and Logout mutate.
type Store struct {
	path string

	mu    sync.RWMutex
	token string
	user  *domain.User
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore creates a store backed by ~/.captchapay/session.json.
func DefaultStore() (*Store, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(dir, "session.json")), nil
}

// Load hydrates the session from disk. A missing file is not an error: the
// store simply stays unauthenticated. Callers must Load before rendering any
// gated view so there is a defined state rather than a flash of logged-out.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read session: %w", err)
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	s.mu.Lock()
	s.token = p.Token
	s.user = p.User
	s.mu.Unlock()
	return nil
}

// Login stores the credential and identity and persists both. Observers see
// the pair change together.
func (s *Store) Login(token string, user *domain.User) error {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	return s.save(persisted{Token: token, User: user})
}

// SetUser replaces the cached identity, keeping the credential. Used when a
// fresh identity fetch supersedes the stale persisted copy.
func (s *Store) SetUser(user *domain.User) error {
	s.mu.Lock()
	s.user = user
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil
	}
	return s.save(persisted{Token: token, User: user})
}

// Logout clears both fields and removes the persisted file.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Token returns the bearer credential, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the cached identity, nil when logged out.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Authenticated reports whether an identity is held.
func (s *Store) Authenticated() bool {
	return s.User() != nil
}

// TokenExpiry extracts the exp claim from the stored JWT without verifying
// the signature. Verification is the server's job; this is display state
// only. Returns the zero time when the token is absent or not a JWT.
func (s *Store) TokenExpiry() time.Time {
	tok := s.Token()
	if tok == "" {
		return time.Time{}
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// save writes atomically: temp file in the same directory, then rename.
func (s *Store) save(p persisted) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close temp session: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}
