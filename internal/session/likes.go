package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Likes is the local, purely cosmetic record of challenges the user marked.
// Nothing here is ever sent to the server and it has no bearing on the solve
// loop; it survives restarts so a re-fetched challenge shows its old state.
type Likes struct {
	path string

	mu     sync.Mutex
	liked  map[string]bool
	counts map[string]int
}

// likesFile is the on-disk shape: a list of liked keys plus a count map,
// mirroring how the web client kept them in local storage.
type likesFile struct {
	Liked  []string       `json:"likedCaptchas"`
	Counts map[string]int `json:"captchaLikeCounts"`
}

// NewLikes creates a like store backed by the given file path.
func NewLikes(path string) *Likes {
	return &Likes{
		path:   path,
		liked:  make(map[string]bool),
		counts: make(map[string]int),
	}
}

// DefaultLikes creates a like store backed by ~/.captchapay/likes.json.
func DefaultLikes() (*Likes, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewLikes(filepath.Join(dir, "likes.json")), nil
}

// Load reads persisted like state. A missing file leaves the store empty.
func (l *Likes) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read likes: %w", err)
	}
	var f likesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode likes: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.liked = make(map[string]bool, len(f.Liked))
	for _, k := range f.Liked {
		if k != "" {
			l.liked[k] = true
		}
	}
	l.counts = f.Counts
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	return nil
}

// IsLiked reports whether the challenge key is currently liked.
func (l *Likes) IsLiked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liked[key]
}

// Count returns the local like count for the challenge key.
func (l *Likes) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[key]
}

// Toggle flips the like state for the key, adjusts its count (floored at
// zero), persists, and returns the new state and count. Toggling twice
// returns both to their original values.
func (l *Likes) Toggle(key string) (liked bool, count int, err error) {
	if key == "" {
		return false, 0, nil
	}
	l.mu.Lock()
	liked = !l.liked[key]
	if liked {
		l.liked[key] = true
		l.counts[key]++
	} else {
		delete(l.liked, key)
		l.counts[key]--
		if l.counts[key] < 0 {
			l.counts[key] = 0
		}
	}
	count = l.counts[key]
	err = l.saveLocked()
	l.mu.Unlock()
	return liked, count, err
}

func (l *Likes) saveLocked() error {
	f := likesFile{Counts: l.counts}
	for k := range l.liked {
		f.Liked = append(f.Liked, k)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode likes: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		return fmt.Errorf("write likes: %w", err)
	}
	return nil
}
