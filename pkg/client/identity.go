package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// IdentityCache remembers which registration belongs to this profile, the way
// the browser frontend keeps it in local storage. It is advisory only: the
// registration collection is the source of truth for whether the id still
// exists, and a stale or cleared cache simply degrades to "new registrant".
type IdentityCache interface {
	Load() (string, bool)
	Store(id string) error
	Clear() error
}

// FileCache persists the own-registration pointer in a single file under the
// user's config directory, surviving restarts like browser local storage.
type FileCache struct {
	mu   sync.Mutex
	path string
}

// NewFileCache uses the given path, or a per-user default when empty.
func NewFileCache(path string) (*FileCache, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "outing", "registration_id")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{path: path}, nil
}

func (c *FileCache) Load() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// Store writes atomically via rename so a crash never leaves a torn pointer.
func (c *FileCache) Store(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write identity cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("commit identity cache: %w", err)
	}
	return nil
}

func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear identity cache: %w", err)
	}
	return nil
}

// MemoryCache keeps the pointer for the life of the process. Tests and
// short-lived tools use it.
type MemoryCache struct {
	mu sync.Mutex
	id string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Load() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.id != ""
}

func (c *MemoryCache) Store(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	return nil
}

func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = ""
	return nil
}
