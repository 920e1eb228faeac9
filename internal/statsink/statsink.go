// Package statsink persists cumulative counters across restarts.
package statsink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/framegrace/pixelflut/internal/stats"
)

// Persister loads and saves the persistable subset of Stats.
type Persister interface {
	Load() (stats.Raw, error)
	Save(raw stats.Raw) error
}

// storedRaw is the on-disk representation, timestamped for operators
// inspecting the file by hand.
type storedRaw struct {
	SavedAt time.Time `json:"savedAt"`
	stats.Raw
}

// FilePersister persists stats.Raw as indented JSON at a fixed path.
type FilePersister struct {
	path string
	mu   sync.Mutex
}

// NewFilePersister returns a Persister backed by a JSON file at path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Save writes raw to disk, creating parent directories as needed.
func (f *FilePersister) Save(raw stats.Raw) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(storedRaw{SavedAt: time.Now().UTC(), Raw: raw}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

// Load reads the previously saved counters. A missing file is reported via
// the underlying os.IsNotExist error, same as the original's absent-file
// behavior on first run.
func (f *FilePersister) Load() (stats.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var stored storedRaw
	data, err := os.ReadFile(f.path)
	if err != nil {
		return stats.Raw{}, err
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return stats.Raw{}, err
	}
	return stored.Raw, nil
}
