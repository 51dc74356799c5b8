package telegram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
)

const sessionSuffix = ".session"

// SessionStore persists one opaque session blob per session name in a
// directory, so reconnects skip the full challenge sequence. Blobs are
// plain files named <name>.session; the concrete client driver reads and
// writes them through this store, never interpreting the contents here.
type SessionStore struct {
	dir    string
	logger arbor.ILogger
}

// NewSessionStore creates a session store rooted at dir
func NewSessionStore(dir string, logger arbor.ILogger) *SessionStore {
	if dir == "" {
		dir = "."
	}
	return &SessionStore{dir: dir, logger: logger}
}

// Path returns the blob file path for a session name
func (s *SessionStore) Path(name string) string {
	return filepath.Join(s.dir, name+sessionSuffix)
}

// Load reads the session blob for a name. A missing blob returns nil
// without error; authentication then runs the full challenge sequence.
func (s *SessionStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session %s: %w", name, err)
	}
	return data, nil
}

// Save writes the session blob for a name
func (s *SessionStore) Save(name string, blob []byte) error {
	if err := os.WriteFile(s.Path(name), blob, 0600); err != nil {
		return fmt.Errorf("failed to save session %s: %w", name, err)
	}
	s.logger.Debug().Str("session", name).Msg("Session blob saved")
	return nil
}

// Clear deletes all files matching the session name prefix, forcing
// re-authentication on the next run. Returns the number of files removed.
func (s *SessionStore) Clear(name string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, name+"*"+sessionSuffix+"*"))
	if err != nil {
		return 0, fmt.Errorf("failed to list session files: %w", err)
	}

	removed := 0
	for _, path := range matches {
		if !strings.HasPrefix(filepath.Base(path), name) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove session file %s: %w", path, err)
		}
		removed++
	}

	s.logger.Info().Str("session", name).Int("files", removed).Msg("Session cleared")
	return removed, nil
}
