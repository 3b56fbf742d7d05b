package history

import (
	"encoding/json"
	"os"
	"sync"
)

// Storage keys. Both entries are best-effort caches, never the source of
// truth; they are cleared on normal session completion.
const (
	HistoryKey       = "temp_history"
	ActiveSessionKey = "active_session"
)

// Storage is the session-scoped string cache backing the telemetry history
// and the in-progress session record.
type Storage interface {
	Get(key string) (value string, ok bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStorage is a plain in-memory Storage, used in tests and as a
// fallback when no cache file is configured.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// FileStorage persists the cache map to a single JSON file so history and
// the active session survive a process restart. All writes are best-effort;
// a corrupt or missing file loads as empty.
type FileStorage struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func NewFileStorage(path string) *FileStorage {
	s := &FileStorage{path: path, data: make(map[string]string)}
	if raw, err := os.ReadFile(path); err == nil {
		var loaded map[string]string
		if json.Unmarshal(raw, &loaded) == nil && loaded != nil {
			s.data = loaded
		}
	}
	return s
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.flushLocked()
}

func (s *FileStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.flushLocked()
}

func (s *FileStorage) flushLocked() {
	b, err := json.Marshal(s.data)
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, b, 0o644)
}
