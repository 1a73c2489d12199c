package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is an immutable copy of the four session keys. An empty string
// means the key is unset.
type Snapshot struct {
	AuthToken       string `json:"auth_token,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	ConnectionID    string `json:"connection_id,omitempty"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
}

// Authenticated reports whether the snapshot carries an auth token. Without
// a token the remaining keys are stale and must be ignored by consumers.
func (s Snapshot) Authenticated() bool { return s.AuthToken != "" }

// Store is the single source of truth for "are we authenticated" and "which
// knowledge base is active". Every setter persists the whole session before
// returning, so a crash immediately after a setter cannot lose the update.
type Store interface {
	AuthToken() string
	OrgID() string
	ConnectionID() string
	KnowledgeBaseID() string

	SetAuthToken(token string) error
	SetOrgID(orgID string) error
	SetConnectionID(connectionID string) error
	SetKnowledgeBaseID(knowledgeBaseID string) error

	// Logout clears all four keys and persists the cleared state.
	Logout() error

	IsAuthenticated() bool

	// Snapshot returns a consistent copy of all four keys.
	Snapshot() Snapshot
}

// FileStore persists the session to a single JSON state file, written
// atomically on every mutation. The file is the durable-storage analog of
// the four per-key browser storage entries: an absent file means an empty
// session, not an error.
type FileStore struct {
	path string

	mu    sync.RWMutex
	state Snapshot
}

// NewFileStore creates a store backed by the given path and performs the
// one-time load of persisted state. A missing file starts an empty session.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("load session state: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse session state: %w", err)
	}

	return s, nil
}

// Path returns the location of the backing state file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AuthToken
}

func (s *FileStore) OrgID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.OrgID
}

func (s *FileStore) ConnectionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ConnectionID
}

func (s *FileStore) KnowledgeBaseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.KnowledgeBaseID
}

func (s *FileStore) SetAuthToken(token string) error {
	return s.update(func(st *Snapshot) { st.AuthToken = token })
}

func (s *FileStore) SetOrgID(orgID string) error {
	return s.update(func(st *Snapshot) { st.OrgID = orgID })
}

func (s *FileStore) SetConnectionID(connectionID string) error {
	return s.update(func(st *Snapshot) { st.ConnectionID = connectionID })
}

func (s *FileStore) SetKnowledgeBaseID(knowledgeBaseID string) error {
	return s.update(func(st *Snapshot) { st.KnowledgeBaseID = knowledgeBaseID })
}

func (s *FileStore) Logout() error {
	return s.update(func(st *Snapshot) { *st = Snapshot{} })
}

func (s *FileStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

func (s *FileStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Reload re-reads the state file, picking up changes made by another
// process. Used by the change watcher; a missing file clears the session.
func (s *FileStore) Reload() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = Snapshot{}
			return s.state, nil
		}
		return s.state, fmt.Errorf("reload session state: %w", err)
	}

	var next Snapshot
	if err := json.Unmarshal(data, &next); err != nil {
		return s.state, fmt.Errorf("parse session state: %w", err)
	}

	s.state = next
	return s.state, nil
}

// update applies the mutation and writes through to disk while holding the
// lock, so persisted state never runs ahead of or behind memory.
func (s *FileStore) update(fn func(*Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	fn(&s.state)

	if err := s.persist(); err != nil {
		s.state = prev
		return err
	}
	return nil
}

// persist writes the full session atomically (temp file + rename) so a
// concurrent reader never observes a torn write. Caller holds the lock.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session state: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store without persistence. Useful for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state Snapshot
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AuthToken
}

func (s *MemoryStore) OrgID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.OrgID
}

func (s *MemoryStore) ConnectionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ConnectionID
}

func (s *MemoryStore) KnowledgeBaseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.KnowledgeBaseID
}

func (s *MemoryStore) SetAuthToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AuthToken = token
	return nil
}

func (s *MemoryStore) SetOrgID(orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OrgID = orgID
	return nil
}

func (s *MemoryStore) SetConnectionID(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConnectionID = connectionID
	return nil
}

func (s *MemoryStore) SetKnowledgeBaseID(knowledgeBaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.KnowledgeBaseID = knowledgeBaseID
	return nil
}

func (s *MemoryStore) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Snapshot{}
	return nil
}

func (s *MemoryStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
