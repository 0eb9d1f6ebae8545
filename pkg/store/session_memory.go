package store

import (
	"strings"
	"sync"
	"time"

	"bookshelf/internal/util"
)

type memorySession struct {
	subject   string
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in-process (single instance only).
type MemorySessionStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	sess map[string]memorySession
}

// NewMemorySessionStore builds an in-memory session store. ttl <= 0 means sessions never expire.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:  ttl,
		now:  time.Now,
		sess: make(map[string]memorySession),
	}
}

// NewSession creates a session token for subject.
func (m *MemorySessionStore) NewSession(subject string) (string, error) {
	token, err := util.NewToken(32)
	if err != nil {
		return "", err
	}
	entry := memorySession{subject: subject}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sess[token] = entry
	m.mu.Unlock()
	return token, nil
}

// GetSubjectByToken resolves a token; expired entries are dropped.
func (m *MemorySessionStore) GetSubjectByToken(token string) (string, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sess[token]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.sess, token)
		return "", false, nil
	}
	return entry.subject, true, nil
}
