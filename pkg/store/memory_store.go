package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bookshelf/pkg/domain"
)

// MemoryBookStore keeps books in-process, in insertion order.
type MemoryBookStore struct {
	mu    sync.RWMutex
	ids   IDProvider
	books []domain.Book
	index map[string]struct{}
}

// NewMemoryBookStore initializes an empty store. A nil provider defaults to UUIDProvider.
func NewMemoryBookStore(ids IDProvider) *MemoryBookStore {
	if ids == nil {
		ids = UUIDProvider{}
	}
	return &MemoryBookStore{
		ids:   ids,
		index: make(map[string]struct{}),
	}
}

// RetrieveAll returns a copy of all books in insertion order.
func (m *MemoryBookStore) RetrieveAll() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, len(m.books))
	copy(res, m.books)
	return res, nil
}

// Store assigns a fresh id to b and appends it.
func (m *MemoryBookStore) Store(b domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := nextID(m.ids, b, func(id string) (bool, error) {
		_, ok := m.index[id]
		return ok, nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	b.ID = id
	b.CreatedAt = time.Now().UTC()
	m.books = append(m.books, b)
	m.index[id] = struct{}{}
	slog.Info("store new book", "book_id", b.ID, "title", b.Title, "author", b.Author)
	return b, nil
}

// RemoveItemByID removes the first book whose id equals id.
func (m *MemoryBookStore) RemoveItemByID(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.books {
		if b.ID != id {
			continue
		}
		m.books = append(m.books[:i], m.books[i+1:]...)
		delete(m.index, id)
		slog.Info("remove book completed", "book_id", b.ID, "title", b.Title)
		return true, nil
	}
	return false, nil
}

// nextID asks ids for an id not rejected by exists, retrying a bounded number of times.
func nextID(ids IDProvider, b domain.Book, exists func(string) (bool, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := ids.ProvideID(b)
		if err != nil {
			lastErr = err
			continue
		}
		if id == "" {
			lastErr = errors.New("empty id")
			continue
		}
		taken, err := exists(id)
		if err != nil {
			return "", fmt.Errorf("check book id: %w", err)
		}
		if taken {
			slog.Warn("id provider returned duplicate id", "book_id", id, "attempt", attempt+1)
			lastErr = fmt.Errorf("duplicate id %q", id)
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: %v", ErrIDUnavailable, lastErr)
}
