package store

import (
	"errors"

	"bookshelf/pkg/domain"
)

// ErrIDUnavailable is returned when the id provider cannot produce a fresh id.
var ErrIDUnavailable = errors.New("book id unavailable")

// maxIDAttempts bounds how often Store asks the provider for a fresh id.
const maxIDAttempts = 3

// BookStore keeps the shelf contents in insertion order.
type BookStore interface {
	// RetrieveAll returns a snapshot of all books; callers may mutate it freely.
	RetrieveAll() ([]domain.Book, error)
	// Store assigns a fresh id and appends the book.
	Store(domain.Book) (domain.Book, error)
	// RemoveItemByID removes the book with the given id and reports whether one was found.
	RemoveItemByID(id string) (bool, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(subject string) (string, error)
	GetSubjectByToken(token string) (string, bool, error)
}
