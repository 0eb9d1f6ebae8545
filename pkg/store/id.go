package store

import (
	"fmt"
	"strings"
	"sync/atomic"

	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
	"github.com/google/uuid"
)

// ID strategies accepted by NewIDProvider.
const (
	IDStrategyUUID     = "uuid"
	IDStrategySequence = "sequence"
	IDStrategyRandom   = "random"
)

// IDProvider assigns identifiers to books about to be stored.
type IDProvider interface {
	ProvideID(domain.Book) (string, error)
}

// IDProviderFunc adapts a function to IDProvider.
type IDProviderFunc func(domain.Book) (string, error)

// ProvideID calls f(b).
func (f IDProviderFunc) ProvideID(b domain.Book) (string, error) {
	return f(b)
}

// NewIDProvider resolves a provider by strategy name. Empty selects uuid.
func NewIDProvider(strategy, prefix string) (IDProvider, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", IDStrategyUUID:
		return UUIDProvider{}, nil
	case IDStrategySequence:
		return NewSequenceProvider(prefix), nil
	case IDStrategyRandom:
		return RandomHexProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}

// UUIDProvider issues random v4 UUIDs.
type UUIDProvider struct{}

// ProvideID returns a new UUID string.
func (UUIDProvider) ProvideID(domain.Book) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}

// RandomHexProvider issues 12-byte random hex ids.
type RandomHexProvider struct{}

// ProvideID returns a new random hex string.
func (RandomHexProvider) ProvideID(domain.Book) (string, error) {
	return util.NewToken(12)
}

// SequenceProvider issues prefix+n for a process-wide increasing n starting at 1.
type SequenceProvider struct {
	prefix string
	next   atomic.Uint64
}

// NewSequenceProvider builds a counter provider; empty prefix defaults to "book-".
func NewSequenceProvider(prefix string) *SequenceProvider {
	if prefix == "" {
		prefix = "book-"
	}
	return &SequenceProvider{prefix: prefix}
}

// Prefix returns the prefix prepended to every issued id.
func (p *SequenceProvider) Prefix() string {
	return p.prefix
}

// StartAfter moves the counter so the next id is at least prefix+(n+1). It never moves backwards.
func (p *SequenceProvider) StartAfter(n uint64) {
	for {
		cur := p.next.Load()
		if cur >= n || p.next.CompareAndSwap(cur, n) {
			return
		}
	}
}

// ProvideID returns the next id in sequence.
func (p *SequenceProvider) ProvideID(domain.Book) (string, error) {
	n := p.next.Add(1)
	if n == 0 {
		return "", fmt.Errorf("sequence exhausted")
	}
	return fmt.Sprintf("%s%d", p.prefix, n), nil
}
