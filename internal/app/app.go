package app

import (
	"fmt"
	"strings"
	"time"

	"bookshelf/pkg/auth"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

// Session backends understood by New when Config.Sessions is nil.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
	SessionBackendJWT    = "jwt"
)

// Config holds runtime configuration for the core application.
type Config struct {
	Username       string
	Password       string
	PasswordCost   int
	IDStrategy     string
	IDPrefix       string
	DatabaseURL    string
	SessionBackend string
	SessionTTL     time.Duration
	JWTSecret      string
	RedisAddr      string
	RedisPassword  string
	IDs            store.IDProvider
	Books          store.BookStore
	Sessions       store.SessionStore
}

// App wires the credential, book and session stores together.
type App struct {
	creds    *auth.CredentialStore
	books    store.BookStore
	sessions store.SessionStore
}

// New constructs the application. Stores left nil in cfg are built from the remaining fields.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	creds, err := auth.NewCredentialStore(cfg.Username, cfg.Password, cfg.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	ids := cfg.IDs
	if ids == nil {
		ids, err = store.NewIDProvider(cfg.IDStrategy, cfg.IDPrefix)
		if err != nil {
			return nil, fmt.Errorf("init id provider: %w", err)
		}
	}

	books := cfg.Books
	if books == nil {
		if strings.TrimSpace(cfg.DatabaseURL) != "" {
			gormStore, err := store.NewGormBookStore(cfg.DatabaseURL, ids)
			if err != nil {
				return nil, fmt.Errorf("init database book store: %w", err)
			}
			books = gormStore
		} else {
			books = store.NewMemoryBookStore(ids)
		}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		switch strings.ToLower(strings.TrimSpace(cfg.SessionBackend)) {
		case "", SessionBackendMemory:
			sessions = store.NewMemorySessionStore(cfg.SessionTTL)
		case SessionBackendRedis:
			if strings.TrimSpace(cfg.RedisAddr) == "" {
				return nil, fmt.Errorf("redisAddr is required for redis sessions")
			}
			sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		case SessionBackendJWT:
			jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
			if err != nil {
				return nil, fmt.Errorf("init jwt session store: %w", err)
			}
			sessions = jwtStore
		default:
			return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
		}
	}

	return &App{
		creds:    creds,
		books:    books,
		sessions: sessions,
	}, nil
}

// Login verifies the credentials and opens a session, returning its token.
func (a *App) Login(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrCredentialsRequired
	}
	if !a.creds.Verify(username, password) {
		return "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(username)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// SessionFromToken resolves a session token. Unknown, expired and empty tokens
// yield an unauthenticated session.
func (a *App) SessionFromToken(token string) (domain.Session, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, false
	}
	subject, ok, err := a.sessions.GetSubjectByToken(token)
	if err != nil || !ok {
		return domain.Session{}, false
	}
	return domain.Session{Token: token, Subject: subject, Authenticated: true}, true
}

// ListBooks returns the shelf in insertion order.
func (a *App) ListBooks() ([]domain.Book, error) {
	books, err := a.books.RetrieveAll()
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// AddBook validates and stores a new book. Any client supplied id is discarded.
func (a *App) AddBook(b domain.Book) (domain.Book, error) {
	b.Author = strings.TrimSpace(b.Author)
	b.Title = strings.TrimSpace(b.Title)
	if b.Author == "" && b.Title == "" {
		return domain.Book{}, ErrBookFieldsRequired
	}
	if b.Size < 0 {
		return domain.Book{}, ErrInvalidSize
	}
	b.ID = ""
	b.CreatedAt = time.Time{}
	stored, err := a.books.Store(b)
	if err != nil {
		return domain.Book{}, fmt.Errorf("store book: %w", err)
	}
	return stored, nil
}

// RemoveBook deletes the book whose id equals id exactly and reports whether it existed.
func (a *App) RemoveBook(id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, ErrBookIDRequired
	}
	removed, err := a.books.RemoveItemByID(id)
	if err != nil {
		return false, fmt.Errorf("remove book: %w", err)
	}
	return removed, nil
}
