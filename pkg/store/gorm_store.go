package store

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookshelf/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GormBookStore implements BookStore using GORM (Postgres or SQLite).
type GormBookStore struct {
	// mu serialises id assignment with the insert that claims it.
	mu  sync.Mutex
	db  *gorm.DB
	ids IDProvider
}

// NewGormBookStore opens the DB and runs auto-migrations.
func NewGormBookStore(dsn string, ids IDProvider) (*GormBookStore, error) {
	dialector, err := openDialector(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newGormBookStore(db, ids)
}

func newGormBookStore(db *gorm.DB, ids IDProvider) (*GormBookStore, error) {
	if err := db.AutoMigrate(&BookModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if ids == nil {
		ids = UUIDProvider{}
	}
	s := &GormBookStore{db: db, ids: ids}
	if seq, ok := ids.(sequenceSeeder); ok {
		if err := s.seedSequence(seq); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// sequenceSeeder is implemented by counter providers that must skip ids already persisted.
type sequenceSeeder interface {
	Prefix() string
	StartAfter(n uint64)
}

// seedSequence advances seq past the highest numeric suffix stored under its prefix.
func (s *GormBookStore) seedSequence(seq sequenceSeeder) error {
	prefix := seq.Prefix()
	var ids []string
	if err := s.db.Model(&BookModel{}).Where("id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("seed id sequence: %w", err)
	}
	var highest uint64
	for _, id := range ids {
		n, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	seq.StartAfter(highest)
	return nil
}

func escapeLike(v string) string {
	return strings.NewReplacer(`%`, `\%`, `_`, `\_`).Replace(v)
}

// openDialector picks a driver from the DSN shape:
// postgres:// URLs and key=value DSNs go to Postgres, sqlite: and file: prefixes to SQLite.
func openDialector(dsn string) (gorm.Dialector, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("database dsn is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), nil
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", dsn)
	}
}

// RetrieveAll returns all books ordered by insertion.
func (s *GormBookStore) RetrieveAll() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("seq ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// Store assigns a fresh id to b and inserts it.
func (s *GormBookStore) Store(b domain.Book) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := nextID(s.ids, b, s.hasID)
	if err != nil {
		return domain.Book{}, err
	}
	b.ID = id
	b.CreatedAt = time.Now().UTC()
	model := bookToModel(b)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	slog.Info("store new book", "book_id", b.ID, "title", b.Title, "author", b.Author)
	return b, nil
}

// RemoveItemByID deletes the book with the given id.
func (s *GormBookStore) RemoveItemByID(id string) (bool, error) {
	res := s.db.Delete(&BookModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	slog.Info("remove book completed", "book_id", id)
	return true, nil
}

func (s *GormBookStore) hasID(id string) (bool, error) {
	var count int64
	if err := s.db.Model(&BookModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:        b.ID,
		Author:    b.Author,
		Title:     b.Title,
		Size:      b.Size,
		CreatedAt: b.CreatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:        m.ID,
		Author:    m.Author,
		Title:     m.Title,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}
}
