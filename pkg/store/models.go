package store

import "time"

// BookModel is the GORM row for a stored book. Seq preserves insertion order.
type BookModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"uniqueIndex;not null"`
	Author    string    `gorm:"not null"`
	Title     string    `gorm:"not null"`
	Size      int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (BookModel) TableName() string {
	return "books"
}
