package domain

import "time"

type UserRole string

const (
	RoleUser UserRole = "user"
)

// Credential is the single login record of the shelf owner.
type Credential struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
}

// Book is a shelf entry. ID stays empty until the book store assigns one.
type Book struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the per-client authentication state tracked by the access gate.
type Session struct {
	Token         string `json:"-"`
	Subject       string `json:"subject,omitempty"`
	Authenticated bool   `json:"authenticated"`
}
