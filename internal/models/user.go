package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the access role stored with a user record.
type Role string

const (
	RoleAnonymous Role = "ANONYMOUS"
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
)

// OrDefault returns the role itself, or RoleAnonymous when unset.
func (r Role) OrDefault() Role {
	if r == "" {
		return RoleAnonymous
	}
	return r
}

type User struct {
	ID            int64      `db:"id"`
	Account       string     `db:"account"`
	Firstname     string     `db:"firstname"`
	Middlename    *string    `db:"middlename"`
	Lastname      string     `db:"lastname"`
	Nickname      *string    `db:"nickname"`
	Role          Role       `db:"role"`
	Lang          *string    `db:"lang"`
	PasswordHash  string     `db:"password_hash"`
	Email         string     `db:"email"`
	EmailVerified bool       `db:"email_verified"`
	Image         *string    `db:"image"`
	DeletedAt     *time.Time `db:"deleted_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// IsUsable reports whether the record may produce a session. An account
// without an email, with an unverified email, or soft-deleted at or before
// now is unusable.
func (u *User) IsUsable(now time.Time) bool {
	if u.Email == "" || !u.EmailVerified {
		return false
	}
	if u.DeletedAt != nil && !u.DeletedAt.After(now) {
		return false
	}
	return true
}

// Claims defines the structure of the JWT claims.
// LM is a freshness marker in unix milliseconds, not a display value: a token
// whose LM lags behind the process-wide freshness map gets re-validated
// against the user store.
type Claims struct {
	UID        int64  `json:"uid"`
	Name       string `json:"name"`
	Firstname  string `json:"firstname"`
	Middlename string `json:"middlename,omitempty"`
	Lastname   string `json:"lastname"`
	Nickname   string `json:"nickname,omitempty"`
	Role       Role   `json:"role"`
	Lang       string `json:"lang,omitempty"`
	LM         int64  `json:"lm"`
	jwt.RegisteredClaims
}
