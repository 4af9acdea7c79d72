package user

import "time"

// Principal is the authenticated caller attached to every request.
// Credential verification happens upstream; the rest of the system
// trusts this value.
type Principal struct {
	ID      int64
	IsAdmin bool
}

type User struct {
	ID        int64     `db:"id" json:"id"`
	Login     string    `db:"login" json:"login"`
	IsAdmin   bool      `db:"is_admin" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
