// Package models holds the records persisted by the server.
package models

import "time"

// User is a stored credential record. PasswordHash is a bcrypt hash and
// never leaves the server.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
