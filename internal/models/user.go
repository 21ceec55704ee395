package models

import "time"

// User is a persisted account. Local accounts carry Username and
// PasswordHash, Google accounts carry GoogleID; a record has at least one.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username,omitempty" json:"username,omitempty"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	GoogleID     string    `bson:"googleId,omitempty" json:"googleId,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasLocalCredentials reports whether the user can sign in with a password.
func (u *User) HasLocalCredentials() bool {
	return u != nil && u.Username != "" && u.PasswordHash != ""
}
