package sessions

import "time"

// Session binds an opaque token to a user identifier. Only the identifier is
// stored; the user record is re-read from the identity store when needed.
type Session struct {
	Token     string    `bson:"_id" json:"token"`
	UserID    string    `bson:"userId" json:"userId"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
