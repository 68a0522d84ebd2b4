package engine

import "github.com/google/uuid"

// SessionTokenGenerator produces the token identifying one engine session.
// Achieved log rows carry the token so traces from different sessions are
// distinguishable. Implemented by UUIDv7Generator (production) and
// testutil.FixedTokenGenerator (deterministic tests).
type SessionTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 session tokens.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string. Falls back to UUIDv4 if the
// monotonic source fails, which uuid only does on a broken entropy source.
func (UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
