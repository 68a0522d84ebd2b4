package testutil

// FixedTokenGenerator returns the same session token every time, enabling
// byte-identical achieved logs for golden snapshot comparison.
//
// Stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for token. An empty token
// defaults to "test-session-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
// Implements engine.SessionTokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
