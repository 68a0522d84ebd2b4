package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed definition hashes.
// Version suffix enables future algorithm migration.
const DomainDef = "sigil/def/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DefHash computes a content-addressed hash of an unlock definition.
// Same definition content always produces the same hash, so the engine can
// detect when a re-compiled ID carries changed content versus a pure
// duplicate (the former is logged, both are no-ops).
func DefHash(d UnlockDef) (string, error) {
	canonical, err := MarshalCanonical(defCanonicalMap(d))
	if err != nil {
		return "", fmt.Errorf("DefHash %s: %w", d.ID, err)
	}
	return hashWithDomain(DomainDef, canonical), nil
}

func defCanonicalMap(d UnlockDef) map[string]any {
	m := map[string]any{
		"id":        d.ID,
		"condition": nodeCanonicalMap(d.Condition),
		"reward_id": d.RewardID,
		"repeat":    d.Repeat.String(),
	}
	if d.DisplayName != "" {
		m["display_name"] = d.DisplayName
	}
	return m
}

func nodeCanonicalMap(n Node) map[string]any {
	m := map[string]any{"kind": n.Kind.String()}
	switch n.Kind {
	case KindAnd, KindOr, KindNot:
		children := make([]any, len(n.Children))
		for i, c := range n.Children {
			children[i] = nodeCanonicalMap(c)
		}
		m["children"] = children
	case KindTrue:
		// No payload.
	case KindCompleted:
		m["topic"] = n.Topic
	case KindValue:
		m["topic"] = n.Topic
		m["op"] = n.Op.String()
		m["target"] = n.Target
	}
	return m
}
