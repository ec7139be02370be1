package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain is the hash domain prefix for event IDs. The version suffix allows
// a future algorithm change without colliding with existing IDs.
const Domain = "tokenledger/event/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ID computes the content-addressed ID for e. The ID field itself is ignored.
func ID(e Event) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"seq":   e.Seq,
		"tx_id": e.TxID,
		"kind":  string(e.Kind),
		"from":  e.From.String(),
		"to":    e.To.String(),
		"value": e.Value.Dec(),
	})
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(Domain, canonical), nil
}

// MustID is like ID but panics on error. Event fields are always
// canonicalizable, so this only fails on programmer error.
func MustID(e Event) string {
	id, err := ID(e)
	if err != nil {
		panic(err)
	}
	return id
}
