// Package fingerprint provides the opaque record-stamping token used by the
// mission ledger. It is an explicit placeholder: the token is NOT a
// cryptographic hash and no collision or preimage property may be assumed
// anywhere in the engine.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/gowebpki/jcs"
)

// TokenLength is the fixed length, in hex characters, of every token.
const TokenLength = 16

// Generator maps an arbitrary seed string to a fixed-length opaque token.
// Implementations must be pure: identical seeds yield identical tokens.
type Generator interface {
	Fingerprint(seed string) string
}

// Demo is the default non-cryptographic generator. It folds the seed through
// FNV-1a 64 twice (second pass over the reversed seed) to fill 16 hex chars.
type Demo struct{}

// NewDemo returns the demo generator.
func NewDemo() *Demo { return &Demo{} }

// Fingerprint implements Generator.
func (Demo) Fingerprint(seed string) string {
	fwd := fnv.New64a()
	fwd.Write([]byte(seed))

	rev := fnv.New64a()
	b := []byte(seed)
	for i := len(b) - 1; i >= 0; i-- {
		rev.Write(b[i : i+1])
	}

	// 8 hex chars from each pass.
	return fmt.Sprintf("%08x%08x", uint32(fwd.Sum64()>>32)^uint32(fwd.Sum64()), uint32(rev.Sum64()>>32)^uint32(rev.Sum64()))
}

// Seed builds a canonical seed string from a structured payload using
// RFC 8785 (JCS) canonicalization, so two structurally equal payloads always
// produce the same seed regardless of field ordering at the call site.
func Seed(payload map[string]any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal seed payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize seed payload: %w", err)
	}
	return string(canonical), nil
}

// MustSeed is Seed for payloads built from engine-internal values, where a
// marshal failure is a programming error.
func MustSeed(payload map[string]any) string {
	s, err := Seed(payload)
	if err != nil {
		panic(err)
	}
	return s
}
