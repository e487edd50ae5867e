// Package fingerprint computes stable digests of fetched payloads so that
// callers can tell whether a new payload differs from the previous one.
package fingerprint

import (
	"encoding/hex"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/blake3"
)

// canonical sorts map keys so that payloads decoded into maps hash the same
// regardless of the order the service serialized them in.
var canonical = jsoniter.ConfigCompatibleWithStandardLibrary

// Sum is a BLAKE3-256 digest of a payload's canonical JSON encoding.
type Sum [32]byte

// Of returns the fingerprint of v.
func Of(v any) (Sum, error) {
	b, err := canonical.Marshal(v)
	if err != nil {
		return Sum{}, fmt.Errorf("fingerprint: encode payload: %w", err)
	}
	return blake3.Sum256(b), nil
}

func (s Sum) String() string {
	return hex.EncodeToString(s[:8])
}
