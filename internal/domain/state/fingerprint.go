package state

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes an encoded state. Encode sorts map keys, so equal states
// always produce equal fingerprints.
func Fingerprint(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}
