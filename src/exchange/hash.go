package exchange

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the SHA-256 fingerprint of a document.
func HashContent(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
