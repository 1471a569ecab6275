package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "peerflow/event/v1"
	DomainTask  = "peerflow/task/v1"
	DomainOwner = "peerflow/owner/v1"
)

// Hash computes a domain-separated SHA-256 over data.
// Format: SHA256(domain + 0x00 + data), hex-encoded.
// The null byte separator prevents domain/data boundary ambiguity.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashObject canonically marshals v and hashes it under domain.
func HashObject(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return Hash(domain, data), nil
}
