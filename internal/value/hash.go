package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for changing the hashing scheme later.
const (
	DomainCommand  = "formsync/command/v1"
	DomainSnapshot = "formsync/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CommandID computes the content-addressed ID of a logged command.
// The same session, type, payload and seq always yield the same ID.
func CommandID(session, commandType string, payload Object, seq int64) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"session": String(session),
		"type":    String(commandType),
		"payload": payload,
		"seq":     Int(seq),
	})
	if err != nil {
		return "", fmt.Errorf("CommandID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommand, canonical), nil
}

// SnapshotHash hashes an already canonical state document.
func SnapshotHash(canonicalState []byte) string {
	return hashWithDomain(DomainSnapshot, canonicalState)
}

// MustCommandID is like CommandID but panics on error. Tests only.
func MustCommandID(session, commandType string, payload Object, seq int64) string {
	id, err := CommandID(session, commandType, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
