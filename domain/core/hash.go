package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashReader hashes everything readable from r.
func HashReader(r io.Reader) (Hash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, or the whole hash if shorter.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// ComputeFieldsHash hashes a key/value set independent of map iteration order.
func ComputeFieldsHash(fields map[string]string) Hash {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteByte(':')
		data.WriteString(fields[key])
		data.WriteByte('|')
	}
	return NewHash([]byte(data.String()))
}
