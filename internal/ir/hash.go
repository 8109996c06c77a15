package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainQuery prefixes query hashes. The version suffix leaves room for a
// future change of canonical form.
const DomainQuery = "questd/query/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash identifies the condition a grant was made under. Equivalent
// spellings of the same query (spacing, conjunction case) hash equally.
func QueryHash(q Query) string {
	return hashWithDomain(DomainQuery, []byte(q.String()))
}
