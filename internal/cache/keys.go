package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Key namespaces and their TTLs, enforced independently at both tiers.
const (
	AnswerTTL    = 5 * time.Minute
	HoursTTL     = 5 * time.Minute
	EmbeddingTTL = 30 * time.Minute
)

// queryHashLen is the length of the hex digest used in query-scoped keys.
const queryHashLen = 16

// QueryHash derives a short fixed-length digest of the normalized query
// text, so the same text always maps to the same key regardless of request
// origin and textually distinct queries never collide.
func QueryHash(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])[:queryHashLen]
}

// AnswerKey is the full-answer cache key for (business, query).
func AnswerKey(businessID, query string) string {
	return "qr:" + businessID + ":" + QueryHash(query)
}

// AnswerPrefix scopes all cached answers for one business.
func AnswerPrefix(businessID string) string {
	return "qr:" + businessID + ":"
}

// HoursKey is the business-hours snapshot key.
func HoursKey(businessID string) string {
	return "hours:" + businessID
}

// EmbeddingKey is the query-embedding cache key.
func EmbeddingKey(query string) string {
	return "emb:" + QueryHash(query)
}
