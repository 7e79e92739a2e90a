package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize lower-cases text, strips punctuation and collapses whitespace so
// that trivially different phrasings of a question share one cache key.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Key derives the cache key of a user query. It depends on the query text only.
func Key(text string) string {
	sum := md5.Sum([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
