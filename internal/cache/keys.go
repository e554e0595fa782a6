package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// ResponseKeyPrefix is prepended to every response key
const ResponseKeyPrefix = "qb:"

// ResponseKey returns the cache key for a QuickBase response. The realm and
// token are part of the key so that responses are never shared across
// realms or users. Query parameters are sorted, so parameter order does not
// change the key. Only a truncated SHA-256 of the parts is kept, so the
// token never reaches the backend.
func ResponseKey(realm, token, method, rawURL string) string {
	parts := []string{realm, token, strings.ToUpper(method), canonicalURL(rawURL)}
	hash := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return ResponseKeyPrefix + hex.EncodeToString(hash[:16])
}

// canonicalURL sorts the query of rawURL; unparsable input is used as is
func canonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""
	return u.String()
}
