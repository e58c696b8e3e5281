package cache

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

const (
	ResultTTL = 24 * time.Hour

	resultPrefix = "temperature:result"
)

// ResultKey generates the store key for one query run. The term is hashed
// so keys stay path- and filename-safe whatever the query language.
func ResultKey(sessionID, term string, ts time.Time) string {
	hash := sha1.Sum([]byte(strings.TrimSpace(term)))
	return fmt.Sprintf("%s:%s:%x:%d", resultPrefix, sessionToken(sessionID), hash[:6], ts.UnixNano())
}

// ValidKey reports whether key has the shape ResultKey produces.
func ValidKey(key string) bool {
	if !strings.HasPrefix(key, resultPrefix+":") {
		return false
	}
	for _, r := range key {
		if !isKeyRune(r) && r != ':' {
			return false
		}
	}
	return len(strings.Split(key, ":")) == 5
}

func sessionToken(sessionID string) string {
	clean := strings.Map(func(r rune) rune {
		if isKeyRune(r) {
			return r
		}
		return -1
	}, sessionID)
	if clean == "" || clean != sessionID || len(clean) > 64 {
		return fmt.Sprintf("%x", sha1.Sum([]byte(sessionID)))
	}
	return clean
}

func isKeyRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
