package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey digests parts into a fixed-length hex key. Parts are separated by
// a NUL byte so ("ab","c") and ("a","bc") differ.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
