// file: internals/helpers/token.go
package helper

import (
	"crypto/rand"
	"encoding/hex"
)

// NewCSRFToken returns a random token for the double-submit cookie.
func NewCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
