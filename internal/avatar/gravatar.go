// Package avatar provides default Gravatar images and S3-backed storage
// for uploaded avatars.
package avatar

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const gravatarBase = "https://www.gravatar.com/avatar/"

// Gravatar derives avatar URLs from the Gravatar hash of an email.
type Gravatar struct {
	// Default is the d= fallback image style, e.g. "identicon". Empty
	// leaves the Gravatar default.
	Default string
}

// ImageURL returns the Gravatar URL for email.
func (g Gravatar) ImageURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	u := gravatarBase + hex.EncodeToString(sum[:])
	if g.Default != "" {
		u += "?d=" + g.Default
	}
	return u
}
