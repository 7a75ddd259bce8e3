package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// GetGravatarURL builds the Gravatar URL for an email address.
// Gravatar hashes the trimmed, lowercased address with MD5.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultAvatarSize
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(normalized))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
