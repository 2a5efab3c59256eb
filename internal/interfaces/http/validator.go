package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// Input validation constants
const (
	MaxUsernameLength = 50
	MaxMessageLength  = 4096
	MaxPhones         = 1000
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()-]{8,20}$`)
)

// ValidUsername checks if an operator login is safe (alphanumeric, dot,
// underscore, hyphen).
func ValidUsername(s string) bool {
	if len(s) < 3 || len(s) > MaxUsernameLength {
		return false
	}
	return usernamePattern.MatchString(s)
}

// ValidPhone accepts a phone as typed by an operator, with optional
// formatting characters.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}

// TruncateString truncates s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// queryInt reads a positive integer query parameter, returning def when it
// is missing or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
