package dto

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)
)

// MaxPasswordBytes is the bcrypt input limit
const MaxPasswordBytes = 72

const (
	msgEmail    = "Please enter a valid email"
	msgPassword = "Password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one special character"
	msgPhone    = "Please enter a valid phone number"
)

// IsValidEmail reports whether email looks like local@domain.tld
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// IsValidPassword requires 8+ characters with a lower, an upper, a digit and a non-alphanumeric character
func IsValidPassword(password string) bool {
	if len([]rune(password)) < 8 || len(password) > MaxPasswordBytes {
		return false
	}
	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			other = true
		}
	}
	return lower && upper && digit && other
}

// IsValidPhone accepts an optional leading + followed by at least ten digits, spaces or dashes
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsNonEmpty reports whether s has content after trimming
func IsNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}
