package password

import (
	"strings"
	"unicode"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

// SpecialChars is the set from which at least one character is required.
const SpecialChars = "!@#$%^&*(),.?\":{}|<>"

// Policy violations, in the order they are checked.
const (
	ReasonTooShort  = "password must be at least 8 characters long"
	ReasonTooLong   = "password must be at most 72 bytes long"
	ReasonNoUpper   = "password must contain at least one uppercase letter"
	ReasonNoLower   = "password must contain at least one lowercase letter"
	ReasonNoDigit   = "password must contain at least one digit"
	ReasonNoSpecial = "password must contain at least one special character"
)

// Validate returns the first violated rule, or "" when password is strong
// enough. Length limits are checked before the character classes.
func Validate(password string) string {
	if len([]rune(password)) < MinLength {
		return ReasonTooShort
	}
	if len(password) > MaxBytes {
		return ReasonTooLong
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}

	switch {
	case !upper:
		return ReasonNoUpper
	case !lower:
		return ReasonNoLower
	case !digit:
		return ReasonNoDigit
	case !special:
		return ReasonNoSpecial
	}
	return ""
}
