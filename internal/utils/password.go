package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 8

// CheckPasswordStrength returns the rules pw breaks; an empty slice means
// the password is acceptable.  bcrypt ignores bytes past 72 so longer
// passwords are rejected rather than silently truncated.
func CheckPasswordStrength(pw string) []string {
	var problems []string
	if len(pw) < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}
	if len(pw) > 72 {
		problems = append(problems, "must be at most 72 bytes")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a digit")
	}
	return problems
}
