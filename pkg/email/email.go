// Package email holds small address helpers shared by registration and
// notification templates.
package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address so lookups and the unique index
// agree on one canonical form.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsWellFormed is a cheap structural check. Real ownership proof comes from
// the verification code, not from parsing.
func IsWellFormed(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}

// DeriveNameFromEmail guesses a greeting name from the local part. Used only
// for notification templates when no profile name exists yet.
func DeriveNameFromEmail(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User"
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
