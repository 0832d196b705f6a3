package auth

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	ErrInvalidEmail  = errors.New("please enter a valid email address")
	ErrNotGoogleMail = errors.New("please use a Google account email (Gmail or Google Workspace)")
)

// NormalizeEmail validates address syntax and lower-cases it.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IsGoogleAccount accepts Gmail and Google-hosted domains.
func IsGoogleAccount(email string) bool {
	email = strings.ToLower(email)
	return strings.Contains(email, "gmail.com") ||
		strings.Contains(email, "@g.") ||
		strings.Contains(email, "googlemail.com")
}

// LocalPart returns the text before the "@".
func LocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// NameFromEmail builds a display name from the local part: "jane.doe_x"
// becomes "Jane Doe X". Empty results fall back to "User".
func NameFromEmail(email string) string {
	words := strings.FieldsFunc(LocalPart(email), func(r rune) bool { return r == '.' || r == '_' })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return "User"
	}
	return strings.Join(words, " ")
}
