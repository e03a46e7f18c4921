package model

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultEmailDomain is the domain self-registered accounts must use.
const DefaultEmailDomain = "@kostalegal.com"

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationErrors maps a field name to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, field := range []string{"username", "email", "password", "confirm_password"} {
		if msg, ok := v[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

func ValidateUsername(username string) string {
	if strings.TrimSpace(username) == "" {
		return "username is required"
	}
	n := utf8.RuneCountInString(username)
	if n < 3 {
		return "username must be at least 3 characters"
	}
	if n > 30 {
		return "username must be at most 30 characters"
	}
	if !usernamePattern.MatchString(username) {
		return "username may only contain letters, digits, underscore and hyphen"
	}
	return ""
}

func ValidateEmail(email, requiredDomain string) string {
	if strings.TrimSpace(email) == "" {
		return "email is required"
	}
	if !emailPattern.MatchString(email) {
		return "invalid email format"
	}
	if requiredDomain != "" && !strings.HasSuffix(strings.ToLower(email), strings.ToLower(requiredDomain)) {
		return "email must use the " + requiredDomain + " domain"
	}
	return ""
}

func ValidatePassword(password string) string {
	if password == "" {
		return "password is required"
	}
	n := utf8.RuneCountInString(password)
	if n < 8 {
		return "password must be at least 8 characters"
	}
	if n > 100 {
		return "password must be at most 100 characters"
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one digit"
	}
	return ""
}

// Validate checks a registration; nil means valid.
func (r Registration) Validate(requiredDomain string) error {
	errs := ValidationErrors{}
	if msg := ValidateUsername(r.Username); msg != "" {
		errs["username"] = msg
	}
	if msg := ValidateEmail(r.Email, requiredDomain); msg != "" {
		errs["email"] = msg
	}
	if msg := ValidatePassword(r.Password); msg != "" {
		errs["password"] = msg
	}
	switch {
	case r.ConfirmPassword == "":
		errs["confirm_password"] = "password confirmation is required"
	case r.ConfirmPassword != r.Password:
		errs["confirm_password"] = "passwords do not match"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
