package domain

import (
	"fmt"
	"regexp"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]{6,}$`)
)

// ValidateUsername checks the account username format
func ValidateUsername(s string) error {
	if !usernamePattern.MatchString(s) {
		return fmt.Errorf("%w: username must be 3-20 letters, digits or underscore", ErrInvalidInput)
	}
	return nil
}

// ValidatePassword checks the SSH account password format
func ValidatePassword(s string) error {
	if !passwordPattern.MatchString(s) {
		return fmt.Errorf("%w: password must be at least 6 letters or digits", ErrInvalidInput)
	}
	return nil
}
