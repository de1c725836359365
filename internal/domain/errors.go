package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrProvisionFailed     = errors.New("provisioning failed")
	ErrServerFull          = errors.New("server is full")
	ErrTrialUsed           = errors.New("trial already used")
)

// AccountIncompleteError reports which bundle members are missing for a username
type AccountIncompleteError struct {
	Username string
	Missing  []Protocol
}

func (e *AccountIncompleteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = string(p)
	}
	return fmt.Sprintf("account %s incomplete, missing: %s", e.Username, strings.Join(names, ", "))
}

// DepositSettledError is returned when a transition is requested on a closed deposit
type DepositSettledError struct {
	ID     string
	Status DepositStatus
}

func (e *DepositSettledError) Error() string {
	return fmt.Sprintf("deposit %s already %s", e.ID, e.Status)
}
