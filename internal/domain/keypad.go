package domain

import (
	"fmt"
	"strconv"
)

// Accumulator length caps.
const (
	KeypadCapGeneric = 20
	KeypadCapPrice   = 12
	KeypadCapBalance = 10
)

// Keypad accumulates digits typed on the on-screen numeric keypad
type Keypad struct {
	Buffer string
	Max    int
}

// NewKeypad returns an empty keypad with the given length cap
func NewKeypad(max int) Keypad {
	return Keypad{Max: max}
}

// Press appends a digit. It returns false when the input is not a single
// digit or the buffer is already at its cap.
func (k *Keypad) Press(digit string) bool {
	if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
		return false
	}
	if len(k.Buffer) >= k.Max {
		return false
	}
	k.Buffer += digit
	return true
}

// Backspace drops the last digit; it is a no-op on an empty buffer
func (k *Keypad) Backspace() bool {
	if k.Buffer == "" {
		return false
	}
	k.Buffer = k.Buffer[:len(k.Buffer)-1]
	return true
}

// Empty reports whether nothing was typed
func (k Keypad) Empty() bool {
	return k.Buffer == ""
}

// Value parses the accumulated digits
func (k Keypad) Value() (int64, error) {
	if k.Buffer == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidInput)
	}
	v, err := strconv.ParseInt(k.Buffer, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return v, nil
}

// KeypadCapFor returns the accumulator cap for a server field
func KeypadCapFor(f ServerField) int {
	if f == FieldPrice {
		return KeypadCapPrice
	}
	return KeypadCapGeneric
}
