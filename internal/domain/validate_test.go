package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"abc", true},
		{"user_01", true},
		{"ABCDEFGHIJKLMNOPQRST", true},
		{"ab", false},
		{"ABCDEFGHIJKLMNOPQRSTU", false},
		{"bad-name", false},
		{"with space", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abc123"))
	assert.ErrorIs(t, ValidatePassword("abc12"), ErrInvalidInput)
	assert.ErrorIs(t, ValidatePassword("abc_123"), ErrInvalidInput)
}

func TestAccountIncompleteError(t *testing.T) {
	err := &AccountIncompleteError{Username: "joe", Missing: []Protocol{ProtocolVLess, ProtocolTrojan}}
	assert.Equal(t, "account joe incomplete, missing: vless, trojan", err.Error())
}
