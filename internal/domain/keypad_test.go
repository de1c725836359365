package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypad_Press(t *testing.T) {
	k := NewKeypad(3)

	assert.True(t, k.Press("1"))
	assert.True(t, k.Press("2"))
	assert.False(t, k.Press("x"), "non-digit is rejected")
	assert.False(t, k.Press("12"), "multi-char input is rejected")
	assert.True(t, k.Press("3"))
	assert.False(t, k.Press("4"), "cap reached")
	assert.Equal(t, "123", k.Buffer)
}

func TestKeypad_Caps(t *testing.T) {
	tests := []struct {
		name string
		max  int
	}{
		{name: "generic", max: KeypadCapGeneric},
		{name: "price", max: KeypadCapPrice},
		{name: "balance", max: KeypadCapBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKeypad(tt.max)
			for i := 0; i < tt.max+5; i++ {
				k.Press("9")
			}
			assert.Len(t, k.Buffer, tt.max)
		})
	}

	assert.Equal(t, 12, KeypadCapFor(FieldPrice))
	assert.Equal(t, 20, KeypadCapFor(FieldQuota))
	assert.Equal(t, 20, KeypadCapFor(FieldMaxAccounts))
}

func TestKeypad_BackspaceOnEmpty(t *testing.T) {
	k := NewKeypad(KeypadCapGeneric)

	assert.NotPanics(t, func() {
		assert.False(t, k.Backspace())
	})
	assert.Equal(t, "", k.Buffer)

	k.Press("5")
	k.Press("6")
	assert.True(t, k.Backspace())
	assert.Equal(t, "5", k.Buffer)
}

func TestKeypad_Value(t *testing.T) {
	k := NewKeypad(KeypadCapGeneric)
	_, err := k.Value()
	assert.ErrorIs(t, err, ErrInvalidInput)

	k.Press("4")
	k.Press("2")
	v, err := k.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	overflow := Keypad{Buffer: strings.Repeat("9", 20), Max: KeypadCapGeneric}
	_, err = overflow.Value()
	assert.ErrorIs(t, err, ErrInvalidInput)
}
