package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "hello", expected: "hello"},
		{name: "dot and dash", input: "sg-1.example.com", expected: `sg\-1\.example\.com`},
		{name: "underscore", input: "user_01", expected: `user\_01`},
		{name: "brackets", input: "[a](b)", expected: `\[a\]\(b\)`},
		{name: "backslash", input: `a\b`, expected: `a\\b`},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Escape(tt.input))
		})
	}
}

func TestBoldAndCode(t *testing.T) {
	assert.Equal(t, `*a\.b*`, Bold("a.b"))
	assert.Equal(t, "`a'b`", Code("a`b"))
}

func TestRupiah(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{1000, "Rp 1.000"},
		{10000, "Rp 10.000"},
		{1234567, "Rp 1.234.567"},
		{-5000, "-Rp 5.000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rupiah(tt.input))
		})
	}
}

func TestFlag(t *testing.T) {
	assert.Equal(t, "🇸🇬", Flag("sg"))
	assert.Equal(t, "🇮🇩", Flag("ID"))
	assert.Equal(t, "🏳️", Flag(""))
	assert.Equal(t, "🏳️", Flag("xyz"))
	assert.Equal(t, "🏳️", Flag("1a"))
}
