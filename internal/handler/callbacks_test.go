package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCallbackData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal string",
			input:    "test_data",
			expected: "test_data",
		},
		{
			name:     "string with whitespace",
			input:    "  test_data  ",
			expected: "test_data",
		},
		{
			name:     "string with newline",
			input:    "test\ndata",
			expected: "testdata",
		},
		{
			name:     "string with tab",
			input:    "test\tdata",
			expected: "testdata",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only whitespace",
			input:    "   ",
			expected: "",
		},
		{
			name:     "string with unprintable characters",
			input:    "test\x00data\x01",
			expected: "testdata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanCallbackData(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSplitCallback(t *testing.T) {
	tests := []struct {
		data string
		head string
		args []string
	}{
		{data: "menu", head: "menu", args: []string{}},
		{data: "buy:create", head: "buy", args: []string{"create"}},
		{data: "srv:renew:3in1:12", head: "srv", args: []string{"renew", "3in1", "12"}},
		{data: "adm:rst:backup-20240101-120000.db", head: "adm", args: []string{"rst", "backup-20240101-120000.db"}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			head, args := splitCallback(tt.data)
			assert.Equal(t, tt.head, head)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input string
		id    int64
		ok    bool
	}{
		{input: "12", id: 12, ok: true},
		{input: "0"},
		{input: "-4", id: -4},
		{input: "abc"},
		{input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, ok := parseID(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}
