package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagNameValidator(t *testing.T) {
	v := NewTagNameValidator(DefaultMaxTagLength)

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "Avatar", true},
		{"japanese", "衣装", true},
		{"with inner space", "VRChat Avatar", true},
		{"fifty runes", strings.Repeat("あ", 50), true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"leading space", " Avatar", false},
		{"trailing newline", "Avatar\n", false},
		{"control char", "Ava\x00tar", false},
		{"too long", strings.Repeat("a", 51), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, v.IsValidName(tt.input))
		})
	}
}

func TestTagNameValidator_CheckMessages(t *testing.T) {
	v := NewTagNameValidator(5)

	assert.EqualError(t, v.Check(""), "tag name must not be empty")
	assert.EqualError(t, v.Check("abcdef"), "tag name must be at most 5 characters")
	assert.EqualError(t, v.Check(" ab"), "tag name must not start or end with whitespace")
	assert.NoError(t, v.Check("abc"))
}

func TestNewTagNameValidator_DefaultsLength(t *testing.T) {
	v := NewTagNameValidator(0)
	assert.True(t, v.IsValidName(strings.Repeat("x", DefaultMaxTagLength)))
	assert.False(t, v.IsValidName(strings.Repeat("x", DefaultMaxTagLength+1)))
}
