package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageLimit_ValidInputs(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0K", 0},
		{"1K", unitK},
		{"1KB", unitK},
		{"1KiB", unitK},
		{"10M", 10 * unitM},
		{"10MB", 10 * unitM},
		{"10MiB", 10 * unitM},
		{"1G", unitG},
		{"1GB", unitG},
		{"1GiB", unitG},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseStorageLimit(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseStorageLimit_SameBinaryMultiplierRegardlessOfSpelling(t *testing.T) {
	// Unlike humanize.ParseBytes, "KB" and "KiB" must mean the same thing
	// here: both 1024, never 1000.
	kb, err := ParseStorageLimit("5KB")
	require.NoError(t, err)
	kib, err := ParseStorageLimit("5KiB")
	require.NoError(t, err)
	assert.Equal(t, kib, kb)
}

func TestParseStorageLimit_InvalidInputs(t *testing.T) {
	for _, input := range []string{"", "abc", "-1K", "1TB", "1024", "1KX"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseStorageLimit(input)
			assert.Error(t, err)
		})
	}
}
