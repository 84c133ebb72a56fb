// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownVectors(t *testing.T) {
	t.Parallel()

	h := New()
	cases := map[string]string{
		"":            "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"hello world": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		`{"data":[]}`: "8fe32e407a1038ee38753b70e5374b3a46d6ae9d5f16cd5b73c53abaca8f5ed0",
	}
	for input, want := range cases {
		got, err := h.Hash([]byte(input))
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	first, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	second, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
