package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCanonicalID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"lowercase hex", "https://wiki.example.com/docs/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"},
		{"uppercase hex lowered", "https://wiki.example.com/docs/A1B2C3D4E5F6A1B2C3D4E5F6A1B2C3D4", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"},
		{"multiple runs picks last", "https://wiki.example.com/00000000000000000000000000000000/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"},
		{"no hex run falls back to url", "https://wiki.example.com/about", "https://wiki.example.com/about"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractCanonicalID(tc.url))
		})
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Getting Started!", "Getting_Started"},
		{"  leading and trailing  ", "leading_and_trailing"},
		{"---", "Untitled"},
		{"", "Untitled"},
		{"Already_Sane", "Already_Sane"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in))
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{"Hello, World!", "a/b\\c:d*e", "", "___", "Mixed 123 Case"}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice)
	}
}
