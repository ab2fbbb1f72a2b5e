package crypto

import (
	"testing"
)

func TestHash(t *testing.T) {

	// check that empty input returns an error
	_, err := Hash([]byte(""))
	if err == nil {
		t.Fatalf("Hash() expected error, got nil")
	}

	// check the function returns lowercase hex, 64 characters (SHA-256)
	result, err := Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() returned error: %v", err)
	}

	if len(result) != 64 {
		t.Errorf("Hash() returned %d characters, expected 64", len(result))
	}

	for _, c := range result {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("Hash() returned non-hex character: %c", c)
		}
	}

	// known value
	if result != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("Hash() returned unexpected digest: %s", result)
	}
}

func TestHashString(t *testing.T) {
	// HashString must agree with Hash for the same input
	fromBytes, err := Hash([]byte("unit|true|false"))
	if err != nil {
		t.Fatalf("Hash() returned error: %v", err)
	}

	fromString := HashString("unit|true|false")
	if fromString != fromBytes {
		t.Errorf("HashString() = %s, want %s", fromString, fromBytes)
	}
}

func TestVerifyHash(t *testing.T) {
	data := []byte("certificate artifact")
	digest, err := Hash(data)
	if err != nil {
		t.Fatalf("Hash() returned error: %v", err)
	}

	tests := []struct {
		name     string
		data     []byte
		expected string
		want     bool
	}{
		{
			name:     "matching digest",
			data:     data,
			expected: digest,
			want:     true,
		},
		{
			name:     "wrong digest",
			data:     data,
			expected: "deadbeef",
			want:     false,
		},
		{
			name:     "empty data never matches",
			data:     []byte(""),
			expected: digest,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyHash(tt.data, tt.expected); got != tt.want {
				t.Errorf("VerifyHash() = %v, want %v", got, tt.want)
			}
		})
	}
}
