package crypto

import (
	"bytes"
	"testing"
)

func TestCanonicalizeJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
		wantErr  bool
	}{
		{
			name:     "keys are sorted",
			input:    []byte(`{"b":2,"a":1}`),
			expected: []byte(`{"a":1,"b":2}`),
		},
		{
			name:     "whitespace is stripped",
			input:    []byte("{\n  \"code\": \"CND260831001\",\n  \"unit\": \"101\"\n}"),
			expected: []byte(`{"code":"CND260831001","unit":"101"}`),
		},
		{
			name:    "invalid JSON is rejected",
			input:   []byte(`{"a":`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CanonicalizeJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalizeJSON() returned error: %v", err)
			}
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("CanonicalizeJSON() = %s, want %s", result, tt.expected)
			}
		})
	}
}

// the same logical document must always canonicalize to the same bytes - the
// integrity hash of a certificate depends on it
func TestCanonicalizeJSONIsStable(t *testing.T) {
	a := []byte(`{"unit":"101","block":"A","period":{"to":"2026-08-31","from":"2025-08-31"}}`)
	b := []byte(`{"block":"A","period":{"from":"2025-08-31","to":"2026-08-31"},"unit":"101"}`)

	canonA, err := CanonicalizeJSON(a)
	if err != nil {
		t.Fatalf("CanonicalizeJSON() returned error: %v", err)
	}
	canonB, err := CanonicalizeJSON(b)
	if err != nil {
		t.Fatalf("CanonicalizeJSON() returned error: %v", err)
	}

	if !bytes.Equal(canonA, canonB) {
		t.Errorf("equivalent documents canonicalized differently:\n%s\n%s", canonA, canonB)
	}
}
