package extractor

import (
	"errors"
	"testing"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		want      string
		wantErr   bool
	}{
		{"long form", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"long form extra params", "https://youtube.com/watch?v=a_b-C1d2E3f&t=42s", "a_b-C1d2E3f", false},
		{"long form after other params", "https://youtube.com/watch?feature=share&v=AAAAAAAAAAA", "AAAAAAAAAAA", false},
		{"short form", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short form with query", "youtu.be/ZZZZZZZZZZZ?si=abc", "ZZZZZZZZZZZ", false},
		{"embed path", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"case preserved", "https://x/watch?v=AbCdEfGhIjK", "AbCdEfGhIjK", false},
		{"eleven char path segment", "https://example.com/not-a-video", "not-a-video", false},
		{"too short", "https://youtube.com/watch?v=short", "", true},
		{"plain text", "not a link", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractID(tt.reference)
			if tt.wantErr {
				if !errors.Is(err, ErrNotRecognized) {
					t.Fatalf("ExtractID(%q) error = %v, want ErrNotRecognized", tt.reference, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractID(%q) error = %v", tt.reference, err)
			}
			if got != tt.want {
				t.Errorf("ExtractID(%q) = %q, want %q", tt.reference, got, tt.want)
			}
		})
	}
}

func TestExtractIDIsPure(t *testing.T) {
	ref := "https://x/watch?v=AAAAAAAAAAA"
	a, _ := ExtractID(ref)
	b, _ := ExtractID(ref)
	if a != b {
		t.Fatalf("ExtractID not deterministic: %q vs %q", a, b)
	}
}
