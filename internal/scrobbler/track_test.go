package scrobbler

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text unchanged", "Yesterday", "Yesterday"},
		{"trims", "  Help!  ", "Help!"},
		{"strips tags", "<b>Bold</b> Move", "Bold Move"},
		{"strips script", "<script>alert(1)</script>Song", "alert(1)Song"},
		{"control characters become spaces", "A\x00B\tC", "A B C"},
		{"collapses whitespace", "Let   It\n\nBe", "Let It Be"},
		{"normalizes to NFC", "Beyonce\u0301", "Beyonc\u00e9"},
		{"drops invalid utf-8", "Bj\xffork", "Bjork"},
		{"empty stays empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
