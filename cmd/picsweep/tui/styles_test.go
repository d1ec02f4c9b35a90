package tui

import (
	"strings"
	"testing"
)

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		char     rune
		n        int
		expected string
	}{
		{'a', 0, ""},
		{'a', -1, ""},
		{'a', 3, "aaa"},
		{'─', 3, "───"},
	}

	for _, tt := range tests {
		if got := repeatChar(tt.char, tt.n); got != tt.expected {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.char, tt.n, got, tt.expected)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path     string
		maxLen   int
		expected string
	}{
		{"abc_0.jpg", 20, "abc_0.jpg"},
		{"/chat/Image/abc_720.jpg", 15, ".../abc_720.jpg"},
		{"abcd", 3, "abc"},
		{"abcdef", 4, "...f"},
	}

	for _, tt := range tests {
		got := truncatePath(tt.path, tt.maxLen)
		if len(got) > tt.maxLen {
			t.Errorf("truncatePath(%q, %d) length %d exceeds maxLen", tt.path, tt.maxLen, len(got))
		}
		if got != tt.expected {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.maxLen, got, tt.expected)
		}
	}
}

func TestCenter(t *testing.T) {
	if got := center("ab", 6); got != "  ab  " {
		t.Errorf("center = %q", got)
	}
	if got := center("abcdef", 3); got != "abcdef" {
		t.Errorf("center of wide string = %q", got)
	}
}

func TestRenderDivider(t *testing.T) {
	if got := renderDivider(5); !strings.Contains(got, "─────") {
		t.Errorf("renderDivider(5) = %q", got)
	}
}
