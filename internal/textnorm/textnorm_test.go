package textnorm

import (
	"testing"

	"github.com/novelshelf/novelshelf-server/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "crlf and lf hash identically",
			input: "first line\r\nsecond line\r\n",
			want:  "first line\nsecond line",
		},
		{
			name:  "bare cr becomes lf",
			input: "first\rsecond",
			want:  "first\nsecond",
		},
		{
			name:  "space runs collapse within lines",
			input: "a   b\t\tc",
			want:  "a b c",
		},
		{
			name:  "trailing spaces at line ends dropped",
			input: "first line  \nsecond line\t\nthird",
			want:  "first line\nsecond line\nthird",
		},
		{
			name:  "zero width characters stripped",
			input: "\ufeffhe\u200bllo\u200c wor\u200dld",
			want:  "hello world",
		},
		{
			name:  "leading and trailing whitespace trimmed",
			input: "  \n  text  \n  ",
			want:  "text",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"a\r\nb\rc\nd",
		"  spaced \t out  ",
		"줄바꿈\r\n한글 텍스트\u200b",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeCRLFInvariant(t *testing.T) {
	lf := "chapter one\nchapter two\nthe end\n"
	crlf := "chapter one\r\nchapter two\r\nthe end\r\n"
	if Normalize(lf) != Normalize(crlf) {
		t.Errorf("LF and CRLF variants normalize differently")
	}
}

func TestNormalizeTrailingSpaceInvariant(t *testing.T) {
	// A CRLF export with trailing spaces on some lines must normalize to the
	// same string as a clean LF export of the same text.
	clean := "chapter one\nchapter two\nthe end\n"
	messy := "chapter one  \r\nchapter two\t \r\nthe end\r\n"
	if got, want := Normalize(messy), Normalize(clean); got != want {
		t.Errorf("Normalize(%q) = %q, want %q", messy, got, want)
	}
}

func TestDetectNewlineStyle(t *testing.T) {
	tests := []struct {
		input string
		want  domain.NewlineStyle
	}{
		{"no newlines here", domain.NewlineUnknown},
		{"a\nb\n", domain.NewlineLF},
		{"a\r\nb\r\n", domain.NewlineCRLF},
		{"a\rb\r", domain.NewlineCR},
		{"a\r\nb\nc", domain.NewlineMixed},
	}
	for _, tt := range tests {
		if got := DetectNewlineStyle(tt.input); got != tt.want {
			t.Errorf("DetectNewlineStyle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
